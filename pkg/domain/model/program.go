package model

import "github.com/secmon-lab/contactbook/pkg/domain/types"

// ProgramArea is a thematic area of work. A contact linked to a program
// area is the point person for it.
type ProgramArea struct {
	ID    types.ProgramID
	Name  string
	Notes string
}
