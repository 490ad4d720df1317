package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// Contact is a person outside the organisation.
type Contact struct {
	ID        types.ContactID
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      string
	Notes     string
	Point     bool

	// Write side sets. Update replaces them entirely.
	OrganisationIDs []types.OrganisationID
	ProgramIDs      []types.ProgramID

	// Populated on reads.
	Organisations []*Organisation
	Programs      []*ProgramArea

	ProfileURL string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Name returns "first last".
func (c *Contact) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// NameWithOrgs returns the contact name followed by its organisations, e.g.
// "Jane Doe [Sunrise:moneybag:, Other]".
func (c *Contact) NameWithOrgs() string {
	if len(c.Organisations) == 0 {
		return c.Name()
	}
	names := make([]string, 0, len(c.Organisations))
	for _, o := range c.Organisations {
		names = append(names, o.DisplayName())
	}
	return c.Name() + " [" + strings.Join(names, ", ") + "]"
}

// IsPointPerson reports whether the contact is the primary contact for at
// least one program area.
func (c *Contact) IsPointPerson() bool {
	return c.Point || len(c.Programs) > 0
}

// Validate checks required fields. First and last name are mandatory.
func (c *Contact) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return goerr.Wrap(ErrValidation, "first name is required", goerr.V(FieldKey, "first_name"))
	}
	if strings.TrimSpace(c.LastName) == "" {
		return goerr.Wrap(ErrValidation, "last name is required", goerr.V(FieldKey, "last_name"))
	}
	return nil
}

// Normalize deduplicates the write side sets, keeping the first occurrence.
func (c *Contact) Normalize() {
	c.OrganisationIDs = uniq(c.OrganisationIDs)
	c.ProgramIDs = uniq(c.ProgramIDs)
}

func uniq[T comparable](values []T) []T {
	if values == nil {
		return nil
	}
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
