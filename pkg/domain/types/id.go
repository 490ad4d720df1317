package types

import "github.com/google/uuid"

// Identifiers are opaque strings. Relational and document backends issue
// UUIDs, the tabular backend uses its own record IDs ("rec...").
type (
	UserID         string
	MessageID      string
	ContactID      string
	OrganisationID string
	ProgramID      string
	GrantID        string
)

func NewUserID() UserID                 { return UserID(uuid.NewString()) }
func NewMessageID() MessageID           { return MessageID(uuid.NewString()) }
func NewContactID() ContactID           { return ContactID(uuid.NewString()) }
func NewOrganisationID() OrganisationID { return OrganisationID(uuid.NewString()) }
func NewProgramID() ProgramID           { return ProgramID(uuid.NewString()) }
func NewGrantID() GrantID               { return GrantID(uuid.NewString()) }

func (x UserID) String() string         { return string(x) }
func (x MessageID) String() string      { return string(x) }
func (x ContactID) String() string      { return string(x) }
func (x OrganisationID) String() string { return string(x) }
func (x ProgramID) String() string      { return string(x) }
func (x GrantID) String() string        { return string(x) }

// ContactIDs converts raw string values (e.g. Slack option values) into
// ContactIDs, dropping empty strings and duplicates while keeping order.
func ContactIDs(values []string) []ContactID {
	seen := make(map[string]struct{}, len(values))
	ids := make([]ContactID, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		ids = append(ids, ContactID(v))
	}
	return ids
}

// OrganisationIDs is the OrganisationID counterpart of ContactIDs.
func OrganisationIDs(values []string) []OrganisationID {
	ids := make([]OrganisationID, 0, len(values))
	for _, v := range ContactIDs(values) {
		ids = append(ids, OrganisationID(v))
	}
	return ids
}

// ProgramIDs is the ProgramID counterpart of ContactIDs.
func ProgramIDs(values []string) []ProgramID {
	ids := make([]ProgramID, 0, len(values))
	for _, v := range ContactIDs(values) {
		ids = append(ids, ProgramID(v))
	}
	return ids
}
