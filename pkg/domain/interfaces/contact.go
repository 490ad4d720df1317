package interfaces

import (
	"context"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// ContactRepository stores external contacts.
type ContactRepository interface {
	// Search returns contacts whose first name, last name, full name, or
	// organisation name/abbreviation match q. Order is unspecified.
	Search(ctx context.Context, q *model.Query) ([]*model.Contact, error)

	// Get returns model.ErrNotFound when id is unknown.
	Get(ctx context.Context, id types.ContactID) (*model.Contact, error)

	// Create validates and stores a new contact. A new ID is assigned even
	// when another contact with the same name exists.
	Create(ctx context.Context, contact *model.Contact) (*model.Contact, error)

	// Update replaces the fields and the organisation/program sets of an
	// existing contact.
	Update(ctx context.Context, contact *model.Contact) (*model.Contact, error)
}
