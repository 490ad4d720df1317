package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

type contactRepository struct {
	s *store
}

func (r *contactRepository) Search(ctx context.Context, q *model.Query) ([]*model.Contact, error) {
	if err := q.ValidPattern(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*model.Contact
	for _, c := range r.s.contacts {
		hydrated := r.s.hydrateContact(c)
		if q.MatchContact(hydrated) {
			result = append(result, hydrated)
		}
	}
	return result, nil
}

func (r *contactRepository) Get(ctx context.Context, id types.ContactID) (*model.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.contacts[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, id))
	}
	return r.s.hydrateContact(c), nil
}

func (r *contactRepository) Create(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	created := copyContact(contact)
	created.Normalize()
	if err := r.s.checkRefs(created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		created.ID = types.NewContactID()
	}
	now := time.Now()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.s.contacts[created.ID] = created
	return r.s.hydrateContact(created), nil
}

func (r *contactRepository) Update(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.contacts[contact.ID]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, contact.ID))
	}

	updated := copyContact(contact)
	updated.Normalize()
	if err := r.s.checkRefs(updated); err != nil {
		return nil, err
	}
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()

	r.s.contacts[updated.ID] = updated
	return r.s.hydrateContact(updated), nil
}

// checkRefs must be called with the lock held.
func (s *store) checkRefs(c *model.Contact) error {
	for _, id := range c.OrganisationIDs {
		if _, ok := s.orgs[id]; !ok {
			return goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.FieldKey, "organisations"), goerr.V(model.OrgKey, id))
		}
	}
	for _, id := range c.ProgramIDs {
		if _, ok := s.programs[id]; !ok {
			return goerr.Wrap(model.ErrNotFound, "program not found", goerr.V(model.FieldKey, "programs"), goerr.V("program_id", id))
		}
	}
	return nil
}
