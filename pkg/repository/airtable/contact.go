package airtable

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	airtablesvc "github.com/secmon-lab/contactbook/pkg/service/airtable"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
)

type contactRepository struct {
	base *base
}

// Search matches the contact display formula, which carries the name and
// the organisation names, by case-insensitive substring.
func (r *contactRepository) Search(ctx context.Context, q *model.Query) ([]*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.search")()

	t := r.base.schema.Contacts
	records, err := r.base.client.List(ctx, t.Table, airtablesvc.ListParams{
		View:    r.base.schema.View,
		Fields:  r.base.contactFields(),
		Formula: airtablesvc.ContainsFold(t.Display, q.Term()),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search contacts", goerr.V(model.QueryKey, q.Term()))
	}

	contacts := make([]*model.Contact, 0, len(records))
	for _, rec := range records {
		contacts = append(contacts, r.base.contactFromRecord(rec))
	}
	if err := r.base.hydrateContacts(ctx, contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) Get(ctx context.Context, id types.ContactID) (*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.get")()

	if !validRecordID(id.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, id))
	}

	rec, err := r.base.client.Get(ctx, r.base.schema.Contacts.Table, id.String())
	if err != nil {
		return nil, wrapNotFound(err, "failed to get contact", goerr.V(model.ContactKey, id))
	}

	c := r.base.contactFromRecord(rec)
	if err := r.base.hydrateContacts(ctx, []*model.Contact{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *contactRepository) Create(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.create")()

	if err := contact.Validate(); err != nil {
		return nil, err
	}
	c := *contact
	c.Normalize()

	rec, err := r.base.client.Create(ctx, r.base.schema.Contacts.Table, r.base.contactWriteFields(&c))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create contact")
	}

	created := r.base.contactFromRecord(rec)
	if err := r.base.hydrateContacts(ctx, []*model.Contact{created}); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *contactRepository) Update(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.update")()

	if err := contact.Validate(); err != nil {
		return nil, err
	}
	if !validRecordID(contact.ID.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, contact.ID))
	}
	c := *contact
	c.Normalize()

	rec, err := r.base.client.Update(ctx, r.base.schema.Contacts.Table, c.ID.String(), r.base.contactWriteFields(&c))
	if err != nil {
		return nil, wrapNotFound(err, "failed to update contact", goerr.V(model.ContactKey, c.ID))
	}

	updated := r.base.contactFromRecord(rec)
	if err := r.base.hydrateContacts(ctx, []*model.Contact{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (b *base) contactFields() []string {
	t := b.schema.Contacts
	return fieldList(t.Display, t.FirstName, t.LastName, t.Email, t.Phone, t.Role, t.Notes, t.Organisations, t.Programs)
}

func (b *base) contactFromRecord(rec *airtablesvc.Record) *model.Contact {
	t := b.schema.Contacts
	c := &model.Contact{
		ID:        types.ContactID(rec.ID),
		FirstName: text(rec, t.FirstName),
		LastName:  text(rec, t.LastName),
		Email:     text(rec, t.Email),
		Phone:     text(rec, t.Phone),
		Role:      text(rec, t.Role),
		Notes:     text(rec, t.Notes),
		CreatedAt: rec.CreatedTime,
		UpdatedAt: rec.CreatedTime,
	}
	if t.Organisations != "" {
		c.OrganisationIDs = typedIDs[types.OrganisationID](rec.Strings(t.Organisations))
	}
	if t.Programs != "" {
		c.ProgramIDs = typedIDs[types.ProgramID](rec.Strings(t.Programs))
	}
	if b.schema.ContactURL != "" {
		c.ProfileURL = b.schema.ContactURL + rec.ID
	}
	return c
}

// contactWriteFields always sends the link fields so an update replaces
// the sets, including clearing them.
func (b *base) contactWriteFields(c *model.Contact) map[string]any {
	t := b.schema.Contacts
	fields := map[string]any{}
	setField(fields, t.FirstName, c.FirstName)
	setField(fields, t.LastName, c.LastName)
	setField(fields, t.Email, c.Email)
	setField(fields, t.Phone, c.Phone)
	setField(fields, t.Role, c.Role)
	setField(fields, t.Notes, c.Notes)
	setField(fields, t.Organisations, stringIDs(c.OrganisationIDs))
	setField(fields, t.Programs, stringIDs(c.ProgramIDs))
	return fields
}

// hydrateContacts resolves the organisations and programs of contacts with
// one lookup per table.
func (b *base) hydrateContacts(ctx context.Context, contacts []*model.Contact) error {
	var orgIDs []types.OrganisationID
	var programIDs []types.ProgramID
	for _, c := range contacts {
		orgIDs = append(orgIDs, c.OrganisationIDs...)
		programIDs = append(programIDs, c.ProgramIDs...)
	}

	orgs := map[types.OrganisationID]*model.Organisation{}
	if len(orgIDs) > 0 {
		t := b.schema.Organisations
		records, err := b.fetchByIDs(ctx, t.Table, b.organisationSummaryFields(), stringIDs(orgIDs))
		if err != nil {
			return err
		}
		for _, rec := range records {
			o := b.organisationFromRecord(rec)
			orgs[o.ID] = o
		}
	}

	programs := map[types.ProgramID]*model.ProgramArea{}
	if len(programIDs) > 0 && b.schema.Programs.Table != "" {
		records, err := b.fetchByIDs(ctx, b.schema.Programs.Table, b.programFields(), stringIDs(programIDs))
		if err != nil {
			return err
		}
		for _, rec := range records {
			p := b.programFromRecord(rec)
			programs[p.ID] = p
		}
	}

	for _, c := range contacts {
		c.Organisations = nil
		for _, id := range c.OrganisationIDs {
			if o, ok := orgs[id]; ok {
				c.Organisations = append(c.Organisations, o)
			}
		}
		c.Programs = nil
		for _, id := range c.ProgramIDs {
			if p, ok := programs[id]; ok {
				c.Programs = append(c.Programs, p)
			}
		}
	}
	return nil
}
