package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type contactRepository struct {
	*base
}

func (r *contactRepository) Search(ctx context.Context, q *model.Query) ([]*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.search")()

	if err := q.ValidPattern(); err != nil {
		return nil, err
	}

	docs, err := listAll[contactDoc](r.collection(contactsCollection).Documents(ctx), contactsCollection)
	if err != nil {
		return nil, err
	}
	contacts, err := r.hydrateContacts(ctx, docs)
	if err != nil {
		return nil, err
	}

	var result []*model.Contact
	for _, c := range contacts {
		if q.MatchContact(c) {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *contactRepository) Get(ctx context.Context, id types.ContactID) (*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.get")()

	if !validDocID(id.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, id))
	}

	snap, err := r.collection(contactsCollection).Doc(id.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get contact", goerr.V(model.ContactKey, id))
	}

	var doc contactDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode contact", goerr.V(model.ContactKey, id))
	}
	contacts, err := r.hydrateContacts(ctx, []*contactDoc{&doc})
	if err != nil {
		return nil, err
	}
	return contacts[0], nil
}

func (r *contactRepository) Create(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.create")()

	if err := contact.Validate(); err != nil {
		return nil, err
	}
	c := *contact
	c.Normalize()
	if c.ID == "" {
		c.ID = types.NewContactID()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := r.checkRefs(ctx, c.OrganisationIDs, c.ProgramIDs); err != nil {
		return nil, err
	}

	if _, err := r.collection(contactsCollection).Doc(c.ID.String()).Create(ctx, toContactDoc(&c)); err != nil {
		return nil, goerr.Wrap(err, "failed to create contact", goerr.V(model.ContactKey, c.ID))
	}
	return r.Get(ctx, c.ID)
}

func (r *contactRepository) Update(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.update")()

	if err := contact.Validate(); err != nil {
		return nil, err
	}
	if !validDocID(contact.ID.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, contact.ID))
	}
	c := *contact
	c.Normalize()

	if err := r.checkRefs(ctx, c.OrganisationIDs, c.ProgramIDs); err != nil {
		return nil, err
	}

	ref := r.collection(contactsCollection).Doc(c.ID.String())
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, c.ID))
		}
		if err != nil {
			return goerr.Wrap(err, "failed to get contact", goerr.V(model.ContactKey, c.ID))
		}
		var existing contactDoc
		if err := snap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode contact", goerr.V(model.ContactKey, c.ID))
		}

		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = time.Now().UTC()
		// Set overwrites the arrays, replacing the previous sets.
		return tx.Set(ref, toContactDoc(&c))
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, c.ID)
}

func (r *contactRepository) checkRefs(ctx context.Context, orgIDs []types.OrganisationID, programIDs []types.ProgramID) error {
	orgs, err := getAll[organisationDoc](ctx, r.base, organisationsCollection, toStrings(orgIDs))
	if err != nil {
		return err
	}
	if len(orgs) != len(orgIDs) {
		return goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.FieldKey, "organisations"), goerr.V("ids", orgIDs))
	}

	programs, err := getAll[programDoc](ctx, r.base, programsCollection, toStrings(programIDs))
	if err != nil {
		return err
	}
	if len(programs) != len(programIDs) {
		return goerr.Wrap(model.ErrNotFound, "program not found", goerr.V(model.FieldKey, "programs"), goerr.V("ids", programIDs))
	}
	return nil
}

// hydrateContacts resolves organisations and programs of docs.
func (b *base) hydrateContacts(ctx context.Context, docs []*contactDoc) ([]*model.Contact, error) {
	var orgIDs, programIDs []string
	for _, d := range docs {
		orgIDs = append(orgIDs, d.OrganisationIDs...)
		programIDs = append(programIDs, d.ProgramIDs...)
	}

	orgs, err := getAll[organisationDoc](ctx, b, organisationsCollection, uniqStrings(orgIDs))
	if err != nil {
		return nil, err
	}
	programs, err := getAll[programDoc](ctx, b, programsCollection, uniqStrings(programIDs))
	if err != nil {
		return nil, err
	}

	result := make([]*model.Contact, 0, len(docs))
	for _, d := range docs {
		c := d.toModel()
		c.Organisations = make([]*model.Organisation, 0, len(d.OrganisationIDs))
		for _, id := range d.OrganisationIDs {
			if o, ok := orgs[id]; ok {
				c.Organisations = append(c.Organisations, o.toModel())
			}
		}
		c.Programs = make([]*model.ProgramArea, 0, len(d.ProgramIDs))
		for _, id := range d.ProgramIDs {
			if p, ok := programs[id]; ok {
				c.Programs = append(c.Programs, p.toModel())
			}
		}
		result = append(result, c)
	}
	return result, nil
}

func uniqStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
