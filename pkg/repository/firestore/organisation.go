package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type organisationRepository struct {
	*base
}

func (r *organisationRepository) Search(ctx context.Context, q *model.Query) ([]*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.search")()

	if err := q.ValidPattern(); err != nil {
		return nil, err
	}

	docs, err := listAll[organisationDoc](r.collection(organisationsCollection).Documents(ctx), organisationsCollection)
	if err != nil {
		return nil, err
	}

	var result []*model.Organisation
	for _, d := range docs {
		o := d.toModel()
		if q.MatchOrganisation(o) {
			result = append(result, o)
		}
	}
	return result, nil
}

func (r *organisationRepository) GetDetail(ctx context.Context, id types.OrganisationID) (*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.detail")()

	if !validDocID(id.String()) {
		return nil, nil
	}

	snap, err := r.collection(organisationsCollection).Doc(id.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organisation", goerr.V(model.OrgKey, id))
	}
	var doc organisationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode organisation", goerr.V(model.OrgKey, id))
	}
	org := doc.toModel()

	// Programs, staff and grants are independent reads.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		programs, err := getAll[programDoc](egCtx, r.base, programsCollection, doc.ProgramIDs)
		if err != nil {
			return err
		}
		org.Programs = make([]*model.ProgramArea, 0, len(programs))
		for _, pid := range doc.ProgramIDs {
			if p, ok := programs[pid]; ok {
				org.Programs = append(org.Programs, p.toModel())
			}
		}
		return nil
	})
	eg.Go(func() error {
		contactDocs, err := listAll[contactDoc](
			r.collection(contactsCollection).Where("organisation_ids", "array-contains", id.String()).Documents(egCtx),
			contactsCollection)
		if err != nil {
			return err
		}
		org.Contacts, err = r.hydrateContacts(egCtx, contactDocs)
		return err
	})
	eg.Go(func() error {
		grants, err := r.organisationGrants(egCtx, id)
		if err != nil {
			return err
		}
		org.Grants = grants
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return org, nil
}

func (r *organisationRepository) organisationGrants(ctx context.Context, id types.OrganisationID) ([]*model.Grant, error) {
	grantDocs, err := listAll[grantDoc](
		r.collection(grantsCollection).Where("organisation_id", "==", id.String()).OrderBy("started_at", firestore.Asc).Documents(ctx),
		grantsCollection)
	if err != nil {
		return nil, err
	}

	var contactIDs []string
	for _, g := range grantDocs {
		if g.ContactID != "" {
			contactIDs = append(contactIDs, g.ContactID)
		}
	}
	contacts, err := getAll[contactDoc](ctx, r.base, contactsCollection, uniqStrings(contactIDs))
	if err != nil {
		return nil, err
	}

	grants := make([]*model.Grant, 0, len(grantDocs))
	for _, g := range grantDocs {
		grant := g.toModel()
		if c, ok := contacts[g.ContactID]; ok {
			grant.Contact = c.toModel()
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

func (r *organisationRepository) Create(ctx context.Context, org *model.Organisation) (*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.create")()

	if err := org.Validate(); err != nil {
		return nil, err
	}
	o := *org
	o.Normalize()
	if o.ID == "" {
		o.ID = types.NewOrganisationID()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	programs, err := getAll[programDoc](ctx, r.base, programsCollection, toStrings(o.ProgramIDs))
	if err != nil {
		return nil, err
	}
	if len(programs) != len(o.ProgramIDs) {
		return nil, goerr.Wrap(model.ErrNotFound, "program not found", goerr.V(model.FieldKey, "programs"), goerr.V("ids", o.ProgramIDs))
	}

	if _, err := r.collection(organisationsCollection).Doc(o.ID.String()).Create(ctx, toOrganisationDoc(&o)); err != nil {
		return nil, goerr.Wrap(err, "failed to create organisation", goerr.V(model.OrgKey, o.ID))
	}

	created := toOrganisationDoc(&o).toModel()
	for _, pid := range o.ProgramIDs {
		created.Programs = append(created.Programs, programs[pid.String()].toModel())
	}
	return created, nil
}

func (r *organisationRepository) List(ctx context.Context) ([]*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.list")()

	docs, err := listAll[organisationDoc](r.collection(organisationsCollection).Documents(ctx), organisationsCollection)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Organisation, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toModel())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
