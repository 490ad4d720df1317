package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

type organisationRepository struct {
	s *store
}

func (r *organisationRepository) Search(ctx context.Context, q *model.Query) ([]*model.Organisation, error) {
	if err := q.ValidPattern(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*model.Organisation
	for _, o := range r.s.orgs {
		if q.MatchOrganisation(o) {
			result = append(result, copyOrganisation(o))
		}
	}
	return result, nil
}

func (r *organisationRepository) GetDetail(ctx context.Context, id types.OrganisationID) (*model.Organisation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orgs[id]
	if !ok {
		return nil, nil
	}

	detail := copyOrganisation(o)
	detail.Programs = make([]*model.ProgramArea, 0, len(o.ProgramIDs))
	for _, pid := range o.ProgramIDs {
		if p, ok := r.s.programs[pid]; ok {
			detail.Programs = append(detail.Programs, copyProgram(p))
		}
	}

	detail.Contacts = []*model.Contact{}
	for _, c := range r.s.contacts {
		if slices.Contains(c.OrganisationIDs, id) {
			detail.Contacts = append(detail.Contacts, r.s.hydrateContact(c))
		}
	}

	detail.Grants = []*model.Grant{}
	for _, g := range r.s.grants {
		if g.OrganisationID != id {
			continue
		}
		grant := *g
		if c, ok := r.s.contacts[g.ContactID]; ok {
			grant.Contact = copyContact(c)
		}
		detail.Grants = append(detail.Grants, &grant)
	}

	return detail, nil
}

func (r *organisationRepository) Create(ctx context.Context, org *model.Organisation) (*model.Organisation, error) {
	if err := org.Validate(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	created := copyOrganisation(org)
	created.Normalize()
	if created.ID == "" {
		created.ID = types.NewOrganisationID()
	}
	now := time.Now()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.s.orgs[created.ID] = created
	return copyOrganisation(created), nil
}

func (r *organisationRepository) List(ctx context.Context) ([]*model.Organisation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*model.Organisation, 0, len(r.s.orgs))
	for _, o := range r.s.orgs {
		result = append(result, copyOrganisation(o))
	}
	slices.SortFunc(result, func(a, b *model.Organisation) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}
