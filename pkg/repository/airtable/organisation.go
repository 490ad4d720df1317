package airtable

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	airtablesvc "github.com/secmon-lab/contactbook/pkg/service/airtable"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
)

type organisationRepository struct {
	base *base
}

func (r *organisationRepository) Search(ctx context.Context, q *model.Query) ([]*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.search")()

	t := r.base.schema.Organisations
	records, err := r.base.client.List(ctx, t.Table, airtablesvc.ListParams{
		View:    r.base.schema.View,
		Fields:  r.base.organisationSummaryFields(),
		Formula: airtablesvc.ContainsFold(t.Display, q.Term()),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search organisations", goerr.V(model.QueryKey, q.Term()))
	}

	orgs := make([]*model.Organisation, 0, len(records))
	for _, rec := range records {
		orgs = append(orgs, r.base.organisationFromRecord(rec))
	}
	return orgs, nil
}

// GetDetail reads the packed contact, program and grant rollups of the
// organisation record. A single list request is enough.
func (r *organisationRepository) GetDetail(ctx context.Context, id types.OrganisationID) (*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.detail")()

	if !validRecordID(id.String()) {
		return nil, nil
	}

	t := r.base.schema.Organisations
	records, err := r.base.client.List(ctx, t.Table, airtablesvc.ListParams{
		View:       r.base.schema.View,
		Fields:     r.base.organisationDetailFields(),
		Formula:    airtablesvc.RecordIDIn([]string{id.String()}),
		MaxRecords: 1,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organisation", goerr.V(model.OrgKey, id))
	}
	if len(records) == 0 {
		return nil, nil
	}
	rec := records[0]
	org := r.base.organisationFromRecord(rec)

	for _, info := range rec.Strings(t.ContactInfo) {
		if c := parseContactInfo(info); c != nil {
			c.OrganisationIDs = []types.OrganisationID{org.ID}
			if r.base.schema.ContactURL != "" && c.ID != "" {
				c.ProfileURL = r.base.schema.ContactURL + c.ID.String()
			}
			org.Contacts = append(org.Contacts, c)
		}
	}

	for _, name := range rec.Strings(t.ProgramDisplay) {
		org.Programs = append(org.Programs, &model.ProgramArea{Name: name})
	}

	return org, nil
}

func (r *organisationRepository) Create(ctx context.Context, org *model.Organisation) (*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.create")()

	if err := org.Validate(); err != nil {
		return nil, err
	}
	o := *org
	o.Normalize()

	t := r.base.schema.Organisations
	fields := map[string]any{}
	setField(fields, t.Name, o.Name)
	setField(fields, t.LegalName, o.LegalName)
	setField(fields, t.Abbreviation, o.Abbreviation)
	setField(fields, t.Website, o.Website)
	setField(fields, t.Notes, o.Notes)
	setField(fields, t.Grantee, o.CurrentOrFutureGrantee)
	if len(o.ProgramIDs) > 0 {
		setField(fields, t.Programs, stringIDs(o.ProgramIDs))
	}

	rec, err := r.base.client.Create(ctx, t.Table, fields)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create organisation")
	}
	return r.base.organisationFromRecord(rec), nil
}

func (r *organisationRepository) List(ctx context.Context) ([]*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.list")()

	t := r.base.schema.Organisations
	records, err := r.base.client.List(ctx, t.Table, airtablesvc.ListParams{
		View:   r.base.schema.View,
		Fields: r.base.organisationSummaryFields(),
		Sort:   []airtablesvc.Sort{{Field: t.Name, Direction: "asc"}},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list organisations")
	}

	orgs := make([]*model.Organisation, 0, len(records))
	for _, rec := range records {
		orgs = append(orgs, r.base.organisationFromRecord(rec))
	}
	return orgs, nil
}

func (b *base) organisationSummaryFields() []string {
	t := b.schema.Organisations
	return fieldList(t.Display, t.Name, t.Abbreviation, t.Grantee, t.GrantInfo)
}

func (b *base) organisationDetailFields() []string {
	t := b.schema.Organisations
	return fieldList(t.Display, t.Name, t.LegalName, t.Abbreviation, t.Website, t.Notes,
		t.Grantee, t.Programs, t.ContactInfo, t.ProgramDisplay, t.GrantInfo)
}

// organisationFromRecord also decodes the grant rollup so the grant emoji
// of DisplayName reflect the base.
func (b *base) organisationFromRecord(rec *airtablesvc.Record) *model.Organisation {
	t := b.schema.Organisations
	o := &model.Organisation{
		ID:           types.OrganisationID(rec.ID),
		Name:         text(rec, t.Name),
		LegalName:    text(rec, t.LegalName),
		Abbreviation: text(rec, t.Abbreviation),
		Website:      text(rec, t.Website),
		Notes:        text(rec, t.Notes),
		CreatedAt:    rec.CreatedTime,
		UpdatedAt:    rec.CreatedTime,
	}
	if o.Name == "" {
		o.Name = text(rec, t.Display)
	}
	if t.Grantee != "" {
		o.CurrentOrFutureGrantee = rec.Field(t.Grantee).Bool()
	}
	if t.Programs != "" {
		o.ProgramIDs = typedIDs[types.ProgramID](rec.Strings(t.Programs))
	}
	if b.schema.OrganisationURL != "" {
		o.ProfileURL = b.schema.OrganisationURL + rec.ID
	}

	now := time.Now()
	for _, info := range rec.Strings(t.GrantInfo) {
		g := parseGrantInfo(o.ID, info)
		if g == nil {
			continue
		}
		o.Grants = append(o.Grants, g)
		if g.IsFuture(now) {
			o.FutureGrantsInConsideration = true
		} else {
			o.PreviousGrants = true
		}
	}
	return o
}
