package airtable

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	airtablesvc "github.com/secmon-lab/contactbook/pkg/service/airtable"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
)

type programRepository struct {
	base *base
}

// List returns nothing for bases without a program table.
func (r *programRepository) List(ctx context.Context) ([]*model.ProgramArea, error) {
	defer metrics.ObserveRepository(backendName, "program.list")()

	t := r.base.schema.Programs
	if t.Table == "" {
		return nil, nil
	}

	records, err := r.base.client.List(ctx, t.Table, airtablesvc.ListParams{
		View:   r.base.schema.View,
		Fields: r.base.programFields(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list programs")
	}

	programs := make([]*model.ProgramArea, 0, len(records))
	for _, rec := range records {
		programs = append(programs, r.base.programFromRecord(rec))
	}
	return programs, nil
}

func (r *programRepository) Create(ctx context.Context, program *model.ProgramArea) (*model.ProgramArea, error) {
	defer metrics.ObserveRepository(backendName, "program.create")()

	t := r.base.schema.Programs
	if t.Table == "" || t.Name == "" {
		return nil, goerr.Wrap(ErrUnsupported, "base has no program table")
	}
	if strings.TrimSpace(program.Name) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "program name is required", goerr.V(model.FieldKey, "name"))
	}

	rec, err := r.base.client.Create(ctx, t.Table, map[string]any{t.Name: program.Name})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create program")
	}
	return r.base.programFromRecord(rec), nil
}

func (b *base) programFields() []string {
	return fieldList(b.schema.Programs.Display, b.schema.Programs.Name)
}

func (b *base) programFromRecord(rec *airtablesvc.Record) *model.ProgramArea {
	p := &model.ProgramArea{
		ID:   types.ProgramID(rec.ID),
		Name: text(rec, b.schema.Programs.Name),
	}
	if p.Name == "" {
		p.Name = text(rec, b.schema.Programs.Display)
	}
	return p
}

type grantRepository struct{}

func (r *grantRepository) Create(ctx context.Context, grant *model.Grant) (*model.Grant, error) {
	return nil, goerr.Wrap(ErrUnsupported, "grants are maintained in the grant tracker",
		goerr.V(model.OrgKey, grant.OrganisationID))
}

type adminRepository struct {
	base *base
}

// HasPermission is false for bases without an admin table.
func (r *adminRepository) HasPermission(ctx context.Context, username string) (bool, error) {
	defer metrics.ObserveRepository(backendName, "admin.has_permission")()

	t := r.base.schema.Admins
	if t.Table == "" || username == "" {
		return false, nil
	}

	records, err := r.base.client.List(ctx, t.Table, airtablesvc.ListParams{
		View:       r.base.schema.View,
		Fields:     []string{t.Username},
		Formula:    airtablesvc.Equals(t.Username, username),
		MaxRecords: 1,
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to check permission", goerr.V("username", username))
	}
	return len(records) > 0, nil
}

func (r *adminRepository) Add(ctx context.Context, username string) error {
	t := r.base.schema.Admins
	if t.Table == "" {
		return goerr.Wrap(ErrUnsupported, "base has no admin table")
	}
	exists, err := r.HasPermission(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := r.base.client.Create(ctx, t.Table, map[string]any{t.Username: username}); err != nil {
		return goerr.Wrap(err, "failed to add admin", goerr.V("username", username))
	}
	return nil
}
