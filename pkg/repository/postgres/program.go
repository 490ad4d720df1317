package postgres

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type programRepository struct {
	db *gorm.DB
}

func (r *programRepository) List(ctx context.Context) ([]*model.ProgramArea, error) {
	defer metrics.ObserveRepository(backendName, "program.list")()

	var rows []ProgramArea
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list programs")
	}

	result := make([]*model.ProgramArea, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}

func (r *programRepository) Create(ctx context.Context, program *model.ProgramArea) (*model.ProgramArea, error) {
	defer metrics.ObserveRepository(backendName, "program.create")()

	if strings.TrimSpace(program.Name) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "program name is required", goerr.V(model.FieldKey, "name"))
	}

	id := program.ID
	if id == "" {
		id = types.NewProgramID()
	}
	row := &ProgramArea{ID: id.String(), Name: program.Name, Notes: program.Notes}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert program", goerr.V("name", program.Name))
	}
	return row.toModel(), nil
}

type grantRepository struct {
	db *gorm.DB
}

func (r *grantRepository) Create(ctx context.Context, grant *model.Grant) (*model.Grant, error) {
	defer metrics.ObserveRepository(backendName, "grant.create")()

	if !isUUID(grant.OrganisationID.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.OrgKey, grant.OrganisationID))
	}

	id := grant.ID
	if id == "" {
		id = types.NewGrantID()
	}
	row := &Grant{
		ID:             id.String(),
		OrganisationID: grant.OrganisationID.String(),
		Proposal:       grant.Proposal,
		ProjectCode:    grant.ProjectCode,
		Amount:         grant.Amount,
		PlannedAmount:  grant.PlannedAmount,
		Currency:       grant.Currency,
		Status:         grant.Status,
		StartedAt:      grant.StartedAt,
		URL:            grant.URL,
		Notes:          grant.Notes,
	}
	if grant.ContactID != "" {
		cid := grant.ContactID.String()
		row.ContactID = &cid
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Organisation{}).Where("id = ?", row.OrganisationID).Count(&count).Error; err != nil {
			return goerr.Wrap(err, "failed to check organisation", goerr.V(model.OrgKey, grant.OrganisationID))
		}
		if count == 0 {
			return goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.OrgKey, grant.OrganisationID))
		}
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return goerr.Wrap(err, "failed to insert grant", goerr.V("proposal", grant.Proposal))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

type adminRepository struct {
	db *gorm.DB
}

func (r *adminRepository) HasPermission(ctx context.Context, username string) (bool, error) {
	defer metrics.ObserveRepository(backendName, "admin.has_permission")()

	var count int64
	if err := r.db.WithContext(ctx).Model(&Admin{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, goerr.Wrap(err, "failed to check admin", goerr.V("username", username))
	}
	return count > 0, nil
}

func (r *adminRepository) Add(ctx context.Context, username string) error {
	defer metrics.ObserveRepository(backendName, "admin.add")()

	if strings.TrimSpace(username) == "" {
		return goerr.Wrap(model.ErrValidation, "admin username is required", goerr.V(model.FieldKey, "username"))
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Admin{Username: username}).Error; err != nil {
		return goerr.Wrap(err, "failed to add admin", goerr.V("username", username))
	}
	return nil
}
