package postgres

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type organisationRepository struct {
	db *gorm.DB
}

func (r *organisationRepository) Search(ctx context.Context, q *model.Query) ([]*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.search")()

	cond, args := q.SQLCondition("name", "abbreviation")

	var rows []Organisation
	if err := r.db.WithContext(ctx).Where(cond, args...).Find(&rows).Error; err != nil {
		return nil, wrapQueryError(err, "failed to search organisations", q)
	}

	result := make([]*model.Organisation, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}

func (r *organisationRepository) GetDetail(ctx context.Context, id types.OrganisationID) (*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.detail")()

	if !isUUID(id.String()) {
		return nil, nil
	}

	var row Organisation
	err := r.db.WithContext(ctx).
		Preload("Programs").
		Preload("Contacts.Programs").
		Preload("Grants.Contact").
		First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organisation detail", goerr.V(model.OrgKey, id))
	}

	org := row.toModel()
	org.Contacts = make([]*model.Contact, 0, len(row.Contacts))
	for i := range row.Contacts {
		org.Contacts = append(org.Contacts, row.Contacts[i].toModel())
	}
	org.Grants = make([]*model.Grant, 0, len(row.Grants))
	for i := range row.Grants {
		org.Grants = append(org.Grants, row.Grants[i].toModel())
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
	if o.ID == "" {
		o.ID = types.NewOrganisationID()
	}

	row := &Organisation{
		ID:                          o.ID.String(),
		Name:                        o.Name,
		LegalName:                   o.LegalName,
		Abbreviation:                o.Abbreviation,
		Website:                     o.Website,
		Notes:                       o.Notes,
		CurrentOrFutureGrantee:      o.CurrentOrFutureGrantee,
		PreviousGrants:              o.PreviousGrants,
		GrantsApproved:              o.GrantsApproved,
		GrantsDistributed:           o.GrantsDistributed,
		GrantsInProcess:             o.GrantsInProcess,
		FutureGrantsInConsideration: o.FutureGrantsInConsideration,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return goerr.Wrap(err, "failed to insert organisation")
		}
		programs, err := loadPrograms(tx, o.ProgramIDs)
		if err != nil {
			return err
		}
		if err := replaceAssociation(tx, row, "Programs", programs, len(programs)); err != nil {
			return goerr.Wrap(err, "failed to set organisation programs", goerr.V(model.OrgKey, o.ID))
		}
		row.Programs = programs
		return nil
	})
	if err != nil {
		return nil, err
	}

	return row.toModel(), nil
}

func (r *organisationRepository) List(ctx context.Context) ([]*model.Organisation, error) {
	defer metrics.ObserveRepository(backendName, "organisation.list")()

	var rows []Organisation
	if err := r.db.WithContext(ctx).Preload("Programs").Order("name").Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list organisations")
	}

	result := make([]*model.Organisation, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}
