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

type contactRepository struct {
	db     *gorm.DB
	prefix string
}

// contactSearchColumns are matched against the term. Aliases c and o are the
// contact and organisation tables.
var contactSearchColumns = []string{
	"c.first_name",
	"c.last_name",
	"concat(c.first_name, ' ', c.last_name)",
	"o.name",
	"o.abbreviation",
}

func (r *contactRepository) Search(ctx context.Context, q *model.Query) ([]*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.search")()

	cond, args := q.SQLCondition(contactSearchColumns...)

	var ids []string
	err := r.db.WithContext(ctx).
		Table(r.prefix+"contacts AS c").
		Select("DISTINCT c.id").
		Joins("LEFT JOIN "+r.prefix+"contact_organisations co ON co.contact_id = c.id").
		Joins("LEFT JOIN "+r.prefix+"organisations o ON o.id = co.organisation_id").
		Where(cond, args...).
		Scan(&ids).Error
	if err != nil {
		return nil, wrapQueryError(err, "failed to search contacts", q)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []Contact
	if err := r.db.WithContext(ctx).
		Preload("Organisations").
		Preload("Programs").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to load contacts", goerr.V("count", len(ids)))
	}

	result := make([]*model.Contact, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}

func (r *contactRepository) Get(ctx context.Context, id types.ContactID) (*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.get")()

	if !isUUID(id.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, id))
	}

	var row Contact
	err := r.db.WithContext(ctx).
		Preload("Organisations").
		Preload("Programs").
		First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get contact", goerr.V(model.ContactKey, id))
	}
	return row.toModel(), nil
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

	row := contactRow(&c)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return goerr.Wrap(err, "failed to insert contact")
		}
		return replaceContactSets(tx, row, c.OrganisationIDs, c.ProgramIDs)
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, c.ID)
}

func (r *contactRepository) Update(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	defer metrics.ObserveRepository(backendName, "contact.update")()

	if err := contact.Validate(); err != nil {
		return nil, err
	}
	if !isUUID(contact.ID.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, contact.ID))
	}
	c := *contact
	c.Normalize()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Contact
		if err := tx.First(&existing, "id = ?", c.ID.String()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, c.ID))
			}
			return goerr.Wrap(err, "failed to load contact", goerr.V(model.ContactKey, c.ID))
		}

		row := contactRow(&c)
		row.CreatedAt = existing.CreatedAt
		if err := tx.Omit(clause.Associations).Save(row).Error; err != nil {
			return goerr.Wrap(err, "failed to update contact", goerr.V(model.ContactKey, c.ID))
		}
		return replaceContactSets(tx, row, c.OrganisationIDs, c.ProgramIDs)
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, c.ID)
}

func contactRow(c *model.Contact) *Contact {
	return &Contact{
		ID:        c.ID.String(),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Role:      c.Role,
		Notes:     c.Notes,
		Point:     c.Point,
	}
}

// replaceContactSets swaps the organisation and program join rows of row.
// Referenced records must exist.
func replaceContactSets(tx *gorm.DB, row *Contact, orgIDs []types.OrganisationID, programIDs []types.ProgramID) error {
	orgs, err := loadOrganisations(tx, orgIDs)
	if err != nil {
		return err
	}
	if err := replaceAssociation(tx, row, "Organisations", orgs, len(orgs)); err != nil {
		return goerr.Wrap(err, "failed to replace contact organisations", goerr.V(model.ContactKey, row.ID))
	}

	programs, err := loadPrograms(tx, programIDs)
	if err != nil {
		return err
	}
	if err := replaceAssociation(tx, row, "Programs", programs, len(programs)); err != nil {
		return goerr.Wrap(err, "failed to replace contact programs", goerr.V(model.ContactKey, row.ID))
	}
	return nil
}

func loadOrganisations(tx *gorm.DB, ids []types.OrganisationID) ([]Organisation, error) {
	orgs := []Organisation{}
	if len(ids) == 0 {
		return orgs, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if !isUUID(id.String()) {
			return nil, goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.FieldKey, "organisations"), goerr.V(model.OrgKey, id))
		}
		keys = append(keys, id.String())
	}

	if err := tx.Where("id IN ?", keys).Find(&orgs).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to load organisations")
	}
	if len(orgs) != len(keys) {
		return nil, goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.FieldKey, "organisations"), goerr.V("ids", keys))
	}
	return orgs, nil
}

func loadPrograms(tx *gorm.DB, ids []types.ProgramID) ([]ProgramArea, error) {
	programs := []ProgramArea{}
	if len(ids) == 0 {
		return programs, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if !isUUID(id.String()) {
			return nil, goerr.Wrap(model.ErrNotFound, "program not found", goerr.V(model.FieldKey, "programs"), goerr.V("program_id", id))
		}
		keys = append(keys, id.String())
	}

	if err := tx.Where("id IN ?", keys).Find(&programs).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to load programs")
	}
	if len(programs) != len(keys) {
		return nil, goerr.Wrap(model.ErrNotFound, "program not found", goerr.V(model.FieldKey, "programs"), goerr.V("ids", keys))
	}
	return programs, nil
}
