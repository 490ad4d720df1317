package interfaces

import (
	"context"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// OrganisationRepository stores partner or funding organisations.
type OrganisationRepository interface {
	// Search matches name and abbreviation.
	Search(ctx context.Context, q *model.Query) ([]*model.Organisation, error)

	// GetDetail returns the organisation with programs, contacts (and their
	// programs) and grants (and their primary contact). Unknown or malformed
	// IDs yield (nil, nil).
	GetDetail(ctx context.Context, id types.OrganisationID) (*model.Organisation, error)

	Create(ctx context.Context, org *model.Organisation) (*model.Organisation, error)
	List(ctx context.Context) ([]*model.Organisation, error)
}
