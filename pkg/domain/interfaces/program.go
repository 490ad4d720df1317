package interfaces

import (
	"context"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
)

type ProgramRepository interface {
	List(ctx context.Context) ([]*model.ProgramArea, error)
	Create(ctx context.Context, program *model.ProgramArea) (*model.ProgramArea, error)
}

// GrantRepository is write-only from the bot's perspective: grants are read
// through OrganisationRepository.GetDetail.
type GrantRepository interface {
	Create(ctx context.Context, grant *model.Grant) (*model.Grant, error)
}

// AdminRepository holds the Slack usernames allowed to use the funder
// commands.
type AdminRepository interface {
	HasPermission(ctx context.Context, username string) (bool, error)
	Add(ctx context.Context, username string) error
}
