package interfaces

import (
	"context"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
)

// UserRepository stores the Slack users who recorded messages.
type UserRepository interface {
	// FindOrCreate returns the user for slackID, creating it on first use.
	FindOrCreate(ctx context.Context, slackID, teamID string) (*model.User, error)

	List(ctx context.Context) ([]*model.User, error)

	// UpdateProfile refreshes name and username. Unknown slackIDs are
	// ignored.
	UpdateProfile(ctx context.Context, slackID string, profile model.UserProfile) error
}
