package postgres

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) FindOrCreate(ctx context.Context, slackID, teamID string) (*model.User, error) {
	defer metrics.ObserveRepository(backendName, "user.find_or_create")()

	user, err := findOrCreateUser(r.db.WithContext(ctx), slackID, teamID)
	if err != nil {
		return nil, err
	}
	return user.toModel(), nil
}

func findOrCreateUser(tx *gorm.DB, slackID, teamID string) (*User, error) {
	row := &User{
		ID:      types.NewUserID().String(),
		SlackID: slackID,
		TeamID:  teamID,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slack_id"}},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to insert user", goerr.V("slack_id", slackID))
	}

	var user User
	if err := tx.Where("slack_id = ?", slackID).First(&user).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to read user", goerr.V("slack_id", slackID))
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	defer metrics.ObserveRepository(backendName, "user.list")()

	var rows []User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toModel())
	}
	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, slackID string, profile model.UserProfile) error {
	defer metrics.ObserveRepository(backendName, "user.update_profile")()

	err := r.db.WithContext(ctx).Model(&User{}).
		Where("slack_id = ?", slackID).
		Updates(map[string]any{
			"name":       profile.Name,
			"username":   profile.Username,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return goerr.Wrap(err, "failed to update user profile", goerr.V("slack_id", slackID))
	}
	return nil
}
