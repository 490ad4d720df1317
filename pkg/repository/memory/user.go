package memory

import (
	"context"
	"time"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

type userRepository struct {
	s *store
}

func (r *userRepository) FindOrCreate(ctx context.Context, slackID, teamID string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u := *r.s.findOrCreateUser(slackID, teamID)
	return &u, nil
}

// findOrCreateUser must be called with the write lock held.
func (s *store) findOrCreateUser(slackID, teamID string) *model.User {
	if id, ok := s.userBySlack[slackID]; ok {
		return s.users[id]
	}

	now := time.Now()
	u := &model.User{
		ID:        types.NewUserID(),
		SlackID:   slackID,
		TeamID:    teamID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	s.userBySlack[slackID] = u.ID
	return u
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		userCopy := *u
		users = append(users, &userCopy)
	}
	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, slackID string, profile model.UserProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.userBySlack[slackID]
	if !ok {
		return nil
	}
	u := r.s.users[id]
	u.Name = profile.Name
	u.Username = profile.Username
	u.UpdatedAt = time.Now()
	return nil
}
