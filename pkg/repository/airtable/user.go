package airtable

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// The base has no users table: messages carry the author's Slack ID only.
// Users are therefore kept in process, with IDs derived from the Slack ID so
// they agree across restarts.
type userCache struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newUserCache() *userCache {
	return &userCache{users: map[string]*model.User{}}
}

func syntheticUserID(slackID string) types.UserID {
	return types.UserID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("slack:"+slackID)).String())
}

func (c *userCache) findOrCreate(slackID, teamID string) (*model.User, error) {
	if slackID == "" {
		return nil, goerr.Wrap(model.ErrValidation, "slack ID is required", goerr.V(model.FieldKey, "slack_id"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if u, ok := c.users[slackID]; ok {
		copied := *u
		return &copied, nil
	}

	now := time.Now().UTC()
	u := &model.User{
		ID:        syntheticUserID(slackID),
		SlackID:   slackID,
		TeamID:    teamID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.users[slackID] = u
	copied := *u
	return &copied, nil
}

type userRepository struct {
	base *base
}

func (r *userRepository) FindOrCreate(ctx context.Context, slackID, teamID string) (*model.User, error) {
	return r.base.users.findOrCreate(slackID, teamID)
}

// List returns the users seen by this process.
func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	c := r.base.users
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*model.User, 0, len(c.users))
	for _, u := range c.users {
		copied := *u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlackID < out[j].SlackID })
	return out, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, slackID string, profile model.UserProfile) error {
	c := r.base.users
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.users[slackID]
	if !ok {
		return nil
	}
	u.Name = profile.Name
	u.Username = profile.Username
	u.UpdatedAt = time.Now().UTC()
	return nil
}
