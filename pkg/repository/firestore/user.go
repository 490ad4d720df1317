package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userRepository struct {
	*base
}

func (r *userRepository) FindOrCreate(ctx context.Context, slackID, teamID string) (*model.User, error) {
	defer metrics.ObserveRepository(backendName, "user.find_or_create")()

	ref := r.collection(usersCollection).Doc(userDocID(slackID))
	var user userDoc
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			now := time.Now().UTC()
			user = userDoc{
				ID:        ref.ID,
				SlackID:   slackID,
				TeamID:    teamID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return tx.Create(ref, &user)
		}
		if err != nil {
			return goerr.Wrap(err, "failed to get user", goerr.V("slack_id", slackID))
		}
		return snap.DataTo(&user)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find or create user", goerr.V("slack_id", slackID))
	}
	return user.toModel(), nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	defer metrics.ObserveRepository(backendName, "user.list")()

	docs, err := listAll[userDoc](r.collection(usersCollection).Documents(ctx), usersCollection)
	if err != nil {
		return nil, err
	}
	users := make([]*model.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toModel())
	}
	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, slackID string, profile model.UserProfile) error {
	defer metrics.ObserveRepository(backendName, "user.update_profile")()

	_, err := r.collection(usersCollection).Doc(userDocID(slackID)).Update(ctx, []firestore.Update{
		{Path: "name", Value: profile.Name},
		{Path: "username", Value: profile.Username},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return goerr.Wrap(err, "failed to update user profile", goerr.V("slack_id", slackID))
	}
	return nil
}
