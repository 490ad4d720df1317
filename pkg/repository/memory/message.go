package memory

import (
	"context"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

type messageRepository struct {
	s *store
}

func (r *messageRepository) Search(ctx context.Context, q *model.Query) ([]*model.Message, error) {
	if err := q.ValidPattern(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*model.Message
	for _, m := range r.s.messages {
		hydrated := r.s.hydrateMessage(m)
		if q.MatchMessage(hydrated) {
			result = append(result, hydrated)
		}
	}

	slices.SortFunc(result, func(a, b *model.Message) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

func (r *messageRepository) Get(ctx context.Context, id types.MessageID) (*model.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}
	return r.s.hydrateMessage(m), nil
}

func (r *messageRepository) Upsert(ctx context.Context, input model.MessageInput) (*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user := r.s.findOrCreateUser(input.AuthorSlackID, input.TeamID)

	key := messageKey{channelID: input.ChannelID, ts: input.TS}
	if id, ok := r.s.messageByKey[key]; ok {
		return r.s.hydrateMessage(r.s.messages[id]), nil
	}

	now := time.Now()
	msg := &model.Message{
		ID:            types.NewMessageID(),
		ChannelID:     input.ChannelID,
		TS:            input.TS,
		Text:          input.Text,
		AuthorSlackID: input.AuthorSlackID,
		UserID:        user.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.s.messages[msg.ID] = msg
	r.s.messageByKey[key] = msg.ID

	return r.s.hydrateMessage(msg), nil
}

func (r *messageRepository) SetContacts(ctx context.Context, id types.MessageID, ids []types.ContactID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	msg, ok := r.s.messages[id]
	if !ok {
		return goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}

	set := make([]types.ContactID, 0, len(ids))
	for _, cid := range ids {
		if slices.Contains(set, cid) {
			continue
		}
		if _, ok := r.s.contacts[cid]; !ok {
			return goerr.Wrap(model.ErrNotFound, "contact not found",
				goerr.V(model.ContactKey, cid), goerr.V(model.MessageKey, id))
		}
		set = append(set, cid)
	}

	r.s.msgContacts[id] = set
	msg.UpdatedAt = time.Now()
	return nil
}
