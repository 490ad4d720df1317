package interfaces

import (
	"context"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// MessageRepository stores Slack messages tagged with contacts.
type MessageRepository interface {
	// Search returns messages with at least one tagged contact matching q,
	// newest first. Each message carries its full contact set.
	Search(ctx context.Context, q *model.Query) ([]*model.Message, error)

	// Get returns model.ErrNotFound when id is unknown.
	Get(ctx context.Context, id types.MessageID) (*model.Message, error)

	// Upsert finds the message by (ChannelID, TS) or creates it. The author
	// User is resolved or created first.
	Upsert(ctx context.Context, input model.MessageInput) (*model.Message, error)

	// SetContacts replaces the contact set. An empty ids clears it.
	SetContacts(ctx context.Context, id types.MessageID, ids []types.ContactID) error
}
