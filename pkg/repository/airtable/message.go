package airtable

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	airtablesvc "github.com/secmon-lab/contactbook/pkg/service/airtable"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
)

type messageRepository struct {
	base *base
}

// Search matches the message search index, a formula over the names of the
// tagged contacts and their organisations.
func (r *messageRepository) Search(ctx context.Context, q *model.Query) ([]*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.search")()

	t := r.base.schema.Messages
	params := airtablesvc.ListParams{
		Fields:  r.base.messageFields(),
		Formula: airtablesvc.ContainsFold(t.SearchIndex, q.Term()),
	}
	if t.CreatedAt != "" {
		params.Sort = []airtablesvc.Sort{{Field: t.CreatedAt, Direction: "desc"}}
	}

	records, err := r.base.client.List(ctx, t.Table, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search messages", goerr.V(model.QueryKey, q.Term()))
	}

	messages := make([]*model.Message, 0, len(records))
	contactIDs := make(map[*model.Message][]types.ContactID, len(records))
	for _, rec := range records {
		m, ids := r.base.messageFromRecord(rec)
		messages = append(messages, m)
		contactIDs[m] = ids
	}
	if err := r.base.hydrateMessages(ctx, contactIDs); err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
	return messages, nil
}

func (r *messageRepository) Get(ctx context.Context, id types.MessageID) (*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.get")()

	if !validRecordID(id.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}

	rec, err := r.base.client.Get(ctx, r.base.schema.Messages.Table, id.String())
	if err != nil {
		return nil, wrapNotFound(err, "failed to get message", goerr.V(model.MessageKey, id))
	}
	return r.base.hydratedMessage(ctx, rec)
}

func (r *messageRepository) Upsert(ctx context.Context, input model.MessageInput) (*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.upsert")()

	if _, err := r.base.users.findOrCreate(input.AuthorSlackID, input.TeamID); err != nil {
		return nil, err
	}

	t := r.base.schema.Messages
	records, err := r.base.client.List(ctx, t.Table, airtablesvc.ListParams{
		Fields: r.base.messageFields(),
		Formula: airtablesvc.And(
			airtablesvc.Equals(t.ChannelID, input.ChannelID),
			airtablesvc.Equals(t.Timestamp, input.TS),
		),
		MaxRecords: 1,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up message",
			goerr.V("channel_id", input.ChannelID), goerr.V("ts", input.TS))
	}
	if len(records) > 0 {
		return r.base.hydratedMessage(ctx, records[0])
	}

	fields := map[string]any{}
	setField(fields, t.ChannelID, input.ChannelID)
	setField(fields, t.SlackID, input.AuthorSlackID)
	setField(fields, t.Timestamp, input.TS)
	setField(fields, t.Text, input.Text)

	rec, err := r.base.client.Create(ctx, t.Table, fields)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message",
			goerr.V("channel_id", input.ChannelID), goerr.V("ts", input.TS))
	}
	m, _ := r.base.messageFromRecord(rec)
	return m, nil
}

func (r *messageRepository) SetContacts(ctx context.Context, id types.MessageID, ids []types.ContactID) error {
	defer metrics.ObserveRepository(backendName, "message.set_contacts")()

	if !validRecordID(id.String()) {
		return goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}

	contactIDs := stringIDs(ids)
	for _, cid := range contactIDs {
		if !validRecordID(cid) {
			return goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, cid))
		}
	}
	if len(contactIDs) > 0 {
		found, err := r.base.fetchByIDs(ctx, r.base.schema.Contacts.Table,
			fieldList(r.base.schema.Contacts.FirstName), contactIDs)
		if err != nil {
			return err
		}
		if len(found) != len(contactIDs) {
			return goerr.Wrap(model.ErrNotFound, "contact not found",
				goerr.V(model.MessageKey, id), goerr.V("requested", len(contactIDs)), goerr.V("found", len(found)))
		}
	}

	_, err := r.base.client.Update(ctx, r.base.schema.Messages.Table, id.String(), map[string]any{
		r.base.schema.Messages.Contacts: contactIDs,
	})
	if err != nil {
		return wrapNotFound(err, "failed to update message contacts", goerr.V(model.MessageKey, id))
	}
	return nil
}

func (b *base) messageFields() []string {
	t := b.schema.Messages
	return fieldList(t.ChannelID, t.SlackID, t.Timestamp, t.Text, t.Contacts, t.CreatedAt)
}

func (b *base) messageFromRecord(rec *airtablesvc.Record) (*model.Message, []types.ContactID) {
	t := b.schema.Messages
	m := &model.Message{
		ID:            types.MessageID(rec.ID),
		ChannelID:     text(rec, t.ChannelID),
		TS:            text(rec, t.Timestamp),
		Text:          text(rec, t.Text),
		AuthorSlackID: text(rec, t.SlackID),
		CreatedAt:     rec.CreatedTime,
	}
	if v := text(rec, t.CreatedAt); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			m.CreatedAt = ts
		}
	}
	m.UpdatedAt = m.CreatedAt
	if m.AuthorSlackID != "" {
		m.UserID = syntheticUserID(m.AuthorSlackID)
	}
	return m, typedIDs[types.ContactID](rec.Strings(t.Contacts))
}

func (b *base) hydratedMessage(ctx context.Context, rec *airtablesvc.Record) (*model.Message, error) {
	m, ids := b.messageFromRecord(rec)
	if err := b.hydrateMessages(ctx, map[*model.Message][]types.ContactID{m: ids}); err != nil {
		return nil, err
	}
	return m, nil
}

// hydrateMessages loads the tagged contacts of all messages at once. The
// contact order of each message follows its link field.
func (b *base) hydrateMessages(ctx context.Context, messages map[*model.Message][]types.ContactID) error {
	var all []types.ContactID
	for _, ids := range messages {
		all = append(all, ids...)
	}
	if len(all) == 0 {
		return nil
	}

	records, err := b.fetchByIDs(ctx, b.schema.Contacts.Table, b.contactFields(), stringIDs(all))
	if err != nil {
		return err
	}
	contacts := make([]*model.Contact, 0, len(records))
	byID := make(map[types.ContactID]*model.Contact, len(records))
	for _, rec := range records {
		c := b.contactFromRecord(rec)
		contacts = append(contacts, c)
		byID[c.ID] = c
	}
	if err := b.hydrateContacts(ctx, contacts); err != nil {
		return err
	}

	for m, ids := range messages {
		m.Contacts = nil
		for _, id := range ids {
			if c, ok := byID[id]; ok {
				m.Contacts = append(m.Contacts, c)
			}
		}
	}
	return nil
}
