package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type messageRepository struct {
	*base
}

// messageDocID derives the document ID from the natural key so that
// concurrent upserts of one Slack message address the same document. The
// collection prefix keeps IDs distinct between datasets sharing a project.
func messageDocID(prefix, channelID, ts string) string {
	name := "slack:" + channelID + ":" + ts
	if prefix != "" {
		name = prefix + ":" + name
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func userDocID(slackID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("slack-user:"+slackID)).String()
}

func (r *messageRepository) Search(ctx context.Context, q *model.Query) ([]*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.search")()

	contacts, err := (&contactRepository{base: r.base}).Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID.String())
	}

	found := make(map[string]*messageDoc)
	for i := 0; i < len(ids); i += inQueryLimit {
		end := min(i+inQueryLimit, len(ids))
		iter := r.collection(messagesCollection).Where("contact_ids", "array-contains-any", ids[i:end]).Documents(ctx)
		docs, err := listAll[messageDoc](iter, messagesCollection)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			found[d.ID] = d
		}
	}

	docs := make([]*messageDoc, 0, len(found))
	for _, d := range found {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })

	return r.hydrateMessages(ctx, docs)
}

func (r *messageRepository) Get(ctx context.Context, id types.MessageID) (*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.get")()

	if !validDocID(id.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}

	snap, err := r.collection(messagesCollection).Doc(id.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get message", goerr.V(model.MessageKey, id))
	}
	var doc messageDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode message", goerr.V(model.MessageKey, id))
	}

	msgs, err := r.hydrateMessages(ctx, []*messageDoc{&doc})
	if err != nil {
		return nil, err
	}
	return msgs[0], nil
}

func (r *messageRepository) Upsert(ctx context.Context, input model.MessageInput) (*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.upsert")()

	msgRef := r.collection(messagesCollection).Doc(messageDocID(r.collectionPrefix, input.ChannelID, input.TS))
	userRef := r.collection(usersCollection).Doc(userDocID(input.AuthorSlackID))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(userRef)
		userMissing := status.Code(err) == codes.NotFound
		if err != nil && !userMissing {
			return goerr.Wrap(err, "failed to get user", goerr.V("slack_id", input.AuthorSlackID))
		}
		_, err = tx.Get(msgRef)
		msgMissing := status.Code(err) == codes.NotFound
		if err != nil && !msgMissing {
			return goerr.Wrap(err, "failed to get message",
				goerr.V("channel_id", input.ChannelID), goerr.V("ts", input.TS))
		}

		now := time.Now().UTC()
		if userMissing {
			if err := tx.Create(userRef, &userDoc{
				ID:        userRef.ID,
				SlackID:   input.AuthorSlackID,
				TeamID:    input.TeamID,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return goerr.Wrap(err, "failed to create user", goerr.V("slack_id", input.AuthorSlackID))
			}
		}

		if !msgMissing {
			return nil
		}
		return tx.Create(msgRef, &messageDoc{
			ID:            msgRef.ID,
			ChannelID:     input.ChannelID,
			TS:            input.TS,
			Text:          input.Text,
			AuthorSlackID: input.AuthorSlackID,
			UserID:        userRef.ID,
			ContactIDs:    []string{},
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert message",
			goerr.V("channel_id", input.ChannelID), goerr.V("ts", input.TS))
	}

	return r.Get(ctx, types.MessageID(msgRef.ID))
}

func (r *messageRepository) SetContacts(ctx context.Context, id types.MessageID, ids []types.ContactID) error {
	defer metrics.ObserveRepository(backendName, "message.set_contacts")()

	if !validDocID(id.String()) {
		return goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}

	keys := uniqStrings(toStrings(ids))
	contacts, err := getAll[contactDoc](ctx, r.base, contactsCollection, keys)
	if err != nil {
		return err
	}
	if len(contacts) != len(keys) {
		return goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.MessageKey, id), goerr.V("ids", keys))
	}

	ref := r.collection(messagesCollection).Doc(id.String())
	_, err = ref.Update(ctx, []firestore.Update{
		{Path: "contact_ids", Value: keys},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to set message contacts", goerr.V(model.MessageKey, id))
	}
	return nil
}

func (r *messageRepository) hydrateMessages(ctx context.Context, docs []*messageDoc) ([]*model.Message, error) {
	var contactIDs []string
	for _, d := range docs {
		contactIDs = append(contactIDs, d.ContactIDs...)
	}
	contactDocs, err := getAll[contactDoc](ctx, r.base, contactsCollection, uniqStrings(contactIDs))
	if err != nil {
		return nil, err
	}

	list := make([]*contactDoc, 0, len(contactDocs))
	for _, c := range contactDocs {
		list = append(list, c)
	}
	hydrated, err := r.hydrateContacts(ctx, list)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Contact, len(hydrated))
	for _, c := range hydrated {
		byID[c.ID.String()] = c
	}

	result := make([]*model.Message, 0, len(docs))
	for _, d := range docs {
		m := d.toModel()
		m.Contacts = make([]*model.Contact, 0, len(d.ContactIDs))
		for _, cid := range d.ContactIDs {
			if c, ok := byID[cid]; ok {
				m.Contacts = append(m.Contacts, c)
			}
		}
		result = append(result, m)
	}
	return result, nil
}
