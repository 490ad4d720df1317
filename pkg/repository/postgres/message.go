package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageRepository struct {
	db     *gorm.DB
	prefix string
}

func (r *messageRepository) Search(ctx context.Context, q *model.Query) ([]*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.search")()

	cond, args := q.SQLCondition(contactSearchColumns...)

	var hits []struct {
		ID        string
		CreatedAt time.Time
	}
	err := r.db.WithContext(ctx).
		Table(r.prefix+"messages AS m").
		Select("DISTINCT m.id, m.created_at").
		Joins("JOIN "+r.prefix+"message_contacts mc ON mc.message_id = m.id").
		Joins("JOIN "+r.prefix+"contacts c ON c.id = mc.contact_id").
		Joins("LEFT JOIN "+r.prefix+"contact_organisations co ON co.contact_id = c.id").
		Joins("LEFT JOIN "+r.prefix+"organisations o ON o.id = co.organisation_id").
		Where(cond, args...).
		Order("m.created_at DESC").
		Scan(&hits).Error
	if err != nil {
		return nil, wrapQueryError(err, "failed to search messages", q)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}

	var rows []Message
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Contacts.Organisations").
		Preload("Contacts.Programs").
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to load messages", goerr.V("count", len(ids)))
	}

	result := make([]*model.Message, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}

func (r *messageRepository) Get(ctx context.Context, id types.MessageID) (*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.get")()
	return getMessage(r.db.WithContext(ctx), id)
}

func getMessage(db *gorm.DB, id types.MessageID) (*model.Message, error) {
	if !isUUID(id.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}

	var row Message
	err := db.
		Preload("User").
		Preload("Contacts.Organisations").
		Preload("Contacts.Programs").
		First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get message", goerr.V(model.MessageKey, id))
	}
	return row.toModel(), nil
}

func (r *messageRepository) Upsert(ctx context.Context, input model.MessageInput) (*model.Message, error) {
	defer metrics.ObserveRepository(backendName, "message.upsert")()

	var id types.MessageID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := findOrCreateUser(tx, input.AuthorSlackID, input.TeamID)
		if err != nil {
			return err
		}

		row := &Message{
			ID:        types.NewMessageID().String(),
			ChannelID: input.ChannelID,
			TS:        input.TS,
			Text:      input.Text,
			UserID:    user.ID,
		}
		// A concurrent upsert of the same message wins; read back its row.
		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "channel_id"}, {Name: "ts"}},
				DoNothing: true,
			}).
			Create(row).Error; err != nil {
			return goerr.Wrap(err, "failed to insert message",
				goerr.V("channel_id", input.ChannelID), goerr.V("ts", input.TS))
		}

		var existing Message
		if err := tx.Select("id").
			Where("channel_id = ? AND ts = ?", input.ChannelID, input.TS).
			First(&existing).Error; err != nil {
			return goerr.Wrap(err, "failed to read message",
				goerr.V("channel_id", input.ChannelID), goerr.V("ts", input.TS))
		}
		id = types.MessageID(existing.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return getMessage(r.db.WithContext(ctx), id)
}

func (r *messageRepository) SetContacts(ctx context.Context, id types.MessageID, ids []types.ContactID) error {
	defer metrics.ObserveRepository(backendName, "message.set_contacts")()

	if !isUUID(id.String()) {
		return goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
	}

	keys := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, cid := range ids {
		if !isUUID(cid.String()) {
			return goerr.Wrap(model.ErrNotFound, "contact not found", goerr.V(model.ContactKey, cid))
		}
		if _, ok := seen[cid.String()]; ok {
			continue
		}
		seen[cid.String()] = struct{}{}
		keys = append(keys, cid.String())
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Message
		if err := tx.First(&row, "id = ?", id.String()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(model.MessageKey, id))
			}
			return goerr.Wrap(err, "failed to load message", goerr.V(model.MessageKey, id))
		}

		contacts := []Contact{}
		if len(keys) > 0 {
			if err := tx.Where("id IN ?", keys).Find(&contacts).Error; err != nil {
				return goerr.Wrap(err, "failed to load contacts", goerr.V(model.MessageKey, id))
			}
			if len(contacts) != len(keys) {
				return goerr.Wrap(model.ErrNotFound, "contact not found",
					goerr.V(model.MessageKey, id), goerr.V("ids", keys))
			}
		}

		if err := replaceAssociation(tx, &row, "Contacts", contacts, len(contacts)); err != nil {
			return goerr.Wrap(err, "failed to replace message contacts", goerr.V(model.MessageKey, id))
		}
		if err := tx.Model(&row).Update("updated_at", time.Now().UTC()).Error; err != nil {
			return goerr.Wrap(err, "failed to touch message", goerr.V(model.MessageKey, id))
		}
		return nil
	})
}
