package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// Message is a Slack message that has been tagged with contacts. A message is
// identified by (ChannelID, TS).
type Message struct {
	ID            types.MessageID
	ChannelID     string
	TS            string
	Text          string
	AuthorSlackID string
	UserID        types.UserID
	Contacts      []*Contact
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MessageInput carries the natural key and payload of a message to upsert.
type MessageInput struct {
	ChannelID     string
	AuthorSlackID string
	TeamID        string
	TS            string
	Text          string
}

// ContactIDs returns the IDs of the tagged contacts.
func (m *Message) ContactIDs() []types.ContactID {
	ids := make([]types.ContactID, 0, len(m.Contacts))
	for _, c := range m.Contacts {
		ids = append(ids, c.ID)
	}
	return ids
}

// PostedAt converts the Slack timestamp ("1612345678.000200") into a time.
// It falls back to CreatedAt when TS cannot be parsed.
func (m *Message) PostedAt() time.Time {
	sec, frac, _ := strings.Cut(m.TS, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil || s <= 0 {
		return m.CreatedAt
	}
	var usec int64
	if frac != "" {
		if v, err := strconv.ParseInt(frac, 10, 64); err == nil {
			usec = v
		}
	}
	return time.Unix(s, usec*int64(time.Microsecond))
}
