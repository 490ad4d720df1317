package model

import (
	"time"

	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// User is a Slack user who has recorded at least one message. SlackID is
// unique per workspace.
type User struct {
	ID        types.UserID
	SlackID   string
	TeamID    string
	Name      string // real name
	Username  string // Slack handle
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProfile is the refreshable part of a User.
type UserProfile struct {
	Name     string
	Username string
}
