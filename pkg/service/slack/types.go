package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service is the part of the Slack Web API used by the bot.
type Service interface {
	// OpenView opens a modal in response to a shortcut or action trigger.
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error

	// PushView stacks a modal on top of the open one.
	PushView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error

	// PostMessage posts plain text to a channel, threaded under threadTS
	// when it is set, and returns the message timestamp.
	PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error)

	// PostResponse delivers a delayed slash command response to the
	// command's response_url.
	PostResponse(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error

	// ListUsers retrieves all non-deleted, non-bot users in the workspace
	ListUsers(ctx context.Context) ([]*User, error)

	// GetUserInfo retrieves user information for the given user ID
	GetUserInfo(ctx context.Context, userID string) (*User, error)
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string // handle
	RealName string
	Email    string
}
