package slack

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// client implements Service interface
type client struct {
	token      string
	apiURL     string
	httpClient *http.Client
	api        *slack.Client
}

// Option is a functional option for client configuration
type Option func(*client)

// WithAPIURL points the client at another Web API root, e.g. an httptest
// server. The URL must end with a slash.
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiURL = url
	}
}

// WithHTTPClient replaces the HTTP client used for Web API and
// response_url requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	c := &client{
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	apiOpts := []slack.Option{slack.OptionHTTPClient(c.httpClient)}
	if c.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(c.apiURL))
	}
	c.api = slack.New(c.token, apiOpts...)

	return c, nil
}

func (c *client) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return goerr.Wrap(err, "failed to open view",
			goerr.V("callback_id", view.CallbackID), goerr.V("detail", responseDetail(err)))
	}
	return nil
}

func (c *client) PushView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	if _, err := c.api.PushViewContext(ctx, triggerID, view); err != nil {
		return goerr.Wrap(err, "failed to push view",
			goerr.V("callback_id", view.CallbackID), goerr.V("detail", responseDetail(err)))
	}
	return nil
}

func (c *client) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message",
			goerr.V("channel_id", channelID), goerr.V("thread_ts", threadTS))
	}
	return ts, nil
}

func (c *client) PostResponse(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error {
	if responseURL == "" {
		return goerr.New("response_url is empty")
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, responseURL, c.httpClient, msg); err != nil {
		return goerr.Wrap(err, "failed to post command response")
	}
	return nil
}

// GetUserInfo retrieves user information for the given user ID
func (c *client) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user info", goerr.V("user_id", userID))
	}
	return toUser(user), nil
}

// ListUsers retrieves all non-deleted, non-bot users in the workspace
func (c *client) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	result := make([]*User, 0, len(users))
	for i := range users {
		if users[i].Deleted || users[i].IsBot {
			continue
		}
		result = append(result, toUser(&users[i]))
	}
	return result, nil
}

func toUser(u *slack.User) *User {
	return &User{
		ID:       u.ID,
		Name:     u.Name,
		RealName: u.RealName,
		Email:    u.Profile.Email,
	}
}

// IsNotInChannel reports whether err means the bot cannot post to the
// channel, which is expected for channels the bot was never added to.
func IsNotInChannel(err error) bool {
	var resp slack.SlackErrorResponse
	if errors.As(err, &resp) {
		return resp.Err == "channel_not_found" || resp.Err == "not_in_channel"
	}
	return false
}

// responseDetail extracts the per-field messages Slack attaches to
// invalid_arguments errors.
func responseDetail(err error) []string {
	var resp slack.SlackErrorResponse
	if !errors.As(err, &resp) {
		return nil
	}
	return resp.ResponseMetadata.Messages
}
