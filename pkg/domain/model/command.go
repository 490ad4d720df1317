package model

import "github.com/slack-go/slack"

// CommandResponse is the reply to a slash command. Either Text or Blocks is
// set; Text doubles as the notification fallback when Blocks is set.
type CommandResponse struct {
	Text   string
	Blocks []slack.Block
}

// TextResponse builds a plain text reply.
func TextResponse(text string) *CommandResponse {
	return &CommandResponse{Text: text}
}

// ToWebhook converts the response into a response_url payload. Replies are
// only visible to the invoking user.
func (r *CommandResponse) ToWebhook() *slack.WebhookMessage {
	msg := &slack.WebhookMessage{
		Text:         r.Text,
		ResponseType: slack.ResponseTypeEphemeral,
	}
	if len(r.Blocks) > 0 {
		msg.Blocks = &slack.Blocks{BlockSet: r.Blocks}
	}
	return msg
}
