package http_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/m-mizutani/gt"
	goslack "github.com/slack-go/slack"
)

func commandForm(command, text string) url.Values {
	return url.Values{
		"command":      {command},
		"text":         {text},
		"user_id":      {"U100"},
		"user_name":    {"someone"},
		"channel_id":   {"C100"},
		"team_id":      {"T001"},
		"response_url": {"https://hooks.slack.com/commands/T001/1/abc"},
		"trigger_id":   {"trigger"},
	}
}

func TestSlackCommand(t *testing.T) {
	t.Run("empty text gets the usage hint", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(formRequest("/slack/commands", commandForm("/contacts", "  ")))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, rec.Body.Len()).Equal(0)

		gt.Array(t, ts.slack.responses).Length(1).Required()
		gt.Value(t, ts.slack.urls[0]).Equal("https://hooks.slack.com/commands/T001/1/abc")
		gt.Value(t, ts.slack.responses[0].Text).Equal("Please specify text to search to contacts with e.g. `/contacts Kajute`")
		gt.Value(t, ts.slack.responses[0].ResponseType).Equal(goslack.ResponseTypeEphemeral)
	})

	t.Run("organisation profile is posted as blocks", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(formRequest("/slack/commands", commandForm("/org", "TSP")))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		gt.Array(t, ts.slack.responses).Length(1).Required()
		gt.Value(t, ts.slack.responses[0].Blocks).NotNil().Required()
		gt.Number(t, len(ts.slack.responses[0].Blocks.BlockSet)).GreaterOrEqual(4)
	})

	t.Run("unknown command is reported", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(formRequest("/slack/commands", commandForm("/unknown", "x")))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Array(t, ts.slack.responses).Length(0)
		gt.Array(t, ts.dispatch.errors).Length(1)
	})
}
