package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/usecase"
	goslack "github.com/slack-go/slack"
)

func TestSlackInteraction(t *testing.T) {
	t.Run("missing payload", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(signedRequest("/slack/interactions", "application/x-www-form-urlencoded", "foo=bar"))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("typeahead answers synchronously", func(t *testing.T) {
		ts := newTestServer(t)
		payload := `{"type":"block_suggestion","action_id":"contact_select","block_id":"b","value":"kaj"}`

		rec := ts.do(interactionRequest(payload))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, rec.Header().Get("Content-Type")).Equal("application/json")

		var resp goslack.OptionsResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Array(t, resp.Options).Length(1).Required()
		gt.Value(t, resp.Options[0].Value).Equal(ts.jane.ID.String())
		gt.Value(t, resp.Options[0].Text.Text).Equal("Jane Kajute [Sunrise Project]")
	})

	t.Run("typeahead for an unknown action", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(interactionRequest(`{"type":"block_suggestion","action_id":"nope","value":"kaj"}`))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("message shortcut opens the recording modal", func(t *testing.T) {
		ts := newTestServer(t)
		payload := `{"type":"message_action","callback_id":"record_contact","trigger_id":"trig",` +
			`"team":{"id":"T001"},"channel":{"id":"C900"},"user":{"id":"U100","name":"someone"},` +
			`"message":{"type":"message","user":"U900","ts":"1612000000.000100","text":"Lunch with Jane"}}`

		rec := ts.do(interactionRequest(payload))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Array(t, ts.dispatch.errors).Length(0)
		gt.Array(t, ts.slack.opened).Length(1).Required()

		view := ts.slack.opened[0]
		gt.Value(t, view.CallbackID).Equal(usecase.CallbackUpdateContact)

		_, msgID := model.ParseMessageRef(view.PrivateMetadata)
		msg, err := ts.partner.Message().Get(context.Background(), msgID)
		gt.NoError(t, err).Required()
		gt.Value(t, msg.ChannelID).Equal("C900")
		gt.Value(t, msg.Text).Equal("Lunch with Jane")
	})

	t.Run("contact selection is saved", func(t *testing.T) {
		ts := newTestServer(t)
		payload := `{"type":"block_actions","trigger_id":"trig","user":{"id":"U100"},` +
			`"view":{"callback_id":"update_contact","private_metadata":"` + ts.msg.ID.String() + `"},` +
			`"actions":[{"action_id":"contact_select","block_id":"b","type":"multi_external_select",` +
			`"selected_options":[{"value":"` + ts.jane.ID.String() + `"}]}]}`

		rec := ts.do(interactionRequest(payload))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Array(t, ts.dispatch.errors).Length(0)

		msg, err := ts.partner.Message().Get(context.Background(), ts.msg.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, msg.Contacts).Length(1).Required()
		gt.Value(t, msg.Contacts[0].ID).Equal(ts.jane.ID)
	})

	t.Run("create contact errors are returned to the modal", func(t *testing.T) {
		ts := newTestServer(t)
		payload := `{"type":"view_submission","user":{"id":"U100"},` +
			`"view":{"callback_id":"create_contact","private_metadata":"m","state":{"values":{` +
			`"contact-first-name":{"first-name-value":{"type":"plain_text_input","value":"Kim"}},` +
			`"contact-last-name":{"last-name-value":{"type":"plain_text_input","value":""}}}}}}`

		rec := ts.do(interactionRequest(payload))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp goslack.ViewSubmissionResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp.ResponseAction).Equal(goslack.RAErrors)
		gt.Value(t, resp.Errors["contact-last-name"]).Equal("Please enter a last name.")
	})

	t.Run("create contact closes the modal", func(t *testing.T) {
		ts := newTestServer(t)
		payload := `{"type":"view_submission","user":{"id":"U100"},` +
			`"view":{"callback_id":"create_contact","private_metadata":"m","state":{"values":{` +
			`"contact-org":{"organisation_select":{"type":"multi_external_select","selected_options":[{"value":"` + ts.sunrise.ID.String() + `"}]}},` +
			`"contact-first-name":{"first-name-value":{"type":"plain_text_input","value":"Kim"}},` +
			`"contact-last-name":{"last-name-value":{"type":"plain_text_input","value":"Lee"}}}}}}`

		rec := ts.do(interactionRequest(payload))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, rec.Body.Len()).Equal(0)

		q, err := model.NewQuery("Kim Lee")
		gt.NoError(t, err).Required()
		contacts, err := ts.partner.Contact().Search(context.Background(), q)
		gt.NoError(t, err).Required()
		gt.Array(t, contacts).Length(1)
	})

	t.Run("final submit posts the confirmation", func(t *testing.T) {
		ts := newTestServer(t)
		payload := `{"type":"view_submission","user":{"id":"U100"},` +
			`"view":{"callback_id":"update_contact","private_metadata":"` + ts.msg.ID.String() + `"}}`

		rec := ts.do(interactionRequest(payload))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Array(t, ts.dispatch.errors).Length(0)
		gt.Array(t, ts.slack.posted).Length(1).Required()
		gt.Value(t, ts.slack.posted[0]).Equal("Slack message has been updated with no associated contacts.")
	})

	t.Run("other interaction types are acknowledged", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(interactionRequest(`{"type":"view_closed","view":{"callback_id":"update_contact"}}`))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
	})
}
