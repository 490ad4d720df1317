package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/usecase"
	"github.com/secmon-lab/contactbook/pkg/utils/errutil"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	goslack "github.com/slack-go/slack"
)

// handleInteraction serves interactive payloads. Typeahead lookups and
// create modal submissions are answered synchronously because Slack reads
// their result from the response; everything else is acknowledged first.
func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := r.FormValue("payload")
	if payload == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("missing payload field in interaction request"), http.StatusBadRequest)
		return
	}

	var cb goslack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &cb); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse interaction payload"), http.StatusBadRequest)
		return
	}
	metrics.RecordInteraction(string(cb.Type), interactionID(&cb))

	switch cb.Type {
	case goslack.InteractionTypeBlockSuggestion:
		resp, err := s.uc.Record.HandleOptions(ctx, model.OptionsRequest{ActionID: cb.ActionID, Value: cb.Value})
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, statusOf(err))
			return
		}
		writeJSON(ctx, w, resp)

	case goslack.InteractionTypeMessageAction, goslack.InteractionTypeShortcut:
		req := toShortcutRequest(&cb)
		w.WriteHeader(http.StatusOK)
		s.dispatch(ctx, "shortcut", func(ctx context.Context) error {
			return s.uc.Record.HandleShortcut(ctx, req)
		})

	case goslack.InteractionTypeBlockActions:
		w.WriteHeader(http.StatusOK)
		for _, action := range cb.ActionCallback.BlockActions {
			req := toActionRequest(&cb, action)
			s.dispatch(ctx, "block_action", func(ctx context.Context) error {
				return s.uc.Record.HandleAction(ctx, req)
			})
		}

	case goslack.InteractionTypeViewSubmission:
		sub := toViewSubmission(&cb)
		if sub.CallbackID == usecase.CallbackUpdateContact {
			w.WriteHeader(http.StatusOK)
			s.dispatch(ctx, "view_submission", func(ctx context.Context) error {
				_, err := s.uc.Record.HandleViewSubmission(ctx, sub)
				return err
			})
			return
		}

		resp, err := s.uc.Record.HandleViewSubmission(ctx, sub)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, statusOf(err))
			return
		}
		if resp == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(ctx, w, resp)

	default:
		logging.From(ctx).Debug("interaction type ignored", "type", cb.Type)
		w.WriteHeader(http.StatusOK)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrUnknownAction), errors.Is(err, usecase.ErrUnknownCallback):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func interactionID(cb *goslack.InteractionCallback) string {
	switch cb.Type {
	case goslack.InteractionTypeBlockSuggestion:
		return cb.ActionID
	case goslack.InteractionTypeBlockActions:
		if len(cb.ActionCallback.BlockActions) > 0 {
			return cb.ActionCallback.BlockActions[0].ActionID
		}
		return ""
	case goslack.InteractionTypeViewSubmission:
		return cb.View.CallbackID
	default:
		return cb.CallbackID
	}
}

func toShortcutRequest(cb *goslack.InteractionCallback) model.ShortcutRequest {
	return model.ShortcutRequest{
		CallbackID: cb.CallbackID,
		TriggerID:  cb.TriggerID,
		UserID:     cb.User.ID,
		UserName:   cb.User.Name,
		TeamID:     cb.Team.ID,
		ChannelID:  cb.Channel.ID,
		Message: model.ShortcutMessage{
			User: cb.Message.User,
			Team: cb.Message.Team,
			TS:   cb.Message.Timestamp,
			Text: cb.Message.Text,
		},
	}
}

func toActionRequest(cb *goslack.InteractionCallback, action *goslack.BlockAction) model.ActionRequest {
	return model.ActionRequest{
		ActionID:        action.ActionID,
		BlockID:         action.BlockID,
		TriggerID:       cb.TriggerID,
		UserID:          cb.User.ID,
		PrivateMetadata: cb.View.PrivateMetadata,
		Value:           action.Value,
		SelectedValues:  optionValues(action.SelectedOptions),
	}
}

func toViewSubmission(cb *goslack.InteractionCallback) *model.ViewSubmission {
	sub := &model.ViewSubmission{
		CallbackID:      cb.View.CallbackID,
		PrivateMetadata: cb.View.PrivateMetadata,
		UserID:          cb.User.ID,
		UserName:        cb.User.Name,
		Values:          map[string]map[string]model.ViewValue{},
	}
	if cb.View.State == nil {
		return sub
	}

	for blockID, actions := range cb.View.State.Values {
		values := make(map[string]model.ViewValue, len(actions))
		for actionID, action := range actions {
			values[actionID] = model.ViewValue{
				Value:          action.Value,
				SelectedValue:  action.SelectedOption.Value,
				SelectedValues: optionValues(action.SelectedOptions),
			}
		}
		sub.Values[blockID] = values
	}
	return sub
}

func optionValues(options []goslack.OptionBlockObject) []string {
	if len(options) == 0 {
		return nil
	}
	values := make([]string, len(options))
	for i, o := range options {
		values[i] = o.Value
	}
	return values
}
