package http

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/utils/errutil"
	goslack "github.com/slack-go/slack"
)

// handleCommand acknowledges a slash command with an empty 200 and posts
// the answer to the command's response_url once it is ready.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cmd, err := goslack.SlashCommandParse(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slash command"), http.StatusBadRequest)
		return
	}

	req := model.CommandRequest{
		Command:   cmd.Command,
		Text:      cmd.Text,
		UserID:    cmd.UserID,
		UserName:  cmd.UserName,
		ChannelID: cmd.ChannelID,
		TeamID:    cmd.TeamID,
		TriggerID: cmd.TriggerID,
	}
	responseURL := cmd.ResponseURL

	w.WriteHeader(http.StatusOK)

	s.dispatch(ctx, "command", func(ctx context.Context) error {
		resp, err := s.uc.Command.Handle(ctx, req)
		if err != nil {
			return goerr.Wrap(err, "failed to handle slash command", goerr.V("command", req.Command))
		}
		if s.slackService == nil {
			return goerr.New("slack service is not configured")
		}
		if err := s.slackService.PostResponse(ctx, responseURL, resp.ToWebhook()); err != nil {
			return goerr.Wrap(err, "failed to post command response", goerr.V("command", req.Command))
		}
		return nil
	})
}
