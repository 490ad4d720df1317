package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/errutil"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	goslack "github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"
)

// Slash commands
const (
	CommandContacts        = "/contacts"
	CommandOrganisation    = "/organisation"
	CommandOrg             = "/org"
	CommandFundingOrg      = "/funding-org"
	CommandFundingContacts = "/funding-contacts"
)

// Command outcomes, used as the metrics result label.
const (
	resultOK        = "ok"
	resultUsage     = "usage"
	resultNoMatch   = "no_match"
	resultAmbiguous = "ambiguous"
	resultDenied    = "denied"
	resultInvalid   = "invalid"
	resultError     = "error"
)

// Slack renders at most 50 blocks per message.
const maxBlocks = 50

type CommandUseCase struct {
	books    *books
	location *time.Location
	now      func() time.Time
}

// Commands lists the slash commands Handle accepts.
func Commands() []string {
	return []string{CommandContacts, CommandOrganisation, CommandOrg, CommandFundingOrg, CommandFundingContacts}
}

// Handle runs a slash command and returns the reply for the invoking user.
// Infrastructure failures are logged and answered with a generic failure
// message; only an unknown command yields an error.
func (uc *CommandUseCase) Handle(ctx context.Context, req model.CommandRequest) (*model.CommandResponse, error) {
	logger := logging.From(ctx).With("command", req.Command, "user_id", req.UserID)
	ctx = logging.With(ctx, logger)

	var handler func(context.Context, string) (*model.CommandResponse, string, error)
	dataset := types.DatasetPartner

	switch req.Command {
	case CommandContacts:
		handler = uc.searchContacts
	case CommandOrganisation, CommandOrg:
		handler = uc.searchOrganisation
	case CommandFundingOrg:
		handler = uc.searchFundingOrganisation
		dataset = types.DatasetFunder
	case CommandFundingContacts:
		handler = uc.searchFundingContacts
		dataset = types.DatasetFunder
	default:
		return nil, goerr.Wrap(ErrUnknownCommand, "unsupported slash command", goerr.V(CommandKey, req.Command))
	}

	resp, result, err := uc.run(ctx, dataset, req, handler)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to handle command",
			goerr.V(CommandKey, req.Command),
			goerr.V("text", req.Text)), "command failed")
		resp, result = model.TextResponse(msgFailure), resultError
	}

	metrics.RecordCommand(req.Command, result)
	logger.Info("command handled", "result", result)

	return resp, nil
}

// run answers a blank argument with the handler's usage hint without touching
// the store, then checks permission for the dataset.
func (uc *CommandUseCase) run(ctx context.Context, dataset types.Dataset, req model.CommandRequest, handler func(context.Context, string) (*model.CommandResponse, string, error)) (*model.CommandResponse, string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return handler(ctx, text)
	}

	ok, err := uc.books.hasPermission(ctx, dataset, req.UserName)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return model.TextResponse(msgCommandDenied), resultDenied, nil
	}

	return handler(ctx, text)
}

// parseQuery turns the command text into a query. A nil query with a
// response means the text was rejected.
func parseQuery(text, usage string) (*model.Query, *model.CommandResponse, string) {
	q, err := model.NewQuery(text)
	switch {
	case err == nil:
		return q, nil, ""
	case errors.Is(err, model.ErrEmptyQuery):
		return nil, model.TextResponse(usage), resultUsage
	default:
		return nil, model.TextResponse(invalidQueryText(text)), resultInvalid
	}
}

func invalidQueryText(text string) string {
	return "The text `" + text + "` is not a valid search pattern. Please check for unbalanced brackets or stray special characters."
}

// searchError converts a search error into a reply when it is caused by the
// user's input.
func searchError(text string, err error) (*model.CommandResponse, string, error) {
	if errors.Is(err, model.ErrInvalidQuery) {
		return model.TextResponse(invalidQueryText(text)), resultInvalid, nil
	}
	return nil, "", err
}

func (uc *CommandUseCase) searchContacts(ctx context.Context, text string) (*model.CommandResponse, string, error) {
	q, resp, result := parseQuery(text, msgContactsUsage)
	if q == nil {
		return resp, result, nil
	}

	repo, err := uc.books.get(types.DatasetPartner)
	if err != nil {
		return nil, "", err
	}
	messages, err := repo.Message().Search(ctx, q)
	if err != nil {
		return searchError(text, err)
	}
	if len(messages) == 0 {
		return model.TextResponse("No contact details matched the text: `" + text + "`"), resultNoMatch, nil
	}

	groups := make([][]goslack.Block, 0, len(messages))
	for _, m := range messages {
		groups = append(groups, messageBlocks(m, "spoke to", m.CreatedAt.In(uc.location)))
	}

	blocks := []goslack.Block{searchHeader(text)}
	blocks = append(blocks, fitGroups(groups, maxBlocks-len(blocks)-len(footnote()))...)
	blocks = append(blocks, footnote()...)

	return &model.CommandResponse{Text: "Search results for `" + text + "`", Blocks: blocks}, resultOK, nil
}

func (uc *CommandUseCase) searchOrganisation(ctx context.Context, text string) (*model.CommandResponse, string, error) {
	org, resp, result, err := uc.findOneOrganisation(ctx, types.DatasetPartner, text, msgOrgUsage, "both matched")
	if org == nil {
		return resp, result, err
	}
	return &model.CommandResponse{Text: org.Name, Blocks: organisationProfile(org, uc.now())}, resultOK, nil
}

func (uc *CommandUseCase) searchFundingOrganisation(ctx context.Context, text string) (*model.CommandResponse, string, error) {
	org, resp, result, err := uc.findOneOrganisation(ctx, types.DatasetFunder, text, msgFundingOrgUsage, "matched")
	if org == nil {
		return resp, result, err
	}
	return &model.CommandResponse{Text: org.Name, Blocks: funderProfile(org)}, resultOK, nil
}

// findOneOrganisation resolves text to exactly one organisation and loads its
// detail. When it returns a nil organisation the response, result and error
// are to be returned as is.
func (uc *CommandUseCase) findOneOrganisation(ctx context.Context, ds types.Dataset, text, usage, verb string) (*model.Organisation, *model.CommandResponse, string, error) {
	q, resp, result := parseQuery(text, usage)
	if q == nil {
		return nil, resp, result, nil
	}

	repo, err := uc.books.get(ds)
	if err != nil {
		return nil, nil, "", err
	}
	orgs, err := repo.Organisation().Search(ctx, q)
	if err != nil {
		resp, result, err := searchError(text, err)
		return nil, resp, result, err
	}

	switch len(orgs) {
	case 0:
		return nil, model.TextResponse("No organisation details matched the text: `" + text + "`"), resultNoMatch, nil
	case 1:
	default:
		names := make([]string, len(orgs))
		for i, o := range orgs {
			if ds == types.DatasetFunder {
				names[i] = o.DisplayName()
			} else {
				names[i] = o.Name
			}
		}
		msg := fmt.Sprintf("%s %s the text: `%s`. Please make it more specific.", boldList(names), verb, text)
		return nil, model.TextResponse(msg), resultAmbiguous, nil
	}

	org, err := repo.Organisation().GetDetail(ctx, orgs[0].ID)
	if err != nil {
		return nil, nil, "", goerr.Wrap(err, "failed to load organisation", goerr.V(model.OrgKey, orgs[0].ID))
	}
	if org == nil {
		// Deleted between search and detail lookup.
		return nil, model.TextResponse(fmt.Sprintf(msgOrganisationGone, text)), resultNoMatch, nil
	}
	return org, nil, "", nil
}

func (uc *CommandUseCase) searchFundingContacts(ctx context.Context, text string) (*model.CommandResponse, string, error) {
	q, resp, result := parseQuery(text, msgFundingUsage)
	if q == nil {
		return resp, result, nil
	}

	repo, err := uc.books.get(types.DatasetFunder)
	if err != nil {
		return nil, "", err
	}

	var (
		messages []*model.Message
		contacts []*model.Contact
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		messages, err = repo.Message().Search(egCtx, q)
		return err
	})
	eg.Go(func() error {
		var err error
		contacts, err = repo.Contact().Search(egCtx, q)
		return err
	})
	if err := eg.Wait(); err != nil {
		return searchError(text, err)
	}

	if len(messages) == 0 {
		return model.TextResponse("No slack conversations have been recorded with a user or organisation whose name matches: `" + text + "`"), resultNoMatch, nil
	}

	cards := make([][]goslack.Block, 0, len(contacts))
	for _, c := range contacts {
		cards = append(cards, funderContactCard(c, true, false))
	}
	convs := make([][]goslack.Block, 0, len(messages))
	for _, m := range messages {
		convs = append(convs, messageBlocks(m, "referenced", m.PostedAt().In(uc.location)))
	}

	// Contacts may use up to a third of the message.
	budget := maxBlocks - 1 - len(footnote())
	blocks := []goslack.Block{searchHeader(text)}
	blocks = append(blocks, orEmptyRow(fitGroups(cards, budget/3))...)
	blocks = append(blocks, fitGroups(convs, maxBlocks-len(blocks)-len(footnote()))...)
	blocks = append(blocks, footnote()...)

	return &model.CommandResponse{Text: "Search results for `" + text + "`", Blocks: blocks}, resultOK, nil
}

// fitGroups flattens groups of blocks while the total stays within budget.
// Groups that do not fit are replaced by a single note row.
func fitGroups(groups [][]goslack.Block, budget int) []goslack.Block {
	total := 0
	for _, g := range groups {
		total += len(g)
	}

	var out []goslack.Block
	if total <= budget {
		for _, g := range groups {
			out = append(out, g...)
		}
		return out
	}

	shown := 0
	for _, g := range groups {
		if len(out)+len(g) > budget-1 {
			break
		}
		out = append(out, g...)
		shown++
	}
	return append(out, section(fmt.Sprintf("_%d more results not shown. Please make the search more specific._", len(groups)-shown)))
}
