package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/service/slack"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	goslack "github.com/slack-go/slack"
)

// RecordUseCase drives the message shortcut workflow: tagging a Slack
// message with contacts and creating contacts and organisations on the way.
type RecordUseCase struct {
	books        *books
	slackService slack.Service
}

func (uc *RecordUseCase) service() (slack.Service, error) {
	if uc.slackService == nil {
		return nil, goerr.New("slack service is not configured")
	}
	return uc.slackService, nil
}

// HandleShortcut records the message the shortcut was invoked on and opens
// the contact selection modal. Users without permission for a restricted
// dataset get an explanatory modal instead.
func (uc *RecordUseCase) HandleShortcut(ctx context.Context, req model.ShortcutRequest) error {
	flow, ok := flowBy(func(f recordFlow) bool { return f.shortcut == req.CallbackID })
	if !ok {
		return goerr.Wrap(ErrUnknownCallback, "unsupported shortcut", goerr.V(CallbackKey, req.CallbackID))
	}
	svc, err := uc.service()
	if err != nil {
		return err
	}

	allowed, err := uc.books.hasPermission(ctx, flow.dataset, req.UserName)
	if err != nil {
		return err
	}
	if !allowed {
		logging.From(ctx).Info("shortcut denied", "user_name", req.UserName, "dataset", flow.dataset)
		if err := svc.OpenView(ctx, req.TriggerID, permissionDeniedView()); err != nil {
			return goerr.Wrap(err, "failed to open permission denied modal")
		}
		return nil
	}

	repo, err := uc.books.get(flow.dataset)
	if err != nil {
		return err
	}

	teamID := req.Message.Team
	if teamID == "" {
		teamID = req.TeamID
	}
	msg, err := repo.Message().Upsert(ctx, model.MessageInput{
		ChannelID:     req.ChannelID,
		AuthorSlackID: req.Message.User,
		TeamID:        teamID,
		TS:            req.Message.TS,
		Text:          req.Message.Text,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to record message",
			goerr.V("channel_id", req.ChannelID),
			goerr.V("ts", req.Message.TS))
	}

	if err := svc.OpenView(ctx, req.TriggerID, updateContactView(flow, msg)); err != nil {
		return goerr.Wrap(err, "failed to open contact modal", goerr.V(MessageKey, msg.ID))
	}
	return nil
}

// HandleOptions answers an external select typeahead. Blank or invalid
// search text yields no options.
func (uc *RecordUseCase) HandleOptions(ctx context.Context, req model.OptionsRequest) (*goslack.OptionsResponse, error) {
	var (
		ds        types.Dataset
		contacts  bool
		knownFlow bool
	)
	for _, f := range flows {
		switch req.ActionID {
		case f.contactSelect:
			ds, contacts, knownFlow = f.dataset, true, true
		case f.orgSelect:
			ds, knownFlow = f.dataset, true
		}
	}
	if !knownFlow {
		return nil, goerr.Wrap(ErrUnknownAction, "unsupported options request", goerr.V(ActionKey, req.ActionID))
	}

	resp := &goslack.OptionsResponse{Options: []*goslack.OptionBlockObject{}}
	q, err := model.NewQuery(req.Value)
	if err != nil {
		return resp, nil
	}

	repo, err := uc.books.get(ds)
	if err != nil {
		return nil, err
	}

	if contacts {
		found, err := repo.Contact().Search(ctx, q)
		if err != nil {
			return ignoreInvalidQuery(resp, err)
		}
		sort.SliceStable(found, func(i, j int) bool { return found[i].NameWithOrgs() < found[j].NameWithOrgs() })
		for _, c := range found[:min(len(found), maxOptions)] {
			resp.Options = append(resp.Options, contactOption(c))
		}
		return resp, nil
	}

	found, err := repo.Organisation().Search(ctx, q)
	if err != nil {
		return ignoreInvalidQuery(resp, err)
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	for _, o := range found[:min(len(found), maxOptions)] {
		resp.Options = append(resp.Options, organisationOption(o))
	}
	return resp, nil
}

func ignoreInvalidQuery(resp *goslack.OptionsResponse, err error) (*goslack.OptionsResponse, error) {
	if errors.Is(err, model.ErrInvalidQuery) {
		return resp, nil
	}
	return nil, goerr.Wrap(err, "failed to search options")
}

// HandleAction handles block actions inside the recording modals.
func (uc *RecordUseCase) HandleAction(ctx context.Context, req model.ActionRequest) error {
	for _, f := range flows {
		switch req.ActionID {
		case f.contactSelect:
			return uc.setContacts(ctx, f, req)

		case f.addContact:
			return uc.pushView(ctx, req.TriggerID, createContactView(f, req.PrivateMetadata))

		case f.addOrganisation:
			if f.dataset == types.DatasetFunder {
				return uc.pushView(ctx, req.TriggerID, createFundingOrganisationView(req.PrivateMetadata))
			}
			repo, err := uc.books.get(f.dataset)
			if err != nil {
				return err
			}
			programs, err := repo.Program().List(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list program areas")
			}
			return uc.pushView(ctx, req.TriggerID, createOrganisationView(req.PrivateMetadata, programs))

		case f.orgSelect:
			// Selection is read from the submitted view state.
			return nil
		}
	}
	return goerr.Wrap(ErrUnknownAction, "unsupported block action", goerr.V(ActionKey, req.ActionID))
}

// setContacts saves the selection right away so that closing the modal
// does not lose it. An empty selection clears the contacts.
func (uc *RecordUseCase) setContacts(ctx context.Context, flow recordFlow, req model.ActionRequest) error {
	repo, err := uc.books.get(flow.dataset)
	if err != nil {
		return err
	}
	_, msgID := model.ParseMessageRef(req.PrivateMetadata)
	ids := types.ContactIDs(req.SelectedValues)
	if err := repo.Message().SetContacts(ctx, msgID, ids); err != nil {
		return goerr.Wrap(err, "failed to tag message with contacts",
			goerr.V(MessageKey, msgID),
			goerr.V("contact_ids", ids))
	}
	logging.From(ctx).Info("message contacts updated", "message_id", msgID, "contacts", len(ids), "dataset", flow.dataset)
	return nil
}

func (uc *RecordUseCase) pushView(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error {
	svc, err := uc.service()
	if err != nil {
		return err
	}
	if err := svc.PushView(ctx, triggerID, view); err != nil {
		return goerr.Wrap(err, "failed to push modal", goerr.V(CallbackKey, view.CallbackID))
	}
	return nil
}

// HandleViewSubmission processes a submitted modal. A non-nil response
// carries input errors to show in the modal; nil closes it.
func (uc *RecordUseCase) HandleViewSubmission(ctx context.Context, sub *model.ViewSubmission) (*goslack.ViewSubmissionResponse, error) {
	if sub.CallbackID == CallbackUpdateContact {
		return nil, uc.confirmContacts(ctx, sub.Dataset(), sub.MessageID())
	}

	for _, f := range flows {
		switch sub.CallbackID {
		case f.createContact:
			return uc.createContact(ctx, f, sub)
		case f.createOrganisation:
			return uc.createOrganisation(ctx, f, sub)
		}
	}
	return nil, goerr.Wrap(ErrUnknownCallback, "unsupported view submission", goerr.V(CallbackKey, sub.CallbackID))
}

func (uc *RecordUseCase) createContact(ctx context.Context, flow recordFlow, sub *model.ViewSubmission) (*goslack.ViewSubmissionResponse, error) {
	repo, err := uc.books.get(flow.dataset)
	if err != nil {
		return nil, err
	}

	contact := &model.Contact{
		FirstName:       strings.TrimSpace(sub.Get(blockContactFirstName, elemFirstName).Value),
		LastName:        strings.TrimSpace(sub.Get(blockContactLastName, elemLastName).Value),
		Email:           strings.TrimSpace(sub.Get(blockContactEmail, elemEmail).Value),
		Phone:           strings.TrimSpace(sub.Get(blockContactPhone, elemPhone).Value),
		Role:            strings.TrimSpace(sub.Get(blockContactRole, elemRole).Value),
		Notes:           strings.TrimSpace(sub.Get(blockContactNotes, elemNotes).Value),
		OrganisationIDs: types.OrganisationIDs(sub.Get(blockContactOrg, flow.orgSelect).SelectedValues),
	}

	created, err := repo.Contact().Create(ctx, contact)
	if resp := submissionErrors(err, contactErrorBlocks); resp != nil {
		return resp, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create contact")
	}

	logging.From(ctx).Info("contact created", "contact_id", created.ID, "dataset", flow.dataset, "user_id", sub.UserID)
	return nil, nil
}

func (uc *RecordUseCase) createOrganisation(ctx context.Context, flow recordFlow, sub *model.ViewSubmission) (*goslack.ViewSubmissionResponse, error) {
	repo, err := uc.books.get(flow.dataset)
	if err != nil {
		return nil, err
	}

	org := &model.Organisation{
		Name:      strings.TrimSpace(sub.Get(blockOrgName, elemName).Value),
		LegalName: strings.TrimSpace(sub.Get(blockOrgLegalName, elemLegalName).Value),
		Website:   strings.TrimSpace(sub.Get(blockOrgWebsite, elemWebsite).Value),
	}
	if flow.dataset == types.DatasetFunder {
		org.Notes = strings.TrimSpace(sub.Get(blockOrgBackground, elemBackground).Value)
	} else {
		org.Notes = strings.TrimSpace(sub.Get(blockOrgNotes, elemNotes).Value)
		org.CurrentOrFutureGrantee = sub.Get(blockOrgGrantee, elemGrantee).SelectedValue == "true"
		org.ProgramIDs = types.ProgramIDs(sub.Get(blockOrgPrograms, elemPrograms).SelectedValues)
	}

	created, err := repo.Organisation().Create(ctx, org)
	if resp := submissionErrors(err, organisationErrorBlocks); resp != nil {
		return resp, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create organisation")
	}

	logging.From(ctx).Info("organisation created", "organisation_id", created.ID, "dataset", flow.dataset, "user_id", sub.UserID)
	return nil, nil
}

type errorBlock struct {
	blockID string
	message string
}

var (
	contactErrorBlocks = map[string]errorBlock{
		"first_name":    {blockContactFirstName, "Please enter a first name."},
		"last_name":     {blockContactLastName, "Please enter a last name."},
		"organisations": {blockContactOrg, "One of the selected organisations no longer exists."},
	}
	organisationErrorBlocks = map[string]errorBlock{
		"name":     {blockOrgName, "Please enter a name."},
		"programs": {blockOrgPrograms, "One of the selected program areas no longer exists."},
	}
)

// submissionErrors maps validation and reference errors to modal input
// errors. It returns nil for any other error.
func submissionErrors(err error, blocks map[string]errorBlock) *goslack.ViewSubmissionResponse {
	if err == nil {
		return nil
	}

	field := ""
	var ge *goerr.Error
	if errors.As(err, &ge) {
		if v, ok := ge.Values()[model.FieldKey].(string); ok {
			field = v
		}
	}

	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrNotFound):
	default:
		return nil
	}

	b, ok := blocks[field]
	if !ok {
		return nil
	}
	return goslack.NewErrorsViewSubmissionResponse(map[string]string{b.blockID: b.message})
}

// confirmContacts posts the current contacts of the message as a threaded
// reply. The bot may not be a member of the channel, which is not an error.
func (uc *RecordUseCase) confirmContacts(ctx context.Context, ds types.Dataset, id types.MessageID) error {
	svc, err := uc.service()
	if err != nil {
		return err
	}

	msg, err := uc.findMessage(ctx, ds, id)
	if err != nil {
		return err
	}

	text := msgNoContacts
	if len(msg.Contacts) > 0 {
		names := make([]string, len(msg.Contacts))
		for i, c := range msg.Contacts {
			names[i] = c.Name()
		}
		text = "The slack message has been successfully associated with " + strings.Join(names, " and ") + "."
	}

	if _, err := svc.PostMessage(ctx, msg.ChannelID, msg.TS, text); err != nil {
		if slack.IsNotInChannel(err) {
			logging.From(ctx).Warn("bot cannot post to channel, confirmation skipped", "channel_id", msg.ChannelID)
			return nil
		}
		return goerr.Wrap(err, "failed to post confirmation", goerr.V(MessageKey, id))
	}
	return nil
}

// findMessage looks the message up in the contact book named by ds, or in
// every book when the modal metadata carried no dataset.
func (uc *RecordUseCase) findMessage(ctx context.Context, ds types.Dataset, id types.MessageID) (*model.Message, error) {
	datasets := []types.Dataset{types.DatasetPartner, types.DatasetFunder}
	if ds != "" {
		datasets = []types.Dataset{ds}
	}
	for _, d := range datasets {
		repo, err := uc.books.get(d)
		if err != nil {
			continue
		}
		msg, err := getMessage(ctx, repo, id)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
	}
	return nil, goerr.Wrap(model.ErrNotFound, "message not found", goerr.V(MessageKey, id))
}

func getMessage(ctx context.Context, repo interfaces.Repository, id types.MessageID) (*model.Message, error) {
	msg, err := repo.Message().Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load message", goerr.V(MessageKey, id))
	}
	return msg, nil
}
