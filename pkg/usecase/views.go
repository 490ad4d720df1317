package usecase

import (
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	goslack "github.com/slack-go/slack"
)

// Shortcut and modal callback IDs
const (
	CallbackRecordContact             = "record_contact"
	CallbackRecordFunderContact       = "record_funder_contact"
	CallbackUpdateContact             = "update_contact"
	CallbackCreateContact             = "create_contact"
	CallbackCreateFunderContact       = "create_funder_contact"
	CallbackCreateOrganisation        = "create_organisation"
	CallbackCreateFundingOrganisation = "create_funding_organisation"
)

// Block action IDs
const (
	ActionContactSelect             = "contact_select"
	ActionFunderContactSelect       = "funder_contact_select"
	ActionOrganisationSelect        = "organisation_select"
	ActionFundingOrganisationSelect = "funding_organisation_select"
	ActionAddOrganisation           = "add_organisation"
	ActionAddContact                = "add_contact"
	ActionAddFundingOrganisation    = "add_funding_organisation"
	ActionAddFunderContact          = "add_funder_contact"
)

// Input block and element IDs of the create modals. Submission errors are
// keyed by block ID.
const (
	blockContactOrg       = "contact-org"
	blockContactFirstName = "contact-first-name"
	blockContactLastName  = "contact-last-name"
	blockContactRole      = "contact-role"
	blockContactEmail     = "contact-email"
	blockContactPhone     = "contact-phone"
	blockContactNotes     = "contact-notes"

	blockOrgName       = "organisation-name"
	blockOrgLegalName  = "organisation-legal-name"
	blockOrgGrantee    = "organisation-current_or_future_grantee"
	blockOrgWebsite    = "organisation-website"
	blockOrgNotes      = "organisation-notes"
	blockOrgBackground = "organisation-background"
	blockOrgPrograms   = "organisation-programs"

	elemFirstName  = "first-name-value"
	elemLastName   = "last-name-value"
	elemRole       = "role-value"
	elemEmail      = "email-value"
	elemPhone      = "phone-value"
	elemNotes      = "notes-value"
	elemName       = "name-value"
	elemLegalName  = "legal-name-value"
	elemGrantee    = "current_or_future_grantee-value"
	elemWebsite    = "website-value"
	elemBackground = "background-value"
	elemPrograms   = "programs-value"
)

const (
	orgBackgroundHint = "Record background context for the organisation - the role they play broadly and " +
		"in relation to Sunrise, how we work with them, and notes on the depth and quality of our relationship."
	programsHint = "Note: By choosing which programs, you are giving TSP staff access to this grantees " +
		"grant history. Choose carefully ;)"

	minQueryLength = 3
)

// recordFlow holds the IDs and labels that differ between the partner and
// funder recording workflows.
type recordFlow struct {
	dataset             types.Dataset
	shortcut            string
	contactSelect       string
	contactPlaceholder  string
	contactsLabel       string
	orgSelect           string
	addOrganisation     string
	addOrganisationText string
	addContact          string
	createContact       string
	createOrganisation  string
}

var (
	partnerFlow = recordFlow{
		dataset:             types.DatasetPartner,
		shortcut:            CallbackRecordContact,
		contactSelect:       ActionContactSelect,
		contactPlaceholder:  "Search contacts",
		contactsLabel:       "External contacts mentioned in this post:",
		orgSelect:           ActionOrganisationSelect,
		addOrganisation:     ActionAddOrganisation,
		addOrganisationText: "Add new organisation",
		addContact:          ActionAddContact,
		createContact:       CallbackCreateContact,
		createOrganisation:  CallbackCreateOrganisation,
	}

	funderFlow = recordFlow{
		dataset:             types.DatasetFunder,
		shortcut:            CallbackRecordFunderContact,
		contactSelect:       ActionFunderContactSelect,
		contactPlaceholder:  "Search funder contacts",
		contactsLabel:       "Funder contacts mentioned in this post:",
		orgSelect:           ActionFundingOrganisationSelect,
		addOrganisation:     ActionAddFundingOrganisation,
		addOrganisationText: "Add new funding organisation",
		addContact:          ActionAddFunderContact,
		createContact:       CallbackCreateFunderContact,
		createOrganisation:  CallbackCreateFundingOrganisation,
	}

	flows = []recordFlow{partnerFlow, funderFlow}
)

func flowBy(match func(recordFlow) bool) (recordFlow, bool) {
	for _, f := range flows {
		if match(f) {
			return f, true
		}
	}
	return recordFlow{}, false
}

func textInput(blockID, actionID, label string, optional, multiline bool, hint string) *goslack.InputBlock {
	elem := goslack.NewPlainTextInputBlockElement(nil, actionID)
	if multiline {
		elem = elem.WithMultiline(true)
	}
	var hintObj *goslack.TextBlockObject
	if hint != "" {
		hintObj = plainText(hint)
	}
	block := goslack.NewInputBlock(blockID, plainText(label), hintObj, elem)
	block.Optional = optional
	return block
}

func modal(callbackID, title, metadata string, blocks ...goslack.Block) goslack.ModalViewRequest {
	return goslack.ModalViewRequest{
		Type:            goslack.VTModal,
		CallbackID:      callbackID,
		Title:           plainText(title),
		Close:           plainText("Cancel"),
		Submit:          plainText("Save"),
		PrivateMetadata: metadata,
		Blocks:          goslack.Blocks{BlockSet: blocks},
	}
}

// updateContactView lists the contacts tagged on the message and offers to
// add organisations and contacts.
func updateContactView(flow recordFlow, msg *model.Message) goslack.ModalViewRequest {
	sel := goslack.NewOptionsMultiSelectBlockElement(
		goslack.MultiOptTypeExternal,
		goslack.NewTextBlockObject(goslack.PlainTextType, flow.contactPlaceholder, true, false),
		flow.contactSelect,
	)
	minLen := minQueryLength
	sel.MinQueryLength = &minLen
	for _, c := range msg.Contacts {
		sel.InitialOptions = append(sel.InitialOptions, contactOption(c))
	}

	buttons := goslack.NewActionBlock("",
		button(flow.addOrganisation, flow.addOrganisationText),
		button(flow.addContact, "Add new contact"),
	)

	return modal(CallbackUpdateContact, "Record external contact", model.MessageRef(flow.dataset, msg.ID),
		goslack.NewSectionBlock(mrkdwn(flow.contactsLabel), nil, goslack.NewAccessory(sel)),
		buttons,
	)
}

func button(actionID, text string) *goslack.ButtonBlockElement {
	return goslack.NewButtonBlockElement(actionID, actionID,
		goslack.NewTextBlockObject(goslack.PlainTextType, text, true, false))
}

// permissionDeniedView replaces the recording modal for users who may not
// record funder contacts.
func permissionDeniedView() goslack.ModalViewRequest {
	return goslack.ModalViewRequest{
		Type:       goslack.VTModal,
		CallbackID: CallbackUpdateContact,
		Title:      plainText("Record external contact"),
		Close:      plainText("Close"),
		Blocks: goslack.Blocks{BlockSet: []goslack.Block{
			section("Sorry! You cannot access this shortcut."),
		}},
	}
}

func createContactView(flow recordFlow, metadata string) goslack.ModalViewRequest {
	orgSel := goslack.NewOptionsMultiSelectBlockElement(
		goslack.MultiOptTypeExternal,
		goslack.NewTextBlockObject(goslack.PlainTextType, "Search organisation", true, false),
		flow.orgSelect,
	)
	minLen := minQueryLength
	orgSel.MinQueryLength = &minLen

	return modal(flow.createContact, "Create external contact", metadata,
		goslack.NewInputBlock(blockContactOrg, plainText("Partner Organisation"),
			plainText("If you cannot find the organisation, click cancel and add the organisation first"),
			orgSel),
		textInput(blockContactFirstName, elemFirstName, "First Name", false, false, ""),
		textInput(blockContactLastName, elemLastName, "Last Name", false, false, ""),
		textInput(blockContactRole, elemRole, "Role / title", true, false, ""),
		textInput(blockContactEmail, elemEmail, "Email", false, false, ""),
		textInput(blockContactPhone, elemPhone, "Ph. number", true, false, ""),
		textInput(blockContactNotes, elemNotes, "Additional Notes", true, true, ""),
	)
}

func createOrganisationView(metadata string, programs []*model.ProgramArea) goslack.ModalViewRequest {
	grantee := goslack.NewOptionsSelectBlockElement(goslack.OptTypeStatic, nil, elemGrantee,
		goslack.NewOptionBlockObject("false", plainText("no"), nil),
		goslack.NewOptionBlockObject("true", plainText("yes"), nil),
	)
	granteeBlock := goslack.NewInputBlock(blockOrgGrantee, plainText("Current or future grantee"), nil, grantee)
	granteeBlock.Optional = true

	blocks := []goslack.Block{
		textInput(blockOrgName, elemName, "Common name", false, false, ""),
		textInput(blockOrgLegalName, elemLegalName, "Legal name", true, false, "If not different, copy the common name in here too"),
		granteeBlock,
		textInput(blockOrgWebsite, elemWebsite, "Website", true, false, ""),
		textInput(blockOrgNotes, elemNotes, "Basic info on partner", true, true, orgBackgroundHint),
	}

	// A static select without options is rejected by Slack.
	if len(programs) > 0 {
		opts := make([]*goslack.OptionBlockObject, 0, min(len(programs), maxOptions))
		for _, p := range programs[:min(len(programs), maxOptions)] {
			opts = append(opts, programOption(p))
		}
		sel := goslack.NewOptionsMultiSelectBlockElement(goslack.MultiOptTypeStatic, nil, elemPrograms, opts...)
		block := goslack.NewInputBlock(blockOrgPrograms, plainText("Program areas"), plainText(programsHint), sel)
		block.Optional = true
		blocks = append(blocks, block)
	}

	return modal(CallbackCreateOrganisation, "Create organisation", metadata, blocks...)
}

func createFundingOrganisationView(metadata string) goslack.ModalViewRequest {
	return modal(CallbackCreateFundingOrganisation, "Create organisation", metadata,
		textInput(blockOrgName, elemName, "Common name", false, false, ""),
		textInput(blockOrgLegalName, elemLegalName, "Legal name", true, false, "If not different, copy the common name in here too"),
		textInput(blockOrgWebsite, elemWebsite, "Website", true, false, ""),
		textInput(blockOrgBackground, elemBackground, "Organisation background", true, true, orgBackgroundHint),
	)
}
