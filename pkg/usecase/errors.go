package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// Routing errors
	ErrUnknownCommand  = goerr.New("unknown command")
	ErrUnknownCallback = goerr.New("unknown callback")
	ErrUnknownAction   = goerr.New("unknown action")

	// Access control errors
	ErrPermissionDenied = goerr.New("permission denied")
)

// Context keys for error values
const (
	CommandKey  = "command"
	CallbackKey = "callback_id"
	ActionKey   = "action_id"
	DatasetKey  = "dataset"
	MessageKey  = "message_id"
)

// Replies shown to users
const (
	msgFailure          = "Sorry, something went wrong while searching. Please try again later."
	msgCommandDenied    = "Sorry! You cannot access this command."
	msgNoContacts       = "Slack message has been updated with no associated contacts."
	msgContactsUsage    = "Please specify text to search to contacts with e.g. `/contacts Kajute`"
	msgOrgUsage         = "Please specify text to search organisation names with with e.g. `/organisations Sunrise`"
	msgFundingOrgUsage  = "Please specify text to search organisation names with e.g. `/funding-org Sunrise`"
	msgFundingUsage     = "Please specify text to search to contacts with e.g. `/funding-contacts Kajute`"
	msgOrganisationGone = "The organisation matching `%s` could not be loaded. Please try again."
)
