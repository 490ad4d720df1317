package model

import (
	"strings"

	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// Request DTOs decouple the usecases from the Slack payload shapes.

// CommandRequest is a slash command invocation.
type CommandRequest struct {
	Command   string
	Text      string
	UserID    string
	UserName  string
	ChannelID string
	TeamID    string
	TriggerID string
}

// ShortcutMessage is the message a message shortcut was invoked on.
type ShortcutMessage struct {
	User string
	Team string
	TS   string
	Text string
}

// ShortcutRequest is a message shortcut invocation.
type ShortcutRequest struct {
	CallbackID string
	TriggerID  string
	UserID     string
	UserName   string
	TeamID     string
	ChannelID  string
	Message    ShortcutMessage
}

// ActionRequest is a block action from a modal.
type ActionRequest struct {
	ActionID        string
	BlockID         string
	TriggerID       string
	UserID          string
	PrivateMetadata string
	Value           string
	SelectedValues  []string
}

// OptionsRequest is an external select typeahead lookup.
type OptionsRequest struct {
	ActionID string
	Value    string
}

// Option is a select menu entry.
type Option struct {
	Value string
	Label string
}

// ViewValue holds the submitted state of one input element.
type ViewValue struct {
	Value          string
	SelectedValue  string
	SelectedValues []string
}

// ViewSubmission is a modal submission. Values is keyed by block ID, then
// action ID.
type ViewSubmission struct {
	CallbackID      string
	PrivateMetadata string
	UserID          string
	UserName        string
	Values          map[string]map[string]ViewValue
}

// Get returns the value for blockID/actionID, or the zero value.
func (s *ViewSubmission) Get(blockID, actionID string) ViewValue {
	if s == nil || s.Values == nil {
		return ViewValue{}
	}
	return s.Values[blockID][actionID]
}

// MessageID returns the message ID carried in the private metadata.
func (s *ViewSubmission) MessageID() types.MessageID {
	_, id := ParseMessageRef(s.PrivateMetadata)
	return id
}

// Dataset returns the dataset carried in the private metadata, or "" when
// the metadata is a bare message ID.
func (s *ViewSubmission) Dataset() types.Dataset {
	ds, _ := ParseMessageRef(s.PrivateMetadata)
	return ds
}

// MessageRef formats the private metadata of the recording modals as
// "<dataset>:<message ID>".
func MessageRef(ds types.Dataset, id types.MessageID) string {
	return ds.String() + ":" + id.String()
}

// ParseMessageRef splits metadata written by MessageRef. A bare message ID
// yields an empty dataset.
func ParseMessageRef(metadata string) (types.Dataset, types.MessageID) {
	prefix, id, ok := strings.Cut(metadata, ":")
	if ok && types.Dataset(prefix).Validate() == nil {
		return types.Dataset(prefix), types.MessageID(id)
	}
	return "", types.MessageID(metadata)
}
