package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrNotFound is returned by repositories when a record addressed by ID
	// does not exist.
	ErrNotFound = goerr.New("record not found")

	// ErrValidation is returned when an entity misses a required field.
	ErrValidation = goerr.New("validation failed")

	// ErrEmptyQuery is returned for a blank search term.
	ErrEmptyQuery = goerr.New("empty search query")

	// ErrInvalidQuery is returned when a search term is not a valid pattern.
	ErrInvalidQuery = goerr.New("invalid search query")
)

// Context keys for error values
const (
	FieldKey   = "field"
	QueryKey   = "query"
	ContactKey = "contact_id"
	OrgKey     = "organisation_id"
	MessageKey = "message_id"
)
