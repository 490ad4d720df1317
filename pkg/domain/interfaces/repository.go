package interfaces

import "context"

// Repository is the contact book store. Every backend (memory, postgres,
// airtable, firestore) implements it, and each dataset (partner, funder) is
// served by its own instance.
type Repository interface {
	Contact() ContactRepository
	Organisation() OrganisationRepository
	Message() MessageRepository
	User() UserRepository
	Program() ProgramRepository
	Grant() GrantRepository
	Admin() AdminRepository

	// Close releases backend connections.
	Close(ctx context.Context) error
}
