package firestore

import (
	"time"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

type userDoc struct {
	ID        string    `firestore:"id"`
	SlackID   string    `firestore:"slack_id"`
	TeamID    string    `firestore:"team_id"`
	Name      string    `firestore:"name"`
	Username  string    `firestore:"username"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	ID            string    `firestore:"id"`
	ChannelID     string    `firestore:"channel_id"`
	TS            string    `firestore:"ts"`
	Text          string    `firestore:"text"`
	AuthorSlackID string    `firestore:"author_slack_id"`
	UserID        string    `firestore:"user_id"`
	ContactIDs    []string  `firestore:"contact_ids"`
	CreatedAt     time.Time `firestore:"created_at"`
	UpdatedAt     time.Time `firestore:"updated_at"`
}

type contactDoc struct {
	ID              string    `firestore:"id"`
	FirstName       string    `firestore:"first_name"`
	LastName        string    `firestore:"last_name"`
	Email           string    `firestore:"email"`
	Phone           string    `firestore:"phone"`
	Role            string    `firestore:"role"`
	Notes           string    `firestore:"notes"`
	Point           bool      `firestore:"point"`
	OrganisationIDs []string  `firestore:"organisation_ids"`
	ProgramIDs      []string  `firestore:"program_ids"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

type organisationDoc struct {
	ID                          string    `firestore:"id"`
	Name                        string    `firestore:"name"`
	LegalName                   string    `firestore:"legal_name"`
	Abbreviation                string    `firestore:"abbreviation"`
	Website                     string    `firestore:"website"`
	Notes                       string    `firestore:"notes"`
	CurrentOrFutureGrantee      bool      `firestore:"current_or_future_grantee"`
	PreviousGrants              bool      `firestore:"previous_grants"`
	GrantsApproved              bool      `firestore:"grants_approved"`
	GrantsDistributed           bool      `firestore:"grants_distributed"`
	GrantsInProcess             bool      `firestore:"grants_in_process"`
	FutureGrantsInConsideration bool      `firestore:"future_grants_in_consideration"`
	ProgramIDs                  []string  `firestore:"program_ids"`
	CreatedAt                   time.Time `firestore:"created_at"`
	UpdatedAt                   time.Time `firestore:"updated_at"`
}

type programDoc struct {
	ID    string `firestore:"id"`
	Name  string `firestore:"name"`
	Notes string `firestore:"notes"`
}

type grantDoc struct {
	ID             string     `firestore:"id"`
	OrganisationID string     `firestore:"organisation_id"`
	ContactID      string     `firestore:"contact_id"`
	Proposal       string     `firestore:"proposal"`
	ProjectCode    string     `firestore:"project_code"`
	Amount         float64    `firestore:"amount"`
	PlannedAmount  float64    `firestore:"planned_amount"`
	Currency       string     `firestore:"currency"`
	Status         string     `firestore:"status"`
	StartedAt      *time.Time `firestore:"started_at"`
	URL            string     `firestore:"url"`
	Notes          string     `firestore:"notes"`
}

type adminDoc struct {
	Username  string    `firestore:"username"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

func typed[T ~string](values []string) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		out = append(out, T(v))
	}
	return out
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:        types.UserID(d.ID),
		SlackID:   d.SlackID,
		TeamID:    d.TeamID,
		Name:      d.Name,
		Username:  d.Username,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (d *programDoc) toModel() *model.ProgramArea {
	return &model.ProgramArea{ID: types.ProgramID(d.ID), Name: d.Name, Notes: d.Notes}
}

func toContactDoc(c *model.Contact) *contactDoc {
	return &contactDoc{
		ID:              c.ID.String(),
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Email:           c.Email,
		Phone:           c.Phone,
		Role:            c.Role,
		Notes:           c.Notes,
		Point:           c.Point,
		OrganisationIDs: toStrings(c.OrganisationIDs),
		ProgramIDs:      toStrings(c.ProgramIDs),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (d *contactDoc) toModel() *model.Contact {
	return &model.Contact{
		ID:              types.ContactID(d.ID),
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.Phone,
		Role:            d.Role,
		Notes:           d.Notes,
		Point:           d.Point,
		OrganisationIDs: typed[types.OrganisationID](d.OrganisationIDs),
		ProgramIDs:      typed[types.ProgramID](d.ProgramIDs),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func toOrganisationDoc(o *model.Organisation) *organisationDoc {
	return &organisationDoc{
		ID:                          o.ID.String(),
		Name:                        o.Name,
		LegalName:                   o.LegalName,
		Abbreviation:                o.Abbreviation,
		Website:                     o.Website,
		Notes:                       o.Notes,
		CurrentOrFutureGrantee:      o.CurrentOrFutureGrantee,
		PreviousGrants:              o.PreviousGrants,
		GrantsApproved:              o.GrantsApproved,
		GrantsDistributed:           o.GrantsDistributed,
		GrantsInProcess:             o.GrantsInProcess,
		FutureGrantsInConsideration: o.FutureGrantsInConsideration,
		ProgramIDs:                  toStrings(o.ProgramIDs),
		CreatedAt:                   o.CreatedAt,
		UpdatedAt:                   o.UpdatedAt,
	}
}

func (d *organisationDoc) toModel() *model.Organisation {
	return &model.Organisation{
		ID:                          types.OrganisationID(d.ID),
		Name:                        d.Name,
		LegalName:                   d.LegalName,
		Abbreviation:                d.Abbreviation,
		Website:                     d.Website,
		Notes:                       d.Notes,
		CurrentOrFutureGrantee:      d.CurrentOrFutureGrantee,
		PreviousGrants:              d.PreviousGrants,
		GrantsApproved:              d.GrantsApproved,
		GrantsDistributed:           d.GrantsDistributed,
		GrantsInProcess:             d.GrantsInProcess,
		FutureGrantsInConsideration: d.FutureGrantsInConsideration,
		ProgramIDs:                  typed[types.ProgramID](d.ProgramIDs),
		CreatedAt:                   d.CreatedAt,
		UpdatedAt:                   d.UpdatedAt,
	}
}

func (d *grantDoc) toModel() *model.Grant {
	return &model.Grant{
		ID:             types.GrantID(d.ID),
		OrganisationID: types.OrganisationID(d.OrganisationID),
		ContactID:      types.ContactID(d.ContactID),
		Proposal:       d.Proposal,
		ProjectCode:    d.ProjectCode,
		Amount:         d.Amount,
		PlannedAmount:  d.PlannedAmount,
		Currency:       d.Currency,
		Status:         d.Status,
		StartedAt:      d.StartedAt,
		URL:            d.URL,
		Notes:          d.Notes,
	}
}

func (d *messageDoc) toModel() *model.Message {
	return &model.Message{
		ID:            types.MessageID(d.ID),
		ChannelID:     d.ChannelID,
		TS:            d.TS,
		Text:          d.Text,
		AuthorSlackID: d.AuthorSlackID,
		UserID:        types.UserID(d.UserID),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
