package postgres

import (
	"time"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// Table names come from the naming strategy (users, messages, contacts,
// organisations, program_areas, grants, admins) so that a table prefix
// applies. Do not add TableName methods.

type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	SlackID   string `gorm:"uniqueIndex;not null"`
	TeamID    string
	Name      string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Message struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	ChannelID string `gorm:"not null;index:,unique,composite:channel_ts"`
	TS        string `gorm:"not null;index:,unique,composite:channel_ts"`
	Text      string
	UserID    string    `gorm:"type:uuid;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	Contacts  []Contact `gorm:"many2many:message_contacts"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

type Contact struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	FirstName     string `gorm:"not null"`
	LastName      string `gorm:"not null"`
	Email         string
	Phone         string
	Role          string
	Notes         string
	Point         bool
	Organisations []Organisation `gorm:"many2many:contact_organisations"`
	Programs      []ProgramArea  `gorm:"many2many:contact_programs"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Organisation struct {
	ID                          string `gorm:"type:uuid;primaryKey"`
	Name                        string `gorm:"not null"`
	LegalName                   string
	Abbreviation                string
	Website                     string
	Notes                       string
	CurrentOrFutureGrantee      bool
	PreviousGrants              bool
	GrantsApproved              bool
	GrantsDistributed           bool
	GrantsInProcess             bool
	FutureGrantsInConsideration bool
	Programs                    []ProgramArea `gorm:"many2many:organisation_programs"`
	Contacts                    []Contact     `gorm:"many2many:contact_organisations"`
	Grants                      []Grant
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

type ProgramArea struct {
	ID    string `gorm:"type:uuid;primaryKey"`
	Name  string `gorm:"not null"`
	Notes string
}

type Grant struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	OrganisationID string  `gorm:"type:uuid;index;not null"`
	ContactID      *string `gorm:"type:uuid"`
	Contact        *Contact
	Proposal       string
	ProjectCode    string
	Amount         float64
	PlannedAmount  float64
	Currency       string
	Status         string
	StartedAt      *time.Time
	URL            string
	Notes          string
}

type Admin struct {
	Username  string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:        types.UserID(u.ID),
		SlackID:   u.SlackID,
		TeamID:    u.TeamID,
		Name:      u.Name,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (p *ProgramArea) toModel() *model.ProgramArea {
	return &model.ProgramArea{
		ID:    types.ProgramID(p.ID),
		Name:  p.Name,
		Notes: p.Notes,
	}
}

func (o *Organisation) toModel() *model.Organisation {
	org := &model.Organisation{
		ID:                          types.OrganisationID(o.ID),
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
		CreatedAt:                   o.CreatedAt,
		UpdatedAt:                   o.UpdatedAt,
	}
	for i := range o.Programs {
		org.ProgramIDs = append(org.ProgramIDs, types.ProgramID(o.Programs[i].ID))
		org.Programs = append(org.Programs, o.Programs[i].toModel())
	}
	return org
}

func (c *Contact) toModel() *model.Contact {
	contact := &model.Contact{
		ID:            types.ContactID(c.ID),
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Email:         c.Email,
		Phone:         c.Phone,
		Role:          c.Role,
		Notes:         c.Notes,
		Point:         c.Point,
		Organisations: make([]*model.Organisation, 0, len(c.Organisations)),
		Programs:      make([]*model.ProgramArea, 0, len(c.Programs)),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	for i := range c.Organisations {
		contact.OrganisationIDs = append(contact.OrganisationIDs, types.OrganisationID(c.Organisations[i].ID))
		contact.Organisations = append(contact.Organisations, c.Organisations[i].toModel())
	}
	for i := range c.Programs {
		contact.ProgramIDs = append(contact.ProgramIDs, types.ProgramID(c.Programs[i].ID))
		contact.Programs = append(contact.Programs, c.Programs[i].toModel())
	}
	return contact
}

func (g *Grant) toModel() *model.Grant {
	grant := &model.Grant{
		ID:             types.GrantID(g.ID),
		OrganisationID: types.OrganisationID(g.OrganisationID),
		Proposal:       g.Proposal,
		ProjectCode:    g.ProjectCode,
		Amount:         g.Amount,
		PlannedAmount:  g.PlannedAmount,
		Currency:       g.Currency,
		Status:         g.Status,
		StartedAt:      g.StartedAt,
		URL:            g.URL,
		Notes:          g.Notes,
	}
	if g.ContactID != nil {
		grant.ContactID = types.ContactID(*g.ContactID)
	}
	if g.Contact != nil {
		grant.Contact = g.Contact.toModel()
	}
	return grant
}

func (m *Message) toModel() *model.Message {
	msg := &model.Message{
		ID:            types.MessageID(m.ID),
		ChannelID:     m.ChannelID,
		TS:            m.TS,
		Text:          m.Text,
		AuthorSlackID: m.User.SlackID,
		UserID:        types.UserID(m.UserID),
		Contacts:      make([]*model.Contact, 0, len(m.Contacts)),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	for i := range m.Contacts {
		msg.Contacts = append(msg.Contacts, m.Contacts[i].toModel())
	}
	return msg
}
