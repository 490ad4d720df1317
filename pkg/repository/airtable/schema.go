package airtable

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// Schema maps the contact book onto the tables and fields of an Airtable
// base. Field names left empty are not read or written.
type Schema struct {
	// View filters every list request.
	View string `toml:"view"`

	// OrganisationURL and ContactURL are prefixes joined with the record ID
	// to build profile links. Empty disables the link. The contact URL of
	// the funder tracker differs per deployment and has no default.
	OrganisationURL string `toml:"organisation_url"`
	ContactURL      string `toml:"contact_url"`

	Organisations OrganisationTable `toml:"organisations"`
	Contacts      ContactTable      `toml:"contacts"`
	Messages      MessageTable      `toml:"messages"`
	Programs      ProgramTable      `toml:"programs"`
	Admins        AdminTable        `toml:"admins"`
}

type OrganisationTable struct {
	Table        string `toml:"table"`
	Display      string `toml:"display"`
	Name         string `toml:"name"`
	LegalName    string `toml:"legal_name"`
	Abbreviation string `toml:"abbreviation"`
	Website      string `toml:"website"`
	Notes        string `toml:"notes"`
	Grantee      string `toml:"grantee"`
	Programs     string `toml:"programs"`

	// Packed lookup fields, parsed by parseContactInfo and parseGrantInfo.
	ContactInfo    string `toml:"contact_info"`
	ProgramDisplay string `toml:"program_display"`
	GrantInfo      string `toml:"grant_info"`
}

type ContactTable struct {
	Table         string `toml:"table"`
	Display       string `toml:"display"`
	FirstName     string `toml:"first_name"`
	LastName      string `toml:"last_name"`
	Email         string `toml:"email"`
	Phone         string `toml:"phone"`
	Role          string `toml:"role"`
	Notes         string `toml:"notes"`
	Organisations string `toml:"organisations"`
	Programs      string `toml:"programs"`
}

type MessageTable struct {
	Table       string `toml:"table"`
	ChannelID   string `toml:"channel_id"`
	SlackID     string `toml:"slack_id"`
	Timestamp   string `toml:"timestamp"`
	Text        string `toml:"text"`
	Contacts    string `toml:"contacts"`
	CreatedAt   string `toml:"created_at"`
	SearchIndex string `toml:"search_index"`
}

type ProgramTable struct {
	Table   string `toml:"table"`
	Display string `toml:"display"`
	Name    string `toml:"name"`
}

type AdminTable struct {
	Table    string `toml:"table"`
	Username string `toml:"username"`
}

const defaultView = "Slack External Contacts filter"

// DefaultPartnerSchema matches the partner base.
func DefaultPartnerSchema() Schema {
	return Schema{
		View: defaultView,
		Organisations: OrganisationTable{
			Table:          "Partner Organisations",
			Display:        "EC-display",
			Name:           "Short Name",
			LegalName:      "Legal name (unless Auspicee)",
			Abbreviation:   "Abbreviation",
			Website:        "Website",
			Notes:          "Notes",
			Grantee:        "Granted to (or future grant plan)",
			Programs:       "Programs",
			ContactInfo:    "EC-contact-info",
			ProgramDisplay: "EC-program-display",
			GrantInfo:      "EC-grant-info",
		},
		Contacts: ContactTable{
			Table:         "Contacts",
			Display:       "EC-display",
			FirstName:     "First Name",
			LastName:      "Last Name",
			Email:         "Email",
			Phone:         "Number",
			Role:          "Role / title",
			Notes:         "Notes",
			Organisations: "Partner organisation",
		},
		Messages: MessageTable{
			Table:       "Messages",
			ChannelID:   "channelID",
			SlackID:     "slackID",
			Timestamp:   "timestamp",
			Text:        "text",
			Contacts:    "contacts",
			CreatedAt:   "createdAt",
			SearchIndex: "EC-search-index",
		},
		Programs: ProgramTable{
			Table:   "Projects",
			Display: "EC-display",
			Name:    "Name",
		},
	}
}

// DefaultFunderSchema matches the funder base. It has no program or grant
// data and adds the admin table used for permission checks.
func DefaultFunderSchema() Schema {
	return Schema{
		View:            defaultView,
		OrganisationURL: "https://granttracker.sunriseproject.org.au/partner-organisations2/view/po2_",
		Organisations: OrganisationTable{
			Table:       "Funding organisations",
			Display:     "EC-display",
			Name:        "Short name",
			LegalName:   "Organisation name",
			Website:     "Website",
			Notes:       "Organisation background",
			ContactInfo: "EC-contact-info",
		},
		Contacts: ContactTable{
			Table:         "Contacts",
			Display:       "EC-display",
			FirstName:     "First Name",
			LastName:      "Last Name",
			Email:         "Email",
			Phone:         "Phone",
			Role:          "Role",
			Notes:         "Notes",
			Organisations: "Funding organisations",
		},
		Messages: MessageTable{
			Table:       "Messages",
			ChannelID:   "channelID",
			SlackID:     "slackID",
			Timestamp:   "timestamp",
			Text:        "text",
			Contacts:    "contacts",
			CreatedAt:   "createdAt",
			SearchIndex: "EC-search-index",
		},
		Admins: AdminTable{
			Table:    "Admins",
			Username: "EC-slack-username",
		},
	}
}

// SchemaFile is the TOML layout of --airtable-schema. Either section may be
// omitted to keep the built-in default.
type SchemaFile struct {
	Partner *Schema `toml:"partner"`
	Funder  *Schema `toml:"funder"`
}

// LoadSchemaFile reads a schema file. Sections present in the file replace
// the defaults wholesale.
func LoadSchemaFile(path string) (partner, funder Schema, err error) {
	partner, funder = DefaultPartnerSchema(), DefaultFunderSchema()
	if path == "" {
		return partner, funder, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return partner, funder, goerr.Wrap(err, "failed to read airtable schema", goerr.V("path", path))
	}

	var file SchemaFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return partner, funder, goerr.Wrap(err, "failed to parse airtable schema", goerr.V("path", path))
	}

	if file.Partner != nil {
		partner = *file.Partner
	}
	if file.Funder != nil {
		funder = *file.Funder
	}
	if err := partner.Validate(); err != nil {
		return partner, funder, goerr.Wrap(err, "invalid partner schema", goerr.V("path", path))
	}
	if err := funder.Validate(); err != nil {
		return partner, funder, goerr.Wrap(err, "invalid funder schema", goerr.V("path", path))
	}
	return partner, funder, nil
}

// Validate checks the tables and fields every operation relies on.
func (s Schema) Validate() error {
	required := map[string]string{
		"organisations.table":   s.Organisations.Table,
		"organisations.display": s.Organisations.Display,
		"organisations.name":    s.Organisations.Name,
		"contacts.table":        s.Contacts.Table,
		"contacts.display":      s.Contacts.Display,
		"contacts.first_name":   s.Contacts.FirstName,
		"contacts.last_name":    s.Contacts.LastName,
		"messages.table":        s.Messages.Table,
		"messages.channel_id":   s.Messages.ChannelID,
		"messages.timestamp":    s.Messages.Timestamp,
		"messages.contacts":     s.Messages.Contacts,
		"messages.search_index": s.Messages.SearchIndex,
	}
	for key, v := range required {
		if v == "" {
			return goerr.New("airtable schema field is required", goerr.V("key", key))
		}
	}
	if s.Admins.Table != "" && s.Admins.Username == "" {
		return goerr.New("airtable schema field is required", goerr.V("key", "admins.username"))
	}
	return nil
}
