package usecase

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
	goslack "github.com/slack-go/slack"
)

// Grants may take this many blocks of a profile, the rest is left to staff.
const maxProfileGrantBlocks = 14

const footnoteText = ":moneybag: = Grants in the previous financial year\n" +
	":crystal_ball: = Future grants\n" +
	":calling: = Point person"

func mrkdwn(text string) *goslack.TextBlockObject {
	return goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false)
}

func plainText(text string) *goslack.TextBlockObject {
	return goslack.NewTextBlockObject(goslack.PlainTextType, text, false, false)
}

// section renders a text section, truncated to what Slack accepts. Use
// sections for free text that must be shown in full.
func section(text string) goslack.Block {
	return goslack.NewSectionBlock(mrkdwn(truncate(text, maxSectionText)), nil, nil)
}

// sections spreads text over as many sections as it needs.
func sections(text string) []goslack.Block {
	var blocks []goslack.Block
	for _, chunk := range chunkText(text, maxSectionText) {
		blocks = append(blocks, section(chunk))
	}
	return blocks
}

func notesSections(notes string) []goslack.Block {
	return sections("*Notes:*\n" + valueOrFallback(notes))
}

func fieldsSection(fields ...string) goslack.Block {
	objs := make([]*goslack.TextBlockObject, len(fields))
	for i, f := range fields {
		objs[i] = mrkdwn(f)
	}
	return goslack.NewSectionBlock(nil, objs, nil)
}

func header(text string) goslack.Block {
	return goslack.NewHeaderBlock(goslack.NewTextBlockObject(goslack.PlainTextType, truncate(text, maxHeaderText), true, false))
}

func divider() goslack.Block {
	return goslack.NewDividerBlock()
}

func footnote() []goslack.Block {
	return []goslack.Block{
		divider(),
		goslack.NewContextBlock("", mrkdwn(footnoteText)),
	}
}

// orEmptyRow returns blocks, or a single fallback row when there are none.
func orEmptyRow(blocks []goslack.Block) []goslack.Block {
	if len(blocks) == 0 {
		return []goslack.Block{section(fallback)}
	}
	return blocks
}

func searchHeader(term string) goslack.Block {
	return section(":mag: Search results for `" + term + "`")
}

// messageBlocks renders one recorded conversation: a divider, who spoke to
// whom and when, then the message text in section sized chunks.
func messageBlocks(m *model.Message, verb string, at time.Time) []goslack.Block {
	names := make([]string, 0, len(m.Contacts))
	for _, c := range m.Contacts {
		names = append(names, c.NameWithOrgs())
	}

	blocks := []goslack.Block{
		divider(),
		section(":speech_balloon: <@" + m.AuthorSlackID + "> " + verb + " " + boldList(names) + " at " + formatTime(at) + ":"),
	}
	return append(blocks, sections(m.Text)...)
}

func contactCard(c *model.Contact) []goslack.Block {
	blocks := []goslack.Block{
		section(":bust_in_silhouette: " + primaryContactEmoji(c) + "*" + c.Name() + "*"),
		fieldsSection(
			"*Primary contact for:* "+programsForContact(c),
			"*Email:* "+valueOrFallback(c.Email),
			"*Phone:* "+valueOrFallback(c.Phone),
			"*Role:* "+valueOrFallback(c.Role),
		),
	}
	return append(blocks, notesSections(c.Notes)...)
}

// funderContactCard is the contact card of the funder dataset. withOrgs adds
// the organisation names next to the contact name, withNotes the notes row.
func funderContactCard(c *model.Contact, withOrgs, withNotes bool) []goslack.Block {
	title := ":bust_in_silhouette: *" + c.Name() + "*"
	if orgs := organisationNames(c); withOrgs && orgs != "" {
		title += ", " + orgs
	}

	fields := []string{
		"*Email:* " + valueOrFallback(c.Email),
		"*Phone:* " + valueOrFallback(c.Phone),
		"*Role:* " + valueOrFallback(c.Role),
	}
	if c.ProfileURL != "" {
		fields = append(fields, link(c.ProfileURL, "GrantsTracker profile"))
	}

	blocks := []goslack.Block{section(title), fieldsSection(fields...)}
	if withNotes {
		blocks = append(blocks, notesSections(c.Notes)...)
	}
	return blocks
}

func grantCard(g *model.Grant, now time.Time) []goslack.Block {
	granted := fallback
	if g.StartedAt != nil {
		granted = formatDate(*g.StartedAt)
	}
	primary := fallback
	if g.Contact != nil {
		primary = g.Contact.Name()
	}

	return []goslack.Block{
		section(grantEmoji(g, now) + " *" + link(g.URL, valueOrFallback(g.Proposal)) + "*"),
		fieldsSection(
			"*Status:* "+valueOrFallback(g.Status),
			"*Amount:* "+grantAmount(g),
			"*Granted date:* "+granted,
			"*Primary contact:* "+primary,
			"*Code:* "+valueOrFallback(g.ProjectCode),
		),
	}
}

// organisationProfile renders the partner organisation profile.
func organisationProfile(org *model.Organisation, now time.Time) []goslack.Block {
	blocks := []goslack.Block{
		header(org.DisplayNameWithAbbrev()),
		divider(),
		fieldsSection(
			"*Website:*\n"+valueOrFallback(org.Website),
			"*Program areas:*\n"+valueOrFallback(strings.Join(org.ProgramNames(), ", ")),
		),
	}
	blocks = append(blocks, notesSections(org.Notes)...)
	blocks = append(blocks, divider(), header("Grants"))

	var grants [][]goslack.Block
	for _, g := range org.SortedGrants() {
		grants = append(grants, grantCard(g, now))
	}
	blocks = append(blocks, orEmptyRow(fitGroups(grants, maxProfileGrantBlocks))...)

	blocks = append(blocks, divider(), header("Staff"))
	var staff [][]goslack.Block
	for _, c := range org.SortedContacts() {
		staff = append(staff, contactCard(c))
	}
	blocks = append(blocks, orEmptyRow(fitGroups(staff, maxBlocks-len(blocks)-len(footnote())))...)

	return append(blocks, footnote()...)
}

// funderProfile renders the funding organisation profile.
func funderProfile(org *model.Organisation) []goslack.Block {
	blocks := []goslack.Block{
		header(org.DisplayNameWithAbbrev()),
		divider(),
		fieldsSection(
			"*GrantsTracker profile:*\n"+link(org.ProfileURL, org.DisplayName()),
			"*Website:*\n"+valueOrFallback(org.Website),
		),
		divider(),
		header("Staff"),
	}

	var staff [][]goslack.Block
	for _, c := range org.SortedContacts() {
		staff = append(staff, funderContactCard(c, false, true))
	}
	blocks = append(blocks, orEmptyRow(fitGroups(staff, maxBlocks-len(blocks)-len(footnote())))...)

	return append(blocks, footnote()...)
}

func contactOption(c *model.Contact) *goslack.OptionBlockObject {
	return goslack.NewOptionBlockObject(c.ID.String(), plainText(truncateLabel(c.NameWithOrgs())), nil)
}

func organisationOption(o *model.Organisation) *goslack.OptionBlockObject {
	return goslack.NewOptionBlockObject(o.ID.String(), plainText(truncateLabel(o.Name)), nil)
}

func programOption(p *model.ProgramArea) *goslack.OptionBlockObject {
	return goslack.NewOptionBlockObject(p.ID.String(), plainText(truncateLabel(p.Name)), nil)
}

// Option labels are limited to 75 characters.
// Slack option labels are limited to 75 characters.
func truncateLabel(s string) string {
	return truncate(s, 75)
}

// truncate cuts s to at most limit runes, ending with an ellipsis when cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
