package airtable

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"golang.org/x/text/currency"
)

// The base exposes contacts and grants of an organisation as rollups of
// pipe separated strings. They are decoded here so nothing past the
// repository sees the packed form.

// parseContactInfo decodes "id|first|last|email|phone|role|notes". Missing
// trailing parts are left empty. It returns nil for a blank string.
func parseContactInfo(info string) *model.Contact {
	if strings.TrimSpace(info) == "" {
		return nil
	}
	parts := splitN(info, 7)
	return &model.Contact{
		ID:        types.ContactID(parts[0]),
		FirstName: parts[1],
		LastName:  parts[2],
		Email:     parts[3],
		Phone:     parts[4],
		Role:      parts[5],
		Notes:     parts[6],
	}
}

// parseGrantInfo decodes "yearMonth|proposal|url|codedAmount|plannedAUD".
// The ID is derived from the whole string so it is stable across reads.
func parseGrantInfo(orgID types.OrganisationID, info string) *model.Grant {
	if strings.TrimSpace(info) == "" {
		return nil
	}
	parts := splitN(info, 5)

	g := &model.Grant{
		ID:             types.GrantID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(orgID)+"|"+info)).String()),
		OrganisationID: orgID,
		Proposal:       parts[1],
		URL:            parts[2],
	}
	if t, ok := parseYearMonth(parts[0]); ok {
		g.StartedAt = &t
	}
	g.Amount, g.Currency = parseAmount(parts[3])
	if planned, _ := parseAmount(parts[4]); planned != 0 {
		g.PlannedAmount = planned
		if g.Currency == "" {
			g.Currency = "AUD"
		}
	}
	return g
}

func splitN(s string, n int) []string {
	parts := strings.SplitN(s, "|", n)
	for len(parts) < n {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

var yearMonthLayouts = []string{"2006-01", "2006-01-02", "2006/01", "01/2006", "2006"}

func parseYearMonth(s string) (time.Time, bool) {
	for _, layout := range yearMonthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount reads amounts such as "USD 50,000", "$12,500.50" or "20000".
// A three letter ISO 4217 code, when present, is returned as the currency.
func parseAmount(s string) (float64, string) {
	var code string
	var digits strings.Builder
	var letters []rune

	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-':
			digits.WriteRune(r)
		case unicode.IsLetter(r):
			letters = append(letters, r)
		}
	}
	if unit, err := currency.ParseISO(string(letters)); err == nil && len(letters) == 3 {
		code = unit.String()
	}

	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return 0, code
	}
	return v, code
}
