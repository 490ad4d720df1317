package model

import (
	"strings"
	"time"

	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// Grant is a funding record of an organisation. Grants are created out of
// band (seed data, the tabular base) and only read by the bot.
type Grant struct {
	ID             types.GrantID
	OrganisationID types.OrganisationID
	ContactID      types.ContactID
	Contact        *Contact

	Proposal      string
	ProjectCode   string
	Amount        float64
	PlannedAmount float64
	Currency      string
	Status        string
	StartedAt     *time.Time
	URL           string
	Notes         string
}

// IsFuture reports whether the grant is still under consideration at now.
func (g *Grant) IsFuture(now time.Time) bool {
	if g.StartedAt != nil && g.StartedAt.After(now) {
		return true
	}
	status := strings.ToLower(g.Status)
	return strings.Contains(status, "future") || strings.Contains(status, "consideration")
}
