package model

import (
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// Organisation is a partner or funding organisation.
type Organisation struct {
	ID                     types.OrganisationID
	Name                   string
	LegalName              string
	Abbreviation           string
	Website                string
	Notes                  string
	CurrentOrFutureGrantee bool

	// Grant summary
	PreviousGrants              bool
	GrantsApproved              bool
	GrantsDistributed           bool
	GrantsInProcess             bool
	FutureGrantsInConsideration bool

	ProgramIDs []types.ProgramID

	// Populated by GetDetail
	Programs []*ProgramArea
	Contacts []*Contact
	Grants   []*Grant

	ProfileURL string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName returns the name annotated with grant emoji.
func (o *Organisation) DisplayName() string {
	name := o.Name
	if o.PreviousGrants {
		name += ":moneybag:"
	}
	if o.FutureGrantsInConsideration {
		name += ":crystal_ball:"
	}
	return name
}

// DisplayNameWithAbbrev returns DisplayName followed by " (ABBR)" when an
// abbreviation is set.
func (o *Organisation) DisplayNameWithAbbrev() string {
	if o.Abbreviation == "" {
		return o.DisplayName()
	}
	return o.DisplayName() + " (" + o.Abbreviation + ")"
}

// ProgramNames returns the sorted program area names.
func (o *Organisation) ProgramNames() []string {
	names := make([]string, 0, len(o.Programs))
	for _, p := range o.Programs {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// SortedContacts returns contacts ordered by last name, then first name.
func (o *Organisation) SortedContacts() []*Contact {
	out := append([]*Contact(nil), o.Contacts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out
}

// SortedGrants returns grants ordered by start date. Grants without a start
// date come last.
func (o *Organisation) SortedGrants() []*Grant {
	out := append([]*Grant(nil), o.Grants...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].StartedAt, out[j].StartedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}

func (o *Organisation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return goerr.Wrap(ErrValidation, "organisation name is required", goerr.V(FieldKey, "name"))
	}
	return nil
}

func (o *Organisation) Normalize() {
	o.ProgramIDs = uniq(o.ProgramIDs)
}
