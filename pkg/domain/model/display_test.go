package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

func TestOrganisation_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		org  model.Organisation
		want string
		abbr string
	}{
		{
			name: "plain",
			org:  model.Organisation{Name: "Sunrise Project"},
			want: "Sunrise Project",
			abbr: "Sunrise Project",
		},
		{
			name: "previous grants and abbreviation",
			org:  model.Organisation{Name: "Sunrise Project", Abbreviation: "TSP", PreviousGrants: true},
			want: "Sunrise Project:moneybag:",
			abbr: "Sunrise Project:moneybag: (TSP)",
		},
		{
			name: "both emoji",
			org:  model.Organisation{Name: "Acme", PreviousGrants: true, FutureGrantsInConsideration: true},
			want: "Acme:moneybag::crystal_ball:",
			abbr: "Acme:moneybag::crystal_ball:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.org.DisplayName()).Equal(tt.want)
			gt.Value(t, tt.org.DisplayNameWithAbbrev()).Equal(tt.abbr)
		})
	}
}

func TestContact_NameWithOrgs(t *testing.T) {
	c := &model.Contact{FirstName: "Jane", LastName: "Kajute"}
	gt.Value(t, c.Name()).Equal("Jane Kajute")
	gt.Value(t, c.NameWithOrgs()).Equal("Jane Kajute")

	c.Organisations = []*model.Organisation{
		{Name: "Sunrise", PreviousGrants: true},
		{Name: "Other"},
	}
	gt.Value(t, c.NameWithOrgs()).Equal("Jane Kajute [Sunrise:moneybag:, Other]")
}

func TestContact_Validate(t *testing.T) {
	gt.NoError(t, (&model.Contact{FirstName: "Jane", LastName: "Kajute"}).Validate())
	gt.Error(t, (&model.Contact{FirstName: "Jane"}).Validate()).Is(model.ErrValidation)
	gt.Error(t, (&model.Contact{LastName: "Kajute"}).Validate()).Is(model.ErrValidation)
	gt.Error(t, (&model.Contact{FirstName: " ", LastName: "Kajute"}).Validate()).Is(model.ErrValidation)
}

func TestContact_Normalize(t *testing.T) {
	c := &model.Contact{
		OrganisationIDs: []types.OrganisationID{"a", "b", "a"},
		ProgramIDs:      []types.ProgramID{"p", "p"},
	}
	c.Normalize()
	gt.Array(t, c.OrganisationIDs).Length(2)
	gt.Array(t, c.ProgramIDs).Length(1)
}

func TestOrganisation_Validate(t *testing.T) {
	gt.NoError(t, (&model.Organisation{Name: "Sunrise"}).Validate())
	gt.Error(t, (&model.Organisation{Name: "  "}).Validate()).Is(model.ErrValidation)
}

func TestOrganisation_Sorting(t *testing.T) {
	d1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	org := &model.Organisation{
		Contacts: []*model.Contact{
			{FirstName: "Zed", LastName: "Brown"},
			{FirstName: "Amy", LastName: "Adams"},
		},
		Grants: []*model.Grant{
			{Proposal: "none"},
			{Proposal: "later", StartedAt: &d2},
			{Proposal: "earlier", StartedAt: &d1},
		},
		Programs: []*model.ProgramArea{{Name: "Oceans"}, {Name: "Coal"}},
	}

	contacts := org.SortedContacts()
	gt.Value(t, contacts[0].LastName).Equal("Adams")
	gt.Value(t, contacts[1].LastName).Equal("Brown")

	grants := org.SortedGrants()
	gt.Value(t, grants[0].Proposal).Equal("earlier")
	gt.Value(t, grants[1].Proposal).Equal("later")
	gt.Value(t, grants[2].Proposal).Equal("none")

	gt.Value(t, org.ProgramNames()).Equal([]string{"Coal", "Oceans"})
}

func TestGrant_IsFuture(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(-1, 0, 0)
	future := now.AddDate(0, 3, 0)

	gt.Bool(t, (&model.Grant{StartedAt: &past}).IsFuture(now)).False()
	gt.Bool(t, (&model.Grant{StartedAt: &future}).IsFuture(now)).True()
	gt.Bool(t, (&model.Grant{Status: "Future grant"}).IsFuture(now)).True()
	gt.Bool(t, (&model.Grant{Status: "Paid"}).IsFuture(now)).False()
}

func TestMessage_PostedAt(t *testing.T) {
	m := &model.Message{TS: "1612345678.000200"}
	gt.Value(t, m.PostedAt().Unix()).Equal(int64(1612345678))

	created := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	m = &model.Message{TS: "garbage", CreatedAt: created}
	gt.Value(t, m.PostedAt()).Equal(created)
}

func TestViewSubmission_Get(t *testing.T) {
	s := &model.ViewSubmission{
		PrivateMetadata: "msg-1",
		Values: map[string]map[string]model.ViewValue{
			"contact-first-name": {"first-name-value": {Value: "Jane"}},
		},
	}
	gt.Value(t, s.Get("contact-first-name", "first-name-value").Value).Equal("Jane")
	gt.Value(t, s.Get("missing", "x").Value).Equal("")
	gt.Value(t, s.MessageID()).Equal(types.MessageID("msg-1"))
	gt.Value(t, s.Dataset()).Equal(types.Dataset(""))

	s.PrivateMetadata = model.MessageRef(types.DatasetFunder, "msg-1")
	gt.Value(t, s.PrivateMetadata).Equal("funder:msg-1")
	gt.Value(t, s.MessageID()).Equal(types.MessageID("msg-1"))
	gt.Value(t, s.Dataset()).Equal(types.DatasetFunder)
}

func TestParseMessageRef(t *testing.T) {
	ds, id := model.ParseMessageRef("partner:rec123")
	gt.Value(t, ds).Equal(types.DatasetPartner)
	gt.Value(t, id).Equal(types.MessageID("rec123"))

	// unknown prefixes stay part of the ID
	ds, id = model.ParseMessageRef("other:rec123")
	gt.Value(t, ds).Equal(types.Dataset(""))
	gt.Value(t, id).Equal(types.MessageID("other:rec123"))
}
