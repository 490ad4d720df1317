package cli_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/cli"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/repository/memory"
)

func TestPrintSearch(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	ctx := context.Background()
	repo := memory.New()

	org, err := repo.Organisation().Create(ctx, &model.Organisation{
		Name:           "The Sunrise Project",
		Abbreviation:   "TSP",
		Website:        "https://sunriseproject.org",
		PreviousGrants: true,
	})
	gt.NoError(t, err).Required()

	jane, err := repo.Contact().Create(ctx, &model.Contact{
		FirstName:       "Jane",
		LastName:        "Sunrise",
		Email:           "jane@example.org",
		Role:            "Director",
		OrganisationIDs: []types.OrganisationID{org.ID},
	})
	gt.NoError(t, err).Required()

	msg, err := repo.Message().Upsert(ctx, model.MessageInput{
		ChannelID:     "C001",
		AuthorSlackID: "U001",
		TeamID:        "T001",
		TS:            "1612345678.000100",
		Text:          "Met the Sunrise team\nsecond line",
	})
	gt.NoError(t, err).Required()
	gt.NoError(t, repo.Message().SetContacts(ctx, msg.ID, []types.ContactID{jane.ID})).Required()

	t.Run("prints every section", func(t *testing.T) {
		q, err := model.NewQuery("sunrise")
		gt.NoError(t, err).Required()

		var buf bytes.Buffer
		gt.NoError(t, cli.PrintSearch(ctx, &buf, repo, q)).Required()

		out := buf.String()
		gt.String(t, out).Contains("Contacts (1)")
		gt.String(t, out).Contains("Jane Sunrise [The Sunrise Project:moneybag:]")
		gt.String(t, out).Contains("Director | jane@example.org")
		gt.String(t, out).Contains("Messages (1)")
		gt.String(t, out).Contains("Met the Sunrise team")
		gt.String(t, out).Contains("with Jane Sunrise")
		gt.String(t, out).Contains("Organisations (1)")
		gt.String(t, out).Contains("The Sunrise Project:moneybag: (TSP)")
		gt.String(t, out).Contains("https://sunriseproject.org")
	})

	t.Run("no results", func(t *testing.T) {
		q, err := model.NewQuery("nobody")
		gt.NoError(t, err).Required()

		var buf bytes.Buffer
		gt.NoError(t, cli.PrintSearch(ctx, &buf, repo, q)).Required()
		gt.String(t, buf.String()).Contains(`No results for "nobody"`)
	})
}

func TestFirstLine(t *testing.T) {
	gt.Value(t, cli.FirstLine("one\ntwo")).Equal("one")
	gt.Value(t, cli.FirstLine("single")).Equal("single")
}
