package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/cli/config"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/repository/memory"
)

const seedTOML = `
[[programs]]
key = "climate"
name = "Climate"

[[organisations]]
key = "tsp"
name = "The Sunrise Project"
abbreviation = "TSP"
website = "https://sunriseproject.org"
previous_grants = true
programs = ["climate"]

[[organisations]]
key = "bf"
dataset = "funder"
name = "Bright Foundation"

[[contacts]]
key = "jane"
first_name = "Jane"
last_name = "Kajute"
email = "jane@example.org"
organisations = ["tsp"]
programs = ["climate"]

[[contacts]]
dataset = "funder"
first_name = "Omar"
last_name = "Haddad"
organisations = ["bf"]

[[grants]]
organisation = "tsp"
contact = "jane"
proposal = "Coal transition"
project_code = "P-001"
amount = 50000.0
currency = "USD"
status = "Distributed"
started_at = "2023-04-01"

[[admins]]
dataset = "funder"
username = "alice"
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestSeedApply(t *testing.T) {
	ctx := context.Background()
	partner, funder := memory.New(), memory.New()

	file, err := config.LoadSeedFile(writeSeed(t, seedTOML))
	gt.NoError(t, err).Required()

	result, err := file.Apply(ctx, partner, funder)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Programs).Equal(1)
	gt.Value(t, result.Organisations).Equal(2)
	gt.Value(t, result.Contacts).Equal(2)
	gt.Value(t, result.Grants).Equal(1)
	gt.Value(t, result.Admins).Equal(1)

	q, err := model.NewQuery("Sunrise")
	gt.NoError(t, err).Required()
	orgs, err := partner.Organisation().Search(ctx, q)
	gt.NoError(t, err).Required()
	gt.Array(t, orgs).Length(1).Required()

	detail, err := partner.Organisation().GetDetail(ctx, orgs[0].ID)
	gt.NoError(t, err).Required()
	gt.Value(t, detail).NotNil().Required()
	gt.Value(t, detail.ProgramNames()).Equal([]string{"Climate"})
	gt.Array(t, detail.Contacts).Length(1)
	gt.Array(t, detail.Grants).Length(1).Required()
	gt.Value(t, detail.Grants[0].ProjectCode).Equal("P-001")
	gt.Value(t, detail.Grants[0].StartedAt).NotNil()

	t.Run("funder items stay in the funder dataset", func(t *testing.T) {
		q, err := model.NewQuery("Haddad")
		gt.NoError(t, err).Required()

		found, err := funder.Contact().Search(ctx, q)
		gt.NoError(t, err)
		gt.Array(t, found).Length(1)

		found, err = partner.Contact().Search(ctx, q)
		gt.NoError(t, err)
		gt.Array(t, found).Length(0)

		ok, err := funder.Admin().HasPermission(ctx, "alice")
		gt.NoError(t, err)
		gt.Bool(t, ok).True()
	})
}

func TestSeedApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown organisation key",
			content: `
[[contacts]]
first_name = "Jane"
last_name = "Kajute"
organisations = ["missing"]
`,
		},
		{
			name: "organisation key from the other dataset",
			content: `
[[organisations]]
key = "bf"
dataset = "funder"
name = "Bright Foundation"

[[contacts]]
first_name = "Jane"
last_name = "Kajute"
organisations = ["bf"]
`,
		},
		{
			name: "unknown dataset",
			content: `
[[programs]]
dataset = "donor"
name = "Climate"
`,
		},
		{
			name: "bad grant date",
			content: `
[[organisations]]
key = "tsp"
name = "The Sunrise Project"

[[grants]]
organisation = "tsp"
started_at = "April 2023"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := config.LoadSeedFile(writeSeed(t, tt.content))
			gt.NoError(t, err).Required()

			_, err = file.Apply(context.Background(), memory.New(), memory.New())
			gt.Value(t, err).NotNil()
		})
	}
}

func TestLoadSeedFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadSeedFile(filepath.Join(t.TempDir(), "none.toml"))
		gt.Value(t, err).NotNil()
	})

	t.Run("invalid toml", func(t *testing.T) {
		_, err := config.LoadSeedFile(writeSeed(t, "[[contacts]\n"))
		gt.Value(t, err).NotNil()
	})
}
