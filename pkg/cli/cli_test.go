package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/cli"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/repository/memory"
)

func TestLoadEnvFile(t *testing.T) {
	t.Run("explicit file is loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		gt.NoError(t, os.WriteFile(path, []byte("CONTACTBOOK_TEST_ENV_VALUE=from-file\n"), 0600)).Required()
		t.Setenv("CONTACTBOOK_TEST_ENV_VALUE", "")
		gt.NoError(t, os.Unsetenv("CONTACTBOOK_TEST_ENV_VALUE"))

		gt.NoError(t, cli.LoadEnvFile([]string{"contactbook", "--env-file", path, "serve"})).Required()
		gt.Value(t, os.Getenv("CONTACTBOOK_TEST_ENV_VALUE")).Equal("from-file")
	})

	t.Run("process environment wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		gt.NoError(t, os.WriteFile(path, []byte("CONTACTBOOK_TEST_ENV_OVERRIDE=from-file\n"), 0600)).Required()
		t.Setenv("CONTACTBOOK_TEST_ENV_OVERRIDE", "from-env")

		gt.NoError(t, cli.LoadEnvFile([]string{"contactbook", "--env-file=" + path})).Required()
		gt.Value(t, os.Getenv("CONTACTBOOK_TEST_ENV_OVERRIDE")).Equal("from-env")
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "none.env")
		gt.Value(t, cli.LoadEnvFile([]string{"contactbook", "--env-file", path})).NotNil()
	})
}

func TestApplySeed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.toml")
	gt.NoError(t, os.WriteFile(path, []byte(`
[[organisations]]
name = "The Sunrise Project"
abbreviation = "TSP"
`), 0600)).Required()

	partner, funder := memory.New(), memory.New()
	gt.NoError(t, cli.ApplySeed(ctx, path, partner, funder)).Required()

	q, err := model.NewQuery("TSP")
	gt.NoError(t, err).Required()
	orgs, err := partner.Organisation().Search(ctx, q)
	gt.NoError(t, err)
	gt.Array(t, orgs).Length(1)
}

func TestRunFailsOnMissingEnvFile(t *testing.T) {
	args := []string{"contactbook", "--env-file", filepath.Join(t.TempDir(), "missing.env"), "search", "jane"}
	gt.Value(t, cli.Run(context.Background(), args, "test")).NotNil()
}
