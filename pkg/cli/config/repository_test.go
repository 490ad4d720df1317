package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/cli/config"
)

func TestRepositoryConfigureMemory(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewRepositoryForTest(config.BackendMemory, "", "", "")
	gt.Value(t, cfg.FunderBackend()).Equal(config.BackendMemory)

	partner, funder, err := cfg.Configure(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, partner).NotNil()
	gt.Value(t, funder).NotNil()

	// The datasets are separate stores.
	gt.NoError(t, partner.Admin().Add(ctx, "alice"))
	ok, err := funder.Admin().HasPermission(ctx, "alice")
	gt.NoError(t, err)
	gt.Bool(t, ok).False()

	gt.NoError(t, partner.Close(ctx))
	gt.NoError(t, funder.Close(ctx))
}

func TestRepositoryConfigureErrors(t *testing.T) {
	tests := []struct {
		name          string
		backend       string
		funderBackend string
		wantErr       error
	}{
		{"unknown backend", "sqlite", "", config.ErrInvalidBackend},
		{"unknown funder backend", config.BackendMemory, "sqlite", config.ErrInvalidBackend},
		{"postgres without database url", config.BackendPostgres, "", config.ErrMissingFlag},
		{"firestore without project", config.BackendFirestore, "", config.ErrMissingFlag},
		{"airtable without api key", config.BackendAirtable, "", config.ErrMissingFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewRepositoryForTest(tt.backend, tt.funderBackend, "", "")
			_, _, err := cfg.Configure(context.Background())
			gt.Error(t, err).Is(tt.wantErr)
		})
	}
}

func TestRepositoryConfigureAirtable(t *testing.T) {
	ctx := context.Background()

	t.Run("opens both bases", func(t *testing.T) {
		cfg := config.NewRepositoryForTest(config.BackendAirtable, "", "", "")
		cfg.SetAirtableForTest("key", "appPartner", "appFunder", "", "http://127.0.0.1:1")

		partner, funder, err := cfg.Configure(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, partner).NotNil()
		gt.Value(t, funder).NotNil()
	})

	t.Run("funder base is required", func(t *testing.T) {
		cfg := config.NewRepositoryForTest(config.BackendAirtable, "", "", "")
		cfg.SetAirtableForTest("key", "appPartner", "", "", "")

		_, _, err := cfg.Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("funder on memory with partner on airtable", func(t *testing.T) {
		cfg := config.NewRepositoryForTest(config.BackendAirtable, config.BackendMemory, "", "")
		cfg.SetAirtableForTest("key", "appPartner", "", "", "")

		partner, funder, err := cfg.Configure(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, partner).NotNil()
		gt.Value(t, funder).NotNil()
	})

	t.Run("broken schema file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.toml")
		gt.NoError(t, os.WriteFile(path, []byte("[partner\n"), 0600))

		cfg := config.NewRepositoryForTest(config.BackendAirtable, "", "", "")
		cfg.SetAirtableForTest("key", "appPartner", "appFunder", path, "")

		_, _, err := cfg.Configure(ctx)
		gt.Value(t, err).NotNil()
	})
}
