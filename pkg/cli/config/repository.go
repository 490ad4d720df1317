package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/repository/firestore"
	"github.com/secmon-lab/contactbook/pkg/repository/memory"
	"github.com/secmon-lab/contactbook/pkg/repository/postgres"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendAirtable  = "airtable"
	BackendFirestore = "firestore"

	// Table and collection prefixes that keep the funder dataset apart
	// from the partner dataset when both share one database.
	FunderTablePrefix      = "funder_"
	FunderCollectionPrefix = "funder"
)

// Repository holds CLI flags for the partner and funder dataset backends
type Repository struct {
	backend       string
	funderBackend string
	databaseURL   string
	projectID     string
	databaseID    string

	airtable Airtable
}

// Flags returns CLI flags for repository configuration, including the
// Airtable ones.
func (r *Repository) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Partner dataset backend (memory, postgres, airtable, firestore)",
			Category:    "Repository",
			Value:       BackendMemory,
			Sources:     cli.EnvVars("CONTACTBOOK_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "funder-repository-backend",
			Usage:       "Funder dataset backend; defaults to the partner backend",
			Category:    "Repository",
			Sources:     cli.EnvVars("CONTACTBOOK_FUNDER_REPOSITORY_BACKEND"),
			Destination: &r.funderBackend,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection string (postgres backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("CONTACTBOOK_DATABASE_URL", "DATABASE_URL"),
			Destination: &r.databaseURL,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("CONTACTBOOK_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("CONTACTBOOK_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
	}
	return append(flags, r.airtable.Flags()...)
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("funder_backend", r.FunderBackend()),
		slog.Int("database_url.len", len(r.databaseURL)),
		slog.String("firestore_project_id", r.projectID),
		slog.String("firestore_database_id", r.databaseID),
		slog.Any("airtable", r.airtable),
	)
}

func (r *Repository) Backend() string {
	return r.backend
}

func (r *Repository) FunderBackend() string {
	if r.funderBackend == "" {
		return r.backend
	}
	return r.funderBackend
}

func (r *Repository) DatabaseURL() string {
	return r.databaseURL
}

func (r *Repository) ProjectID() string {
	return r.projectID
}

func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// Configure opens the partner and funder repositories. The caller closes
// both. If the funder one fails, the partner one is closed before returning.
func (r *Repository) Configure(ctx context.Context) (partner, funder interfaces.Repository, err error) {
	partner, err = r.open(ctx, r.backend, types.DatasetPartner)
	if err != nil {
		return nil, nil, err
	}

	funder, err = r.open(ctx, r.FunderBackend(), types.DatasetFunder)
	if err != nil {
		if cerr := partner.Close(ctx); cerr != nil {
			logging.From(ctx).Warn("failed to close partner repository", "error", cerr)
		}
		return nil, nil, err
	}
	return partner, funder, nil
}

func (r *Repository) open(ctx context.Context, backend string, ds types.Dataset) (interfaces.Repository, error) {
	logger := logging.From(ctx).With("dataset", ds.String(), "backend", backend)

	switch backend {
	case BackendMemory:
		logger.Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	case BackendPostgres:
		if r.databaseURL == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "database-url is required when using postgres backend",
				goerr.V(FlagKey, "database-url"), goerr.V(DatasetKey, ds.String()))
		}
		var opts []postgres.Option
		if ds == types.DatasetFunder {
			opts = append(opts, postgres.WithTablePrefix(FunderTablePrefix))
		}
		repo, err := postgres.New(ctx, r.databaseURL, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize postgres repository", goerr.V(DatasetKey, ds.String()))
		}
		logger.Info("Using PostgreSQL repository")
		return repo, nil

	case BackendAirtable:
		repo, err := r.airtable.Configure(ds == types.DatasetFunder)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize airtable repository", goerr.V(DatasetKey, ds.String()))
		}
		logger.Info("Using Airtable repository")
		return repo, nil

	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "firestore-project-id is required when using firestore backend",
				goerr.V(FlagKey, "firestore-project-id"), goerr.V(DatasetKey, ds.String()))
		}
		var opts []firestore.Option
		if ds == types.DatasetFunder {
			opts = append(opts, firestore.WithCollectionPrefix(FunderCollectionPrefix))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository", goerr.V(DatasetKey, ds.String()))
		}
		logger.Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown repository backend",
			goerr.V(BackendKey, backend), goerr.V(DatasetKey, ds.String()))
	}
}
