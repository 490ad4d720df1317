package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/cli/config"
	"github.com/secmon-lab/contactbook/pkg/repository/firestore"
	"github.com/secmon-lab/contactbook/pkg/repository/postgres"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	migrateTargetPostgres  = "postgres"
	migrateTargetFirestore = "firestore"
)

func cmdMigrate() *cli.Command {
	var target string
	var databaseURL string
	var projectID string
	var databaseID string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create PostgreSQL tables or Firestore indexes for both datasets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Usage:       "Migration target (postgres, firestore)",
				Value:       migrateTargetPostgres,
				Sources:     cli.EnvVars("CONTACTBOOK_MIGRATE_TARGET"),
				Destination: &target,
			},
			&cli.StringFlag{
				Name:        "database-url",
				Usage:       "PostgreSQL connection string (postgres target)",
				Sources:     cli.EnvVars("CONTACTBOOK_DATABASE_URL", "DATABASE_URL"),
				Destination: &databaseURL,
			},
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (firestore target)",
				Sources:     cli.EnvVars("CONTACTBOOK_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("CONTACTBOOK_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview Firestore index changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Migrate configuration",
				"target", target,
				"projectID", projectID,
				"databaseID", databaseID,
				"dryRun", dryRun)

			switch target {
			case migrateTargetPostgres:
				if databaseURL == "" {
					return goerr.Wrap(config.ErrMissingFlag, "database-url is required for postgres migration",
						goerr.V(config.FlagKey, "database-url"))
				}
				if dryRun {
					logging.Default().Warn("dry-run is not supported for postgres, nothing applied")
					return nil
				}
				return migratePostgres(ctx, databaseURL)

			case migrateTargetFirestore:
				if projectID == "" {
					return goerr.Wrap(config.ErrMissingFlag, "firestore-project-id is required for firestore migration",
						goerr.V(config.FlagKey, "firestore-project-id"))
				}
				return migrateFirestore(ctx, projectID, databaseID, dryRun)

			default:
				return goerr.Wrap(config.ErrInvalidConfig, "unknown migrate target", goerr.V(config.FlagKey, "target"), goerr.V("value", target))
			}
		},
	}
}

// migratePostgres runs AutoMigrate once per dataset table prefix.
func migratePostgres(ctx context.Context, dsn string) error {
	for _, prefix := range []string{"", config.FunderTablePrefix} {
		db, err := postgres.New(ctx, dsn, postgres.WithTablePrefix(prefix))
		if err != nil {
			return goerr.Wrap(err, "failed to connect to postgres")
		}
		err = db.Migrate(ctx)
		if cerr := db.Close(ctx); cerr != nil {
			logging.Default().Error("failed to close postgres connection", "error", cerr)
		}
		if err != nil {
			return err
		}
		logging.Default().Info("PostgreSQL tables migrated", "prefix", prefix)
	}
	return nil
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()
	indexConfig := firestore.IndexConfig("", config.FunderCollectionPrefix)

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if !dryRun {
		logger.Info("Applying migrations")
		if err := client.Migrate(ctx, indexConfig); err != nil {
			return goerr.Wrap(err, "failed to apply migrations")
		}
		logger.Info("Migrations applied successfully")
		return nil
	}

	logger.Info("Dry run mode - previewing changes")
	plan, err := client.GetMigrationPlan(ctx, indexConfig)
	if err != nil {
		return goerr.Wrap(err, "failed to create migration plan")
	}
	if len(plan.Steps) == 0 {
		logger.Info("No changes required")
		return nil
	}
	for _, step := range plan.Steps {
		logger.Info("Migration step",
			"collection", step.Collection,
			"operation", step.Operation,
			"description", step.Description,
			"destructive", step.Destructive)
	}
	return nil
}
