package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/repository/airtable"
	airtablesvc "github.com/secmon-lab/contactbook/pkg/service/airtable"
	"github.com/urfave/cli/v3"
)

// Airtable configures the Airtable backend. The partner and funder
// datasets live in separate bases under one API key.
type Airtable struct {
	apiKey       string
	baseID       string
	funderBaseID string
	schemaPath   string
	endpoint     string
	rateLimit    float64
}

func (x *Airtable) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "airtable-api-key",
			Usage:       "Airtable personal access token",
			Category:    "Airtable",
			Destination: &x.apiKey,
			Sources:     cli.EnvVars("CONTACTBOOK_AIRTABLE_API_KEY", "AIRTABLE_API_KEY"),
		},
		&cli.StringFlag{
			Name:        "airtable-base-id",
			Usage:       "Airtable base ID of the partner dataset",
			Category:    "Airtable",
			Destination: &x.baseID,
			Sources:     cli.EnvVars("CONTACTBOOK_AIRTABLE_BASE_ID", "AIRTABLE_BASE_ID"),
		},
		&cli.StringFlag{
			Name:        "airtable-funder-base-id",
			Usage:       "Airtable base ID of the funder dataset",
			Category:    "Airtable",
			Destination: &x.funderBaseID,
			Sources:     cli.EnvVars("CONTACTBOOK_AIRTABLE_FUNDER_BASE_ID", "AIRTABLE_BASE_ID_FUNDER"),
		},
		&cli.StringFlag{
			Name:        "airtable-schema",
			Usage:       "TOML file overriding Airtable table and field names",
			Category:    "Airtable",
			Destination: &x.schemaPath,
			Sources:     cli.EnvVars("CONTACTBOOK_AIRTABLE_SCHEMA"),
		},
		&cli.StringFlag{
			Name:        "airtable-endpoint",
			Usage:       "Airtable API root",
			Category:    "Airtable",
			Value:       airtablesvc.DefaultEndpoint,
			Destination: &x.endpoint,
			Sources:     cli.EnvVars("CONTACTBOOK_AIRTABLE_ENDPOINT"),
		},
		&cli.FloatFlag{
			Name:        "airtable-rate-limit",
			Usage:       "Maximum Airtable requests per second per base (0 disables limiting)",
			Category:    "Airtable",
			Value:       airtablesvc.DefaultRateLimit,
			Destination: &x.rateLimit,
			Sources:     cli.EnvVars("CONTACTBOOK_AIRTABLE_RATE_LIMIT"),
		},
	}
}

func (x Airtable) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("api_key.len", len(x.apiKey)),
		slog.String("base_id", x.baseID),
		slog.String("funder_base_id", x.funderBaseID),
		slog.String("schema", x.schemaPath),
		slog.Float64("rate_limit", x.rateLimit),
	)
}

// Configure opens the partner base, or the funder base when funder is true.
func (x *Airtable) Configure(funder bool) (*airtable.Airtable, error) {
	if x.apiKey == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "airtable-api-key is required when using airtable backend",
			goerr.V(FlagKey, "airtable-api-key"))
	}

	partnerSchema, funderSchema, err := airtable.LoadSchemaFile(x.schemaPath)
	if err != nil {
		return nil, err
	}

	baseID, flag, schema := x.baseID, "airtable-base-id", partnerSchema
	if funder {
		baseID, flag, schema = x.funderBaseID, "airtable-funder-base-id", funderSchema
	}
	if baseID == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "airtable base ID is required when using airtable backend",
			goerr.V(FlagKey, flag))
	}

	opts := []airtablesvc.Option{airtablesvc.WithRateLimit(x.rateLimit)}
	if x.endpoint != "" {
		opts = append(opts, airtablesvc.WithEndpoint(x.endpoint))
	}
	client, err := airtablesvc.New(x.apiKey, baseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create airtable client")
	}
	return airtable.New(client, schema)
}
