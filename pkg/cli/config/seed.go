package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/repository/airtable"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Seed is the --seed-file flag group.
type Seed struct {
	path string
}

func (x *Seed) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "seed-file",
			Usage:       "TOML file with program areas, organisations, contacts, grants and admins to load at startup",
			Category:    "Seed",
			Destination: &x.path,
			Sources:     cli.EnvVars("CONTACTBOOK_SEED_FILE"),
		},
	}
}

func (x Seed) LogValue() slog.Value {
	return slog.GroupValue(slog.String("file", x.path))
}

func (x *Seed) Path() string {
	return x.path
}

// SeedFile is the TOML layout of a seed file. Items reference each other
// by Key within the same dataset; Dataset defaults to "partner".
type SeedFile struct {
	Programs      []SeedProgram      `toml:"programs"`
	Organisations []SeedOrganisation `toml:"organisations"`
	Contacts      []SeedContact      `toml:"contacts"`
	Grants        []SeedGrant        `toml:"grants"`
	Admins        []SeedAdmin        `toml:"admins"`
}

type SeedProgram struct {
	Key     string        `toml:"key"`
	Dataset types.Dataset `toml:"dataset"`
	Name    string        `toml:"name"`
	Notes   string        `toml:"notes"`
}

type SeedOrganisation struct {
	Key                         string        `toml:"key"`
	Dataset                     types.Dataset `toml:"dataset"`
	Name                        string        `toml:"name"`
	LegalName                   string        `toml:"legal_name"`
	Abbreviation                string        `toml:"abbreviation"`
	Website                     string        `toml:"website"`
	Notes                       string        `toml:"notes"`
	CurrentOrFutureGrantee      bool          `toml:"current_or_future_grantee"`
	PreviousGrants              bool          `toml:"previous_grants"`
	GrantsApproved              bool          `toml:"grants_approved"`
	GrantsDistributed           bool          `toml:"grants_distributed"`
	GrantsInProcess             bool          `toml:"grants_in_process"`
	FutureGrantsInConsideration bool          `toml:"future_grants_in_consideration"`
	Programs                    []string      `toml:"programs"`
}

type SeedContact struct {
	Key           string        `toml:"key"`
	Dataset       types.Dataset `toml:"dataset"`
	FirstName     string        `toml:"first_name"`
	LastName      string        `toml:"last_name"`
	Email         string        `toml:"email"`
	Phone         string        `toml:"phone"`
	Role          string        `toml:"role"`
	Notes         string        `toml:"notes"`
	Point         bool          `toml:"point"`
	Organisations []string      `toml:"organisations"`
	Programs      []string      `toml:"programs"`
}

type SeedGrant struct {
	Dataset       types.Dataset `toml:"dataset"`
	Organisation  string        `toml:"organisation"`
	Contact       string        `toml:"contact"`
	Proposal      string        `toml:"proposal"`
	ProjectCode   string        `toml:"project_code"`
	Amount        float64       `toml:"amount"`
	PlannedAmount float64       `toml:"planned_amount"`
	Currency      string        `toml:"currency"`
	Status        string        `toml:"status"`
	StartedAt     string        `toml:"started_at"` // YYYY-MM-DD
	URL           string        `toml:"url"`
	Notes         string        `toml:"notes"`
}

type SeedAdmin struct {
	Dataset  types.Dataset `toml:"dataset"`
	Username string        `toml:"username"`
}

// LoadSeedFile reads and parses a seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	// #nosec G304 - path is provided by the operator
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read seed file", goerr.V(PathKey, path))
	}

	var file SeedFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse seed file", goerr.V(PathKey, path))
	}
	return &file, nil
}

// SeedResult counts what Apply created.
type SeedResult struct {
	Programs      int
	Organisations int
	Contacts      int
	Grants        int
	Admins        int
}

func (r SeedResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("programs", r.Programs),
		slog.Int("organisations", r.Organisations),
		slog.Int("contacts", r.Contacts),
		slog.Int("grants", r.Grants),
		slog.Int("admins", r.Admins),
	)
}

type seedKeys struct {
	programs map[string]types.ProgramID
	orgs     map[string]types.OrganisationID
	contacts map[string]types.ContactID
}

func newSeedKeys() *seedKeys {
	return &seedKeys{
		programs: map[string]types.ProgramID{},
		orgs:     map[string]types.OrganisationID{},
		contacts: map[string]types.ContactID{},
	}
}

// Apply writes the seed items into the partner and funder repositories in
// dependency order. Records are always created, so applying the same file
// twice produces duplicates. Grants are skipped on backends that do not
// store them.
func (f *SeedFile) Apply(ctx context.Context, partner, funder interfaces.Repository) (*SeedResult, error) {
	books := map[types.Dataset]interfaces.Repository{
		types.DatasetPartner: partner,
		types.DatasetFunder:  funder,
	}
	keys := map[types.Dataset]*seedKeys{
		types.DatasetPartner: newSeedKeys(),
		types.DatasetFunder:  newSeedKeys(),
	}
	resolve := func(ds types.Dataset, item string) (interfaces.Repository, *seedKeys, types.Dataset, error) {
		if ds == "" {
			ds = types.DatasetPartner
		}
		if err := ds.Validate(); err != nil {
			return nil, nil, ds, goerr.Wrap(err, "invalid dataset in seed file", goerr.V(SeedItemKey, item))
		}
		repo := books[ds]
		if repo == nil {
			return nil, nil, ds, goerr.Wrap(ErrInvalidConfig, "no repository configured for dataset",
				goerr.V(DatasetKey, ds.String()), goerr.V(SeedItemKey, item))
		}
		return repo, keys[ds], ds, nil
	}

	result := &SeedResult{}

	for _, p := range f.Programs {
		repo, k, _, err := resolve(p.Dataset, p.Name)
		if err != nil {
			return result, err
		}
		created, err := repo.Program().Create(ctx, &model.ProgramArea{Name: p.Name, Notes: p.Notes})
		if err != nil {
			return result, goerr.Wrap(err, "failed to seed program area", goerr.V(SeedItemKey, p.Name))
		}
		k.programs[keyOr(p.Key, p.Name)] = created.ID
		result.Programs++
	}

	for _, o := range f.Organisations {
		repo, k, _, err := resolve(o.Dataset, o.Name)
		if err != nil {
			return result, err
		}
		programIDs, err := lookupKeys(k.programs, o.Programs, o.Name)
		if err != nil {
			return result, err
		}
		created, err := repo.Organisation().Create(ctx, &model.Organisation{
			Name:                        o.Name,
			LegalName:                   o.LegalName,
			Abbreviation:                o.Abbreviation,
			Website:                     o.Website,
			Notes:                       o.Notes,
			CurrentOrFutureGrantee:      o.CurrentOrFutureGrantee,
			PreviousGrants:              o.PreviousGrants,
			GrantsApproved:              o.GrantsApproved,
			GrantsDistributed:           o.GrantsDistributed,
			GrantsInProcess:             o.GrantsInProcess,
			FutureGrantsInConsideration: o.FutureGrantsInConsideration,
			ProgramIDs:                  programIDs,
		})
		if err != nil {
			return result, goerr.Wrap(err, "failed to seed organisation", goerr.V(SeedItemKey, o.Name))
		}
		k.orgs[keyOr(o.Key, o.Name)] = created.ID
		result.Organisations++
	}

	for _, c := range f.Contacts {
		name := c.FirstName + " " + c.LastName
		repo, k, _, err := resolve(c.Dataset, name)
		if err != nil {
			return result, err
		}
		orgIDs, err := lookupKeys(k.orgs, c.Organisations, name)
		if err != nil {
			return result, err
		}
		programIDs, err := lookupKeys(k.programs, c.Programs, name)
		if err != nil {
			return result, err
		}
		created, err := repo.Contact().Create(ctx, &model.Contact{
			FirstName:       c.FirstName,
			LastName:        c.LastName,
			Email:           c.Email,
			Phone:           c.Phone,
			Role:            c.Role,
			Notes:           c.Notes,
			Point:           c.Point,
			OrganisationIDs: orgIDs,
			ProgramIDs:      programIDs,
		})
		if err != nil {
			return result, goerr.Wrap(err, "failed to seed contact", goerr.V(SeedItemKey, name))
		}
		k.contacts[keyOr(c.Key, name)] = created.ID
		result.Contacts++
	}

	for _, g := range f.Grants {
		item := g.Organisation + "/" + g.ProjectCode
		repo, k, ds, err := resolve(g.Dataset, item)
		if err != nil {
			return result, err
		}
		grant, err := g.toModel(k, item)
		if err != nil {
			return result, err
		}
		if _, err := repo.Grant().Create(ctx, grant); err != nil {
			if errors.Is(err, airtable.ErrUnsupported) {
				logging.From(ctx).Warn("grant skipped, backend does not store grants",
					"dataset", ds.String(), "grant", item)
				continue
			}
			return result, goerr.Wrap(err, "failed to seed grant", goerr.V(SeedItemKey, item))
		}
		result.Grants++
	}

	for _, a := range f.Admins {
		repo, _, _, err := resolve(a.Dataset, a.Username)
		if err != nil {
			return result, err
		}
		if err := repo.Admin().Add(ctx, a.Username); err != nil {
			return result, goerr.Wrap(err, "failed to seed admin", goerr.V(SeedItemKey, a.Username))
		}
		result.Admins++
	}

	return result, nil
}

func (g SeedGrant) toModel(k *seedKeys, item string) (*model.Grant, error) {
	orgID, ok := k.orgs[g.Organisation]
	if !ok {
		return nil, goerr.Wrap(ErrInvalidConfig, "grant refers to an unknown organisation",
			goerr.V(SeedItemKey, item), goerr.V("organisation", g.Organisation))
	}

	grant := &model.Grant{
		OrganisationID: orgID,
		Proposal:       g.Proposal,
		ProjectCode:    g.ProjectCode,
		Amount:         g.Amount,
		PlannedAmount:  g.PlannedAmount,
		Currency:       g.Currency,
		Status:         g.Status,
		URL:            g.URL,
		Notes:          g.Notes,
	}
	if g.Contact != "" {
		contactID, ok := k.contacts[g.Contact]
		if !ok {
			return nil, goerr.Wrap(ErrInvalidConfig, "grant refers to an unknown contact",
				goerr.V(SeedItemKey, item), goerr.V("contact", g.Contact))
		}
		grant.ContactID = contactID
	}
	if g.StartedAt != "" {
		started, err := time.Parse(time.DateOnly, g.StartedAt)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid grant start date", goerr.V(SeedItemKey, item))
		}
		grant.StartedAt = &started
	}
	return grant, nil
}

func keyOr(key, fallback string) string {
	if key != "" {
		return key
	}
	return fallback
}

func lookupKeys[T ~string](known map[string]T, refs []string, item string) ([]T, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	ids := make([]T, 0, len(refs))
	for _, ref := range refs {
		id, ok := known[ref]
		if !ok {
			return nil, goerr.Wrap(ErrInvalidConfig, "seed item refers to an unknown key",
				goerr.V(SeedItemKey, item), goerr.V("key", ref))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
