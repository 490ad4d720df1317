package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const backendName = "postgres"

// Postgres stores the contact book in PostgreSQL through gorm. Search uses
// the POSIX ~* operator, so the raw term is evaluated as a regex.
type Postgres struct {
	db     *gorm.DB
	prefix string
}

var _ interfaces.Repository = &Postgres{}

type Option func(*Postgres)

// WithTablePrefix prefixes every table name, including join tables. It lets
// the partner and funder datasets share one database.
func WithTablePrefix(prefix string) Option {
	return func(p *Postgres) {
		p.prefix = prefix
	}
}

// New connects to dsn. Tables are not created; run Migrate for that.
func New(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	if dsn == "" {
		return nil, goerr.New("database URL is required")
	}

	p := &Postgres{}
	for _, opt := range opts {
		opt(p)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{TablePrefix: p.prefix},
		Logger: logger.New(gormLogWriter{}, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("prefix", p.prefix))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get database handle")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to ping database")
	}

	p.db = db
	return p, nil
}

// Models returns the gorm models in creation order.
func Models() []any {
	return []any{
		&User{},
		&ProgramArea{},
		&Organisation{},
		&Contact{},
		&Grant{},
		&Message{},
		&Admin{},
	}
}

// Migrate creates or updates tables, join tables and indexes.
func (p *Postgres) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return goerr.Wrap(err, "failed to migrate database", goerr.V("prefix", p.prefix))
	}
	return nil
}

func (p *Postgres) Contact() interfaces.ContactRepository {
	return &contactRepository{db: p.db, prefix: p.prefix}
}

func (p *Postgres) Organisation() interfaces.OrganisationRepository {
	return &organisationRepository{db: p.db}
}

func (p *Postgres) Message() interfaces.MessageRepository {
	return &messageRepository{db: p.db, prefix: p.prefix}
}

func (p *Postgres) User() interfaces.UserRepository {
	return &userRepository{db: p.db}
}

func (p *Postgres) Program() interfaces.ProgramRepository {
	return &programRepository{db: p.db}
}

func (p *Postgres) Grant() interfaces.GrantRepository {
	return &grantRepository{db: p.db}
}

func (p *Postgres) Admin() interfaces.AdminRepository {
	return &adminRepository{db: p.db}
}

func (p *Postgres) Close(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return goerr.Wrap(err, "failed to get database handle")
	}
	if err := sqlDB.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

// isUUID reports whether id can be a primary key. Anything else is an
// unknown ID rather than a query error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// invalidRegexCode is SQLSTATE invalid_regular_expression. Go's regexp
// accepts a few patterns PostgreSQL rejects.
const invalidRegexCode = "2201B"

func wrapQueryError(err error, msg string, q *model.Query) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidRegexCode {
		return goerr.Wrap(model.ErrInvalidQuery, msg,
			goerr.V(model.QueryKey, q.Term()),
			goerr.V("reason", pgErr.Message))
	}
	return goerr.Wrap(err, msg, goerr.V(model.QueryKey, q.Term()))
}

// replaceAssociation replaces a many2many set. An empty set clears it.
func replaceAssociation(tx *gorm.DB, owner any, name string, values any, n int) error {
	assoc := tx.Model(owner).Association(name)
	if n == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...any) {
	logging.Default().Warn("gorm", "message", fmt.Sprintf(format, args...))
}
