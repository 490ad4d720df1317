package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/service/slack"
)

type UseCases struct {
	books        *books
	slackService slack.Service
	location     *time.Location
	now          func() time.Time

	Command *CommandUseCase
	Record  *RecordUseCase
}

type Option func(*UseCases)

// WithSlackService sets the Slack client used to open modals and post
// confirmations. Without it the recording workflow cannot be used.
func WithSlackService(svc slack.Service) Option {
	return func(uc *UseCases) {
		uc.slackService = svc
	}
}

// WithLocation sets the time zone of rendered timestamps. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(uc *UseCases) {
		uc.location = loc
	}
}

// WithClock replaces time.Now, used to tell past from future grants.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

// New wires the use cases over the partner and funder contact books.
func New(partner, funder interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		books:    &books{partner: partner, funder: funder},
		location: time.Local,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Command = &CommandUseCase{books: uc.books, location: uc.location, now: uc.now}
	uc.Record = &RecordUseCase{books: uc.books, slackService: uc.slackService}

	return uc
}

// books holds one repository per dataset.
type books struct {
	partner interfaces.Repository
	funder  interfaces.Repository
}

func (b *books) get(ds types.Dataset) (interfaces.Repository, error) {
	var repo interfaces.Repository
	switch ds {
	case types.DatasetPartner:
		repo = b.partner
	case types.DatasetFunder:
		repo = b.funder
	}
	if repo == nil {
		return nil, goerr.New("contact book is not configured", goerr.V(DatasetKey, ds.String()))
	}
	return repo, nil
}

// hasPermission reports whether username may use the restricted dataset.
// Admins are kept in the funder book.
func (b *books) hasPermission(ctx context.Context, ds types.Dataset, username string) (bool, error) {
	if !ds.Restricted() {
		return true, nil
	}
	repo, err := b.get(types.DatasetFunder)
	if err != nil {
		return false, err
	}
	ok, err := repo.Admin().HasPermission(ctx, username)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check permission", goerr.V("username", username))
	}
	return ok, nil
}
