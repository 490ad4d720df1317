package worker

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/service/slack"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
)

// DefaultRefreshInterval is how often Slack profiles are re-read.
const DefaultRefreshInterval = time.Hour

// UserRefreshWorker keeps the name and handle of recorded users in step with
// Slack. Only users already stored are updated; the workspace directory is
// never copied wholesale.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
type UserRefreshWorker struct {
	slackService slack.Service
	users        []interfaces.UserRepository
	interval     time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
}

// NewUserRefreshWorker refreshes the users of every given repository. An
// interval of zero or less means DefaultRefreshInterval.
func NewUserRefreshWorker(slackSvc slack.Service, interval time.Duration, repos ...interfaces.Repository) *UserRefreshWorker {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	users := make([]interfaces.UserRepository, 0, len(repos))
	for _, r := range repos {
		users = append(users, r.User())
	}
	return &UserRefreshWorker{
		slackService: slackSvc,
		users:        users,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the background refresh loop. The first refresh runs in the
// loop goroutine so startup is not blocked.
func (w *UserRefreshWorker) Start(ctx context.Context) error {
	logging.From(ctx).Info("User refresh worker starting", "interval", w.interval.String())
	go w.run(ctx)
	return nil
}

// Stop signals the worker to stop and waits for completion. Calls after the
// first are no-ops.
func (w *UserRefreshWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		logging.Default().Info("User refresh worker stopped")
	})
}

func (w *UserRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.Refresh(ctx); err != nil {
		logging.From(ctx).Error("Initial user refresh failed (will retry next interval)", "error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				logging.From(ctx).Error("User refresh failed (will retry next interval)", "error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Refresh runs one cycle: read the Slack directory once, then update every
// known user whose profile is listed.
func (w *UserRefreshWorker) Refresh(ctx context.Context) (err error) {
	startTime := time.Now()
	defer func() { metrics.RecordUserRefresh(err == nil) }()

	slackUsers, err := w.slackService.ListUsers(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list Slack users")
	}
	profiles := make(map[string]model.UserProfile, len(slackUsers))
	for _, su := range slackUsers {
		profiles[su.ID] = model.UserProfile{Name: su.RealName, Username: su.Name}
	}

	var updated int
	for _, repo := range w.users {
		known, err := repo.List(ctx)
		if err != nil {
			return goerr.Wrap(err, "failed to list known users")
		}

		for _, u := range known {
			p, ok := profiles[u.SlackID]
			if !ok || (p.Name == u.Name && p.Username == u.Username) {
				continue
			}
			if err := repo.UpdateProfile(ctx, u.SlackID, p); err != nil {
				return goerr.Wrap(err, "failed to update user profile", goerr.V("slack_id", u.SlackID))
			}
			updated++
		}
	}

	logging.From(ctx).Info("User refresh completed",
		"slack_users", len(slackUsers),
		"updated", updated,
		"duration", time.Since(startTime).String())
	return nil
}
