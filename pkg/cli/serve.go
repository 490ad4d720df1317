package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/cli/config"
	httpctrl "github.com/secmon-lab/contactbook/pkg/controller/http"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/service/worker"
	"github.com/secmon-lab/contactbook/pkg/usecase"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	defaultPort     = "9000"
	shutdownTimeout = 10 * time.Second
)

func cmdServe() *cli.Command {
	var (
		addr            string
		port            string
		timezone        string
		refreshInterval time.Duration
		repoCfg         config.Repository
		slackCfg        config.Slack
		seedCfg         config.Seed
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address; overrides --port",
			Sources:     cli.EnvVars("CONTACTBOOK_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "port",
			Usage:       "HTTP server port, used when --addr is not set",
			Value:       defaultPort,
			Sources:     cli.EnvVars("CONTACTBOOK_PORT", "PORT"),
			Destination: &port,
		},
		&cli.StringFlag{
			Name:        "timezone",
			Usage:       "IANA time zone used to render message timestamps",
			Value:       "Local",
			Sources:     cli.EnvVars("CONTACTBOOK_TIMEZONE", "TZ"),
			Destination: &timezone,
		},
		&cli.DurationFlag{
			Name:        "user-refresh-interval",
			Usage:       "How often Slack profiles of known users are refreshed",
			Value:       worker.DefaultRefreshInterval,
			Sources:     cli.EnvVars("CONTACTBOOK_USER_REFRESH_INTERVAL"),
			Destination: &refreshInterval,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, seedCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the Slack bot HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if addr == "" {
				addr = net.JoinHostPort("", port)
			}

			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return goerr.Wrap(err, "invalid timezone", goerr.V(config.FlagKey, "timezone"), goerr.V("value", timezone))
			}

			logging.Default().Info("Serve configuration",
				"addr", addr,
				"timezone", loc.String(),
				"repository", repoCfg,
				"slack", slackCfg,
				"seed", seedCfg,
			)

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack")
			}

			partner, funder, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer closeRepositories(partner, funder)

			if seedCfg.Path() != "" {
				if err := applySeed(ctx, seedCfg.Path(), partner, funder); err != nil {
					return err
				}
			}

			uc := usecase.New(partner, funder,
				usecase.WithSlackService(slackSvc),
				usecase.WithLocation(loc),
			)

			userWorker := worker.NewUserRefreshWorker(slackSvc, refreshInterval, partner, funder)
			if err := userWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start user refresh worker")
			}
			defer userWorker.Stop()

			httpHandler, err := httpctrl.New(uc,
				httpctrl.WithSlackService(slackSvc),
				httpctrl.WithSigningSecret(slackCfg.SigningSecret()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
				userWorker.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

func closeRepositories(repos ...interfaces.Repository) {
	ctx := context.Background()
	for _, repo := range repos {
		if repo == nil {
			continue
		}
		if err := repo.Close(ctx); err != nil {
			logging.Default().Error("failed to close repository", "error", err)
		}
	}
}

func applySeed(ctx context.Context, path string, partner, funder interfaces.Repository) error {
	file, err := config.LoadSeedFile(path)
	if err != nil {
		return err
	}
	result, err := file.Apply(ctx, partner, funder)
	if err != nil {
		return goerr.Wrap(err, "failed to apply seed file", goerr.V(config.PathKey, path))
	}
	logging.Default().Info("Seed data loaded", "path", path, "result", result)
	return nil
}
