package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/service/slack"
	"github.com/secmon-lab/contactbook/pkg/usecase"
	"github.com/secmon-lab/contactbook/pkg/utils/async"
	"github.com/secmon-lab/contactbook/pkg/utils/errutil"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"github.com/secmon-lab/contactbook/pkg/utils/safe"
)

// Dispatcher runs work after the HTTP response has been sent.
type Dispatcher func(ctx context.Context, name string, handler func(ctx context.Context) error)

type Server struct {
	router        *chi.Mux
	uc            *usecase.UseCases
	slackService  slack.Service
	signingSecret string
	dispatch      Dispatcher
}

type Option func(*Server)

// WithSlackService sets the client used to deliver delayed slash command
// responses.
func WithSlackService(svc slack.Service) Option {
	return func(s *Server) {
		s.slackService = svc
	}
}

func WithSigningSecret(secret string) Option {
	return func(s *Server) {
		s.signingSecret = secret
	}
}

// WithDispatcher replaces async.Dispatch, e.g. with a synchronous runner in
// tests.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Server) {
		s.dispatch = d
	}
}

func New(uc *usecase.UseCases, opts ...Option) (*Server, error) {
	if uc == nil {
		return nil, goerr.New("usecases are required")
	}

	r := chi.NewRouter()
	s := &Server{
		router:   r,
		uc:       uc,
		dispatch: async.Dispatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.signingSecret == "" {
		return nil, goerr.New("slack signing secret is required")
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		safe.Write(r.Context(), w, []byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Slack endpoints authenticate by request signature only.
	r.Route("/slack", func(r chi.Router) {
		r.Use(SlackSignatureMiddleware(s.signingSecret))
		r.Post("/commands", s.handleCommand)
		r.Post("/interactions", s.handleInteraction)
		r.Post("/events", s.handleEvent)
	})

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	safe.Write(ctx, w, data)
}
