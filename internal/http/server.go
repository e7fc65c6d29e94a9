package http

import (
	"context"
	stdhttp "net/http"
	"net/netip"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"babygo/app/internal/discovery"
	"babygo/app/internal/i18n"
	"babygo/app/internal/names"
)

// SessionProvider hands out the orchestrator session of a visitor profile.
type SessionProvider interface {
	Session(ctx context.Context, profileID string, fallback names.Language) (*discovery.Session, error)
}

// ReadinessChecker reports whether the model backend can take requests.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Options configures the HTTP server wiring.
type Options struct {
	Sessions      SessionProvider
	Translations  *i18n.Bundle
	Database      *gorm.DB
	Model         ReadinessChecker
	Logger        *logrus.Logger
	SentryHub     *sentry.Hub
	RateLimiter   RateLimiterSettings
	SecureCookies bool
	// TrustedProxies are the peers allowed to name the client via forwarding headers.
	TrustedProxies []netip.Prefix
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api           huma.API
	mux           *stdhttp.ServeMux
	sessions      SessionProvider
	translations  *i18n.Bundle
	model         ReadinessChecker
	logger        *logrus.Logger
	sentry        *sentry.Hub
	db            *gorm.DB
	rateLimiter   *RateLimiter
	secureCookies bool

	trustedProxies []netip.Prefix
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil {
		return nil, eris.New("session provider is required")
	}
	if opts.Translations == nil {
		return nil, eris.New("translations are required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Babygo", "1.0.0")
	config.Info.Description = "Baby name discovery backed by a generative language model."

	api := humago.New(mux, config)

	srv := &Server{
		api:           api,
		mux:           mux,
		sessions:      opts.Sessions,
		translations:  opts.Translations,
		model:         opts.Model,
		logger:        opts.Logger,
		sentry:        opts.SentryHub,
		db:            opts.Database,
		rateLimiter:   NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
		secureCookies: opts.SecureCookies,

		trustedProxies: opts.TrustedProxies,
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.profileMiddleware(),
		s.loggingMiddleware(),
		s.notFoundMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("GET /static/", staticHandler())

	s.registerPageRoutes()
	s.registerAPIRoutes()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
