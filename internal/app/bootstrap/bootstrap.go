// Package bootstrap composes the Babygo application from its configuration.
package bootstrap

import (
	"context"
	"errors"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"babygo/app/internal/config"
	"babygo/app/internal/db"
	"babygo/app/internal/discovery"
	apphttp "babygo/app/internal/http"
	"babygo/app/internal/i18n"
	"babygo/app/internal/llm"
	"babygo/app/internal/names"
	"babygo/app/internal/preferences"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Sessions   *discovery.Manager
	HTTPServer *apphttp.Server
	Database   *gorm.DB
	Cleanup    func() error
}

// completer is a model backend usable both for suggestions and for the health check.
type completer interface {
	names.Completer
	apphttp.ReadinessChecker
	Model() string
}

// Build composes the Babygo application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	if deps.Logger == nil {
		return Result{}, eris.New("logger is required")
	}

	database, err := db.Open(db.Options{Path: deps.Config.DBPath})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	var closers []func() error
	closers = append(closers, func() error { return db.Close(database) })

	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if closeErr := closers[i](); closeErr != nil {
				errs = append(errs, closeErr)
			}
		}
		return errors.Join(errs...)
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := cleanup(); closeErr != nil {
			deps.Logger.WithError(closeErr).Error("releasing resources after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := preferences.Migrate(ctx, database, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running preference migrations"))
	}

	store, err := preferences.NewStore(database, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating preference store"))
	}

	model, err := buildCompleter(ctx, deps.Config, deps.Logger)
	if err != nil {
		return closeOnError(err)
	}
	if closer, ok := model.(interface{ Close() error }); ok {
		closers = append(closers, closer.Close)
	}

	deps.Logger.WithFields(logrus.Fields{
		"provider": deps.Config.LLMProvider,
		"model":    model.Model(),
	}).Info("model backend configured")

	client, err := names.NewClient(names.ClientOptions{
		Completer: model,
		Logger:    deps.Logger,
		Hub:       deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating names client"))
	}

	sessions, err := discovery.NewManager(discovery.ManagerOptions{
		Suggester: client,
		Store:     store,
		Logger:    deps.Logger,
		Hub:       deps.SentryHub,
		TTL:       deps.Config.SessionTTL,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating session manager"))
	}
	closers = append(closers, func() error {
		sessions.Close()
		return nil
	})

	translations, err := i18n.Load()
	if err != nil {
		return closeOnError(eris.Wrap(err, "loading translations"))
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		Sessions:     sessions,
		Translations: translations,
		Database:     database,
		Model:        model,
		Logger:       deps.Logger,
		SentryHub:    deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
		SecureCookies:  deps.Config.Environment == "production",
		TrustedProxies: deps.Config.TrustedProxies,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}
	closers = append(closers, func() error {
		httpServer.Close()
		return nil
	})

	return Result{
		Sessions:   sessions,
		HTTPServer: httpServer,
		Database:   database,
		Cleanup:    cleanup,
	}, nil
}

func buildCompleter(ctx context.Context, cfg config.Config, logger *logrus.Logger) (completer, error) {
	if len(cfg.LLMModels) == 0 {
		return nil, eris.New("LLM_MODELS must include at least one model name")
	}
	model := cfg.LLMModels[0]

	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		logger.WithField("provider", cfg.LLMProvider).Warn("no LLM API key configured, searches will return no results")
		return llm.NewUnconfiguredCompleter(model), nil
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		client, err := llm.NewClient(llm.ClientOptions{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMEndpoint,
			Timeout: cfg.LLMTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, eris.Wrap(err, "creating llm client")
		}

		openAI, err := llm.NewOpenAICompleter(llm.CompleterOptions{
			Client:      client,
			Model:       model,
			Temperature: &cfg.LLMTemperature,
		})
		if err != nil {
			return nil, eris.Wrap(err, "initialising openai completer")
		}
		return openAI, nil

	case config.ProviderGemini:
		gemini, err := llm.NewGeminiCompleter(ctx, llm.GeminiOptions{
			APIKey:      cfg.LLMAPIKey,
			Model:       model,
			Temperature: &cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, eris.Wrap(err, "initialising gemini completer")
		}
		return gemini, nil

	default:
		return nil, eris.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}
