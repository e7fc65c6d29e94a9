package names

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Completer sends one prompt to a model backend and returns its raw text reply.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ClientOptions configures the name-suggestion client.
type ClientOptions struct {
	Completer Completer
	Prompts   *PromptBuilder
	Logger    *logrus.Logger
	Hub       *sentry.Hub
}

// Client turns a style query into scored name suggestions.
type Client struct {
	completer Completer
	prompts   *PromptBuilder
	logger    *logrus.Logger
	hub       *sentry.Hub
}

// NewClient validates the options and builds a Client. The embedded prompt templates are used
// when no builder is supplied.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Completer == nil {
		return nil, eris.New("completer is required")
	}

	if opts.Logger == nil {
		return nil, eris.New("logger is required")
	}

	prompts := opts.Prompts
	if prompts == nil {
		builder, err := NewPromptBuilder()
		if err != nil {
			return nil, eris.Wrap(err, "loading prompt templates")
		}
		prompts = builder
	}

	return &Client{
		completer: opts.Completer,
		prompts:   prompts,
		logger:    opts.Logger,
		hub:       opts.Hub,
	}, nil
}

// Suggest issues exactly one model request for the given query. Failures are logged and reported
// and yield an empty, non-nil slice.
func (c *Client) Suggest(ctx context.Context, req Request) []Suggestion {
	fields := logrus.Fields{
		"mode":     string(req.Mode),
		"language": string(req.Language),
		"query":    strings.TrimSpace(req.Query),
	}

	prompt, err := c.prompts.BuildPrompt(req)
	if err != nil {
		c.recordError(ctx, fields, err, "building name prompt")
		return []Suggestion{}
	}

	reply, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		c.recordError(ctx, fields, err, "requesting name suggestions")
		return []Suggestion{}
	}

	suggestions, err := ParseSuggestions(reply)
	if err != nil {
		c.recordError(ctx, fields, err, "parsing name suggestions")
		return []Suggestion{}
	}

	c.logger.WithFields(fields).WithField("count", len(suggestions)).Info("name suggestions received")

	return suggestions
}

func (c *Client) recordError(ctx context.Context, fields logrus.Fields, err error, message string) {
	c.logger.WithField("error", err.Error()).WithFields(fields).Error(message)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = c.hub
	}
	if hub == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "names")
		for key, value := range fields {
			scope.SetExtra(key, value)
		}
		hub.CaptureException(err)
	})
}
