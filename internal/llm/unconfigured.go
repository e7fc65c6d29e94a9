package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"babygo/app/internal/names"
)

// ErrMissingAPIKey is returned by every call of an UnconfiguredCompleter.
var ErrMissingAPIKey = eris.New("llm api key is not configured")

// UnconfiguredCompleter stands in for a backend when no API key is set. Searches degrade to empty
// results and the health check reports the model as unavailable.
type UnconfiguredCompleter struct {
	model string
}

var _ names.Completer = (*UnconfiguredCompleter)(nil)

// NewUnconfiguredCompleter builds a completer that always fails with ErrMissingAPIKey.
func NewUnconfiguredCompleter(model string) *UnconfiguredCompleter {
	return &UnconfiguredCompleter{model: model}
}

// Complete always fails.
func (u *UnconfiguredCompleter) Complete(context.Context, names.Prompt) (string, error) {
	return "", ErrMissingAPIKey
}

// Ready always fails.
func (u *UnconfiguredCompleter) Ready(context.Context) error {
	return ErrMissingAPIKey
}

// Model returns the model that would have been used.
func (u *UnconfiguredCompleter) Model() string {
	return u.model
}
