package http

import (
	"context"

	"babygo/app/internal/names"
)

type contextKey string

const (
	requestIDContextKey contextKey = "babygo/request-id"
	profileContextKey   contextKey = "babygo/profile"
	languageContextKey  contextKey = "babygo/accept-language"
)

// RequestIDFromContext extracts the request identifier from the context when available.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDContextKey).(string); ok {
		return value
	}
	return ""
}

// ProfileIDFromContext extracts the visitor profile identifier from the context.
func ProfileIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(profileContextKey).(string); ok {
		return value
	}
	return ""
}

// preferredLanguageFromContext returns the language negotiated from Accept-Language.
func preferredLanguageFromContext(ctx context.Context) names.Language {
	if ctx == nil {
		return names.DefaultLanguage
	}
	if value, ok := ctx.Value(languageContextKey).(names.Language); ok {
		return value
	}
	return names.DefaultLanguage
}
