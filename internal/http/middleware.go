package http

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	stdhttp "net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	profileCookieName   = "babygo_profile"
	profileCookieMaxAge = 365 * 24 * time.Hour
	problemContentType  = "application/problem+json"
)

func (s *Server) requestIDMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := uuid.NewString()
		goCtx := context.WithValue(ctx.Context(), requestIDContextKey, reqID)
		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader("X-Request-ID", reqID)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(ctx)
	}
}

func (s *Server) rateLimitMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.rateLimiter == nil {
			next(ctx)
			return
		}

		req, _ := humago.Unwrap(ctx)
		if req == nil {
			next(ctx)
			return
		}

		ip := clientIPFromRequest(req, s.trustedProxies)
		allowed, wait := s.rateLimiter.Allow(ip)
		if allowed {
			next(ctx)
			return
		}

		fields := logrus.Fields{
			"ip":   ip,
			"path": req.URL.Path,
		}
		if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
			fields["request_id"] = requestID
		}
		if s.logger != nil {
			s.logger.WithError(eris.New("rate limit exceeded")).WithFields(fields).Warn("request rate limited")
		}

		tr := s.translations.For(s.translations.Resolve(req.Header.Get("Accept-Language")))
		retryAfter := int(math.Ceil(wait.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}

		ctx.SetHeader("Retry-After", strconv.Itoa(retryAfter))

		if isAPIPath(req.URL.Path) {
			body, _ := json.Marshal(huma.ErrorModel{
				Title:  stdhttp.StatusText(stdhttp.StatusTooManyRequests),
				Status: stdhttp.StatusTooManyRequests,
				Detail: tr.T("ratelimit.message"),
			})
			ctx.SetHeader("Content-Type", problemContentType)
			ctx.SetStatus(stdhttp.StatusTooManyRequests)
			_, _ = ctx.BodyWriter().Write(body)
			return
		}

		resp := s.renderErrorResponse(ctx.Context(), tr, stdhttp.StatusTooManyRequests, "ratelimit.title", "ratelimit.message", 0)
		ctx.SetHeader("Content-Type", resp.ContentType)
		ctx.SetStatus(stdhttp.StatusTooManyRequests)
		_, _ = ctx.BodyWriter().Write(resp.Body)
	}
}

// profileMiddleware identifies the visitor by cookie, issuing a new profile when none is present,
// and records the language negotiated from Accept-Language for first-time sessions.
func (s *Server) profileMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		profileID := ""
		if req, _ := humago.Unwrap(ctx); req != nil {
			if cookie, err := req.Cookie(profileCookieName); err == nil {
				if parsed, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					profileID = parsed.String()
				}
			}
		}

		if profileID == "" {
			profileID = uuid.NewString()
			cookie := &stdhttp.Cookie{
				Name:     profileCookieName,
				Value:    profileID,
				Path:     "/",
				MaxAge:   int(profileCookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   s.secureCookies,
				SameSite: stdhttp.SameSiteLaxMode,
			}
			ctx.AppendHeader("Set-Cookie", cookie.String())
		}

		goCtx := context.WithValue(ctx.Context(), profileContextKey, profileID)
		goCtx = context.WithValue(goCtx, languageContextKey, s.translations.Resolve(ctx.Header("Accept-Language")))
		ctx = huma.WithContext(ctx, goCtx)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetUser(sentry.User{ID: profileID})
		}

		next(ctx)
	}
}

// notFoundMiddleware answers paths that only matched the catch-all home pattern.
func (s *Server) notFoundMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		req, _ := humago.Unwrap(ctx)
		if op == nil || req == nil || op.Path != "/" || req.URL.Path == "/" {
			next(ctx)
			return
		}

		session, err := s.session(ctx.Context())
		if err != nil {
			s.recordError(ctx.Context(), err, "loading session", nil)
		}

		tr := s.translations.For(preferredLanguageFromContext(ctx.Context()))
		favorites := 0
		if session != nil {
			state := session.Snapshot()
			tr = s.translations.For(state.Language)
			favorites = len(state.Favorites)
		}

		resp := s.renderErrorResponse(ctx.Context(), tr, stdhttp.StatusNotFound, "notfound.subtitle", "notfound.message", favorites)
		ctx.SetHeader("Content-Type", resp.ContentType)
		ctx.SetStatus(stdhttp.StatusNotFound)
		_, _ = ctx.BodyWriter().Write(resp.Body)
	}
}

func (s *Server) loggingMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		fields := logrus.Fields{
			"method":      ctx.Method(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}

		if op := ctx.Operation(); op != nil {
			fields["route"] = op.Path
		}

		if req, _ := humago.Unwrap(ctx); req != nil {
			fields["path"] = req.URL.Path
			fields["remote_addr"] = req.RemoteAddr
		}

		if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
			fields["request_id"] = requestID
		}

		if profileID := ProfileIDFromContext(ctx.Context()); profileID != "" {
			fields["profile"] = profileID
		}

		entry := s.logger.WithFields(fields)
		if status >= 500 {
			entry.Error("request failed")
		} else {
			entry.Info("request completed")
		}
	}
}

func (s *Server) recoveryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			if rec := recover(); rec != nil {
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("panic: %v", v)
				}

				s.recordError(ctx.Context(), err, "panic recovered", nil)

				if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
					hub.RecoverWithContext(ctx.Context(), rec)
					hub.Flush(2 * time.Second)
				}

				ctx.SetHeader("Content-Type", "text/plain; charset=utf-8")
				ctx.SetStatus(stdhttp.StatusInternalServerError)
				_, _ = ctx.BodyWriter().Write([]byte("internal server error"))
			}
		}()

		next(ctx)
	}
}

func (s *Server) sentryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			scope.SetTag("http.route", op.Path)
		}

		goCtx := sentry.SetHubOnContext(ctx.Context(), hub)
		ctx = huma.WithContext(ctx, goCtx)

		defer hub.Flush(2 * time.Second)

		next(ctx)
	}
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// clientIPFromRequest resolves the client address. Forwarding headers are only honored when the
// direct peer is a trusted proxy; X-Forwarded-For is walked from the right and the first untrusted
// hop wins.
func clientIPFromRequest(req *stdhttp.Request, trusted []netip.Prefix) string {
	if req == nil {
		return ""
	}

	remote := strings.TrimSpace(req.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	if !isTrustedProxy(remote, trusted) {
		return remote
	}

	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrustedProxy(hop, trusted) || i == 0 {
				return hop
			}
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return remote
}

func isTrustedProxy(raw string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
