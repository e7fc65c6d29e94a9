package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"babygo/app/internal/names"
)

// ManagerOptions configures the session manager.
type ManagerOptions struct {
	Suggester Suggester
	Store     PreferenceStore
	Logger    *logrus.Logger
	Hub       *sentry.Hub
	TTL       time.Duration
}

const maxPruneInterval = time.Minute

// Manager owns one Session per visitor profile and drops idle ones.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	suggester Suggester
	store     PreferenceStore
	logger    *logrus.Logger
	hub       *sentry.Hub
	ttl       time.Duration
	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewManager validates the options and starts the idle-session pruner when a TTL is set.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Suggester == nil {
		return nil, eris.New("suggester is required")
	}

	if opts.Store == nil {
		return nil, eris.New("preference store is required")
	}

	m := &Manager{
		sessions:  make(map[string]*Session),
		suggester: opts.Suggester,
		store:     opts.Store,
		logger:    opts.Logger,
		hub:       opts.Hub,
		ttl:       opts.TTL,
		now:       time.Now,
		stop:      make(chan struct{}),
	}

	if opts.TTL > 0 {
		ticker := time.NewTicker(pruneInterval(opts.TTL))
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.pruneStale()
				case <-m.stop:
					return
				}
			}
		}()
	}

	return m, nil
}

// Session returns the session of a profile, creating it on first use. A new session loads the
// stored favorites and language once; fallback applies when no language was stored. When the
// store cannot be read the session starts with defaults and is not cached, so the next request
// retries the load.
func (m *Manager) Session(ctx context.Context, profileID string, fallback names.Language) (*Session, error) {
	trimmed := strings.TrimSpace(profileID)
	if trimmed == "" {
		return nil, eris.New("profile id is required")
	}

	now := m.now()

	m.mu.Lock()
	if session, ok := m.sessions[trimmed]; ok {
		m.mu.Unlock()
		session.touch(now)
		return session, nil
	}
	m.mu.Unlock()

	favorites, favoritesErr := m.store.LoadFavorites(ctx, trimmed)
	language, stored, languageErr := m.store.LoadLanguage(ctx, trimmed)
	if languageErr != nil || !stored {
		language = fallbackLanguage(fallback)
	}

	if favoritesErr != nil || languageErr != nil {
		// Degraded sessions stay out of the cache so the next request retries the load.
		fields := logrus.Fields{"profile": trimmed}
		if favoritesErr != nil {
			m.recordLoadError(ctx, fields, eris.Wrap(favoritesErr, "loading favorites"))
			favorites = nil
		}
		if languageErr != nil {
			m.recordLoadError(ctx, fields, eris.Wrap(languageErr, "loading language"))
		}

		session := newSession(trimmed, m.suggester, m.store, m.logger, favorites, language, now)
		session.favoritesStale = favoritesErr != nil
		return session, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[trimmed]; ok {
		session.touch(now)
		return session, nil
	}

	session := newSession(trimmed, m.suggester, m.store, m.logger, favorites, language, now)
	m.sessions[trimmed] = session

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"profile":   trimmed,
			"favorites": len(favorites),
			"language":  string(language),
		}).Debug("session started")
	}

	return session, nil
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Close stops the pruner.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

func (m *Manager) recordLoadError(ctx context.Context, fields logrus.Fields, err error) {
	if m.logger != nil {
		m.logger.WithField("error", err.Error()).WithFields(fields).Warn("preferences unavailable, starting with defaults")
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = m.hub
	}
	if hub == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "discovery")
		for key, value := range fields {
			scope.SetExtra(key, value)
		}
		hub.CaptureException(err)
	})
}

func fallbackLanguage(fallback names.Language) names.Language {
	if parsed, err := names.ParseLanguage(string(fallback)); err == nil {
		return parsed
	}
	return names.DefaultLanguage
}

// pruneInterval bounds how long an idle session can outlive its TTL.
func pruneInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval > maxPruneInterval {
		interval = maxPruneInterval
	}
	if interval <= 0 {
		interval = ttl
	}
	return interval
}

func (m *Manager) pruneStale() {
	if m.ttl <= 0 {
		return
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, session := range m.sessions {
		idle, busy := session.idleSince(now)
		if !busy && idle > m.ttl {
			delete(m.sessions, key)
		}
	}
}
