// Package discovery tracks the per-visitor search, results and favorites state.
package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"babygo/app/internal/names"
)

// Suggester produces name suggestions for a request and never fails.
type Suggester interface {
	Suggest(ctx context.Context, req names.Request) []names.Suggestion
}

// PreferenceStore persists the favorites and language of a profile.
type PreferenceStore interface {
	LoadFavorites(ctx context.Context, profileID string) ([]names.Suggestion, error)
	SaveFavorites(ctx context.Context, profileID string, favorites []names.Suggestion) error
	LoadLanguage(ctx context.Context, profileID string) (names.Language, bool, error)
	SaveLanguage(ctx context.Context, profileID string, language names.Language) error
}

// State is a point-in-time copy of a session.
type State struct {
	ProfileID     string             `json:"-"`
	Query         string             `json:"query"`
	Mode          names.Mode         `json:"mode"`
	Surname       string             `json:"surname"`
	Language      names.Language     `json:"language"`
	Loading       bool               `json:"loading"`
	Searched      bool               `json:"searched"`
	FavoritesOnly bool               `json:"favoritesOnly"`
	Results       []names.Suggestion `json:"results"`
	Favorites     []names.Suggestion `json:"favorites"`
	Displayed     []names.Suggestion `json:"displayed"`
}

// IsFavorite reports whether a favorite with the given name exists in the snapshot.
func (s State) IsFavorite(name string) bool {
	return indexByName(s.Favorites, name) >= 0
}

// Session is the query orchestrator for one visitor profile.
type Session struct {
	mu        sync.Mutex
	profileID string
	suggester Suggester
	store     PreferenceStore
	logger    *logrus.Logger

	query         string
	mode          names.Mode
	surname       string
	language      names.Language
	inFlight      int
	searched      bool
	favoritesOnly bool
	results       []names.Suggestion
	favorites     []names.Suggestion
	lastSeen      time.Time

	// favoritesStale is set when the stored favorites could not be read. They are re-read before
	// the next write so an empty in-memory list never replaces the stored one.
	favoritesStale bool
}

func newSession(profileID string, suggester Suggester, store PreferenceStore, logger *logrus.Logger, favorites []names.Suggestion, language names.Language, now time.Time) *Session {
	if favorites == nil {
		favorites = []names.Suggestion{}
	}

	return &Session{
		profileID: profileID,
		suggester: suggester,
		store:     store,
		logger:    logger,
		mode:      names.ModeHistorical,
		language:  language,
		results:   []names.Suggestion{},
		favorites: favorites,
		lastSeen:  now,
	}
}

// ProfileID returns the visitor profile the session belongs to.
func (s *Session) ProfileID() string {
	return s.profileID
}

// Search runs one suggestion query. Blank queries are rejected before any state changes. The
// loading flag is held for the duration of the call and results are replaced when it returns.
func (s *Session) Search(ctx context.Context, query string, mode names.Mode, surname string) ([]names.Suggestion, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, names.ErrEmptyQuery
	}

	if mode == "" {
		mode = names.ModeHistorical
	}
	parsedMode, err := names.ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	trimmedSurname := strings.TrimSpace(surname)

	s.mu.Lock()
	s.inFlight++
	s.searched = true
	s.favoritesOnly = false
	s.query = trimmed
	s.mode = parsedMode
	s.surname = trimmedSurname
	language := s.language
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	results := s.suggester.Suggest(ctx, names.Request{
		Query:    trimmed,
		Mode:     parsedMode,
		Language: language,
		Surname:  trimmedSurname,
	})
	if results == nil {
		results = []names.Suggestion{}
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()

	return cloneSuggestions(results), nil
}

// ToggleFavorite adds the suggestion when no favorite shares its name and removes it otherwise.
// The full list is persisted on every change; a failed write leaves the favorites untouched.
func (s *Session) ToggleFavorite(ctx context.Context, suggestion names.Suggestion) (bool, error) {
	if strings.TrimSpace(suggestion.Name) == "" {
		return false, eris.New("favorite name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.favoritesStale {
		stored, err := s.store.LoadFavorites(ctx, s.profileID)
		if err != nil {
			s.logError(logrus.Fields{"name": suggestion.Name}, err, "reloading favorites")
			return false, eris.Wrap(err, "reloading favorites")
		}
		if stored == nil {
			stored = []names.Suggestion{}
		}
		s.favorites = stored
		s.favoritesStale = false
	}

	next := make([]names.Suggestion, 0, len(s.favorites)+1)
	added := true
	for _, favorite := range s.favorites {
		if favorite.Name == suggestion.Name {
			added = false
			continue
		}
		next = append(next, favorite)
	}
	if added {
		next = append(next, suggestion)
	}

	if err := s.store.SaveFavorites(ctx, s.profileID, next); err != nil {
		s.logError(logrus.Fields{"name": suggestion.Name}, err, "persisting favorites")
		return false, eris.Wrap(err, "persisting favorites")
	}

	s.favorites = next

	return added, nil
}

// IsFavorite reports whether a favorite with exactly this name exists.
func (s *Session) IsFavorite(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return indexByName(s.favorites, name) >= 0
}

// ToggleFavoritesView flips between favorites and results. Entering an empty favorites view is a
// no-op. It reports whether the favorites view is active afterwards.
func (s *Session) ToggleFavoritesView() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.favorites) == 0 && !s.favoritesOnly {
		return false
	}

	s.favoritesOnly = !s.favoritesOnly
	s.searched = true

	return s.favoritesOnly
}

// ShowResults leaves the favorites view.
func (s *Session) ShowResults() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.favoritesOnly = false
}

// Language returns the session language.
func (s *Session) Language() names.Language {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.language
}

// SetLanguage persists and applies a new display language.
func (s *Session) SetLanguage(ctx context.Context, language names.Language) error {
	parsed, err := names.ParseLanguage(string(language))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveLanguage(ctx, s.profileID, parsed); err != nil {
		s.logError(logrus.Fields{"language": string(parsed)}, err, "persisting language")
		return eris.Wrap(err, "persisting language")
	}

	s.language = parsed
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		ProfileID:     s.profileID,
		Query:         s.query,
		Mode:          s.mode,
		Surname:       s.surname,
		Language:      s.language,
		Loading:       s.inFlight > 0,
		Searched:      s.searched,
		FavoritesOnly: s.favoritesOnly,
		Results:       cloneSuggestions(s.results),
		Favorites:     cloneSuggestions(s.favorites),
	}

	if state.FavoritesOnly {
		state.Displayed = cloneSuggestions(s.favorites)
	} else {
		state.Displayed = cloneSuggestions(s.results)
	}

	return state
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return now.Sub(s.lastSeen), s.inFlight > 0
}

func (s *Session) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	s.logger.WithField("error", err.Error()).
		WithField("profile", s.profileID).
		WithFields(fields).
		Error(message)
}

func indexByName(list []names.Suggestion, name string) int {
	for idx, item := range list {
		if item.Name == name {
			return idx
		}
	}
	return -1
}

func cloneSuggestions(list []names.Suggestion) []names.Suggestion {
	out := make([]names.Suggestion, len(list))
	copy(out, list)
	return out
}
