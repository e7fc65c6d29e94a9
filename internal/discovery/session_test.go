package discovery

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"babygo/app/internal/names"
)

type fakeSuggester struct {
	mu       sync.Mutex
	results  []names.Suggestion
	requests []names.Request
	started  chan struct{}
	release  chan struct{}

	// replies and gates override results and release for a single query.
	replies map[string][]names.Suggestion
	gates   map[string]chan struct{}
}

func (f *fakeSuggester) Suggest(ctx context.Context, req names.Request) []names.Suggestion {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	results := f.results
	if reply, ok := f.replies[req.Query]; ok {
		results = reply
	}
	release := f.release
	if gate, ok := f.gates[req.Query]; ok {
		release = gate
	}
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return results
}

func (f *fakeSuggester) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type memoryStore struct {
	mu          sync.Mutex
	favorites   map[string][]names.Suggestion
	languages   map[string]names.Language
	saveErr     error
	loadErr     error
	languageErr error
	loads       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		favorites: map[string][]names.Suggestion{},
		languages: map[string]names.Language{},
	}
}

func (m *memoryStore) LoadFavorites(ctx context.Context, profileID string) ([]names.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]names.Suggestion{}, m.favorites[profileID]...), nil
}

func (m *memoryStore) SaveFavorites(ctx context.Context, profileID string, favorites []names.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.favorites[profileID] = append([]names.Suggestion{}, favorites...)
	return nil
}

func (m *memoryStore) LoadLanguage(ctx context.Context, profileID string) (names.Language, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.languageErr != nil {
		return "", false, m.languageErr
	}
	language, ok := m.languages[profileID]
	if !ok {
		return names.DefaultLanguage, false, nil
	}
	return language, true, nil
}

func (m *memoryStore) SaveLanguage(ctx context.Context, profileID string, language names.Language) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.languages[profileID] = language
	return nil
}

func sampleSuggestions(count int) []names.Suggestion {
	out := make([]names.Suggestion, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, names.Suggestion{
			Name:            fmt.Sprintf("Name%d", i),
			Origin:          "Latin",
			PhoneticScore:   80,
			Gender:          names.GenderUnisex,
			HistoricalTrend: names.TrendStable,
		})
	}
	return out
}

func newTestSession(suggester Suggester, store PreferenceStore) *Session {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return newSession("profile-a", suggester, store, logger, nil, names.DefaultLanguage, time.Now())
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	t.Parallel()

	suggester := &fakeSuggester{}
	session := newTestSession(suggester, newMemoryStore())

	if _, err := session.Search(context.Background(), "   ", names.ModeHistorical, ""); !eris.Is(err, names.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}

	if suggester.calls() != 0 {
		t.Fatalf("expected no model call, got %d", suggester.calls())
	}

	state := session.Snapshot()
	if state.Searched || state.Loading || state.Query != "" {
		t.Fatalf("expected state untouched, got %+v", state)
	}
}

func TestSearchTogglesLoadingAroundCall(t *testing.T) {
	t.Parallel()

	suggester := &fakeSuggester{
		results: sampleSuggestions(3),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	session := newTestSession(suggester, newMemoryStore())

	done := make(chan []names.Suggestion)
	go func() {
		results, _ := session.Search(context.Background(), "Classic", names.ModeHistorical, "")
		done <- results
	}()

	<-suggester.started
	if state := session.Snapshot(); !state.Loading || !state.Searched {
		t.Fatalf("expected loading and searched during call, got %+v", state)
	}

	close(suggester.release)
	results := <-done

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	state := session.Snapshot()
	if state.Loading {
		t.Fatalf("expected loading cleared after call")
	}
	if len(state.Results) != 3 || len(state.Displayed) != 3 {
		t.Fatalf("expected 3 results displayed, got %d/%d", len(state.Results), len(state.Displayed))
	}
	if state.Query != "Classic" || state.Mode != names.ModeHistorical {
		t.Fatalf("expected query and mode recorded, got %q/%q", state.Query, state.Mode)
	}
}

func TestOverlappingSearchesKeepLoadingUntilLastReturns(t *testing.T) {
	t.Parallel()

	first := []names.Suggestion{{Name: "Ada"}}
	second := []names.Suggestion{{Name: "Bea"}, {Name: "Cora"}}
	suggester := &fakeSuggester{
		started: make(chan struct{}),
		replies: map[string][]names.Suggestion{"First": first, "Second": second},
		gates: map[string]chan struct{}{
			"First":  make(chan struct{}),
			"Second": make(chan struct{}),
		},
	}
	session := newTestSession(suggester, newMemoryStore())

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = session.Search(context.Background(), "First", names.ModeHistorical, "")
	}()
	<-suggester.started

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, _ = session.Search(context.Background(), "Second", names.ModeHistorical, "")
	}()
	<-suggester.started

	close(suggester.gates["Second"])
	<-secondDone

	state := session.Snapshot()
	if !state.Loading {
		t.Fatalf("expected loading while the first search is still running")
	}
	if len(state.Results) != 2 || state.Results[0].Name != "Bea" {
		t.Fatalf("expected second reply applied, got %+v", state.Results)
	}

	close(suggester.gates["First"])
	<-firstDone

	state = session.Snapshot()
	if state.Loading {
		t.Fatalf("expected loading cleared once both searches returned")
	}
	if len(state.Results) != 1 || state.Results[0].Name != "Ada" {
		t.Fatalf("expected the last reply to win, got %+v", state.Results)
	}
	if suggester.calls() != 2 {
		t.Fatalf("expected 2 suggester calls, got %d", suggester.calls())
	}
}

func TestSearchWithEmptyReplyClearsLoading(t *testing.T) {
	t.Parallel()

	suggester := &fakeSuggester{results: []names.Suggestion{}}
	session := newTestSession(suggester, newMemoryStore())
	session.results = sampleSuggestions(2)

	results, err := session.Search(context.Background(), "Vintage", names.ModeAI, "Smith")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}

	state := session.Snapshot()
	if state.Loading || !state.Searched || len(state.Results) != 0 {
		t.Fatalf("unexpected state after empty reply %+v", state)
	}

	req := suggester.requests[0]
	if req.Mode != names.ModeAI || req.Surname != "Smith" || req.Language != names.LanguageEnglish {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestSearchRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	session := newTestSession(&fakeSuggester{}, newMemoryStore())

	if _, err := session.Search(context.Background(), "Classic", "psychic", ""); !eris.Is(err, names.ErrUnsupportedMode) {
		t.Fatalf("expected ErrUnsupportedMode, got %v", err)
	}
}

func TestSearchLeavesFavoritesView(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	session := newTestSession(&fakeSuggester{results: sampleSuggestions(1)}, store)

	if _, err := session.ToggleFavorite(context.Background(), sampleSuggestions(1)[0]); err != nil {
		t.Fatalf("ToggleFavorite returned error: %v", err)
	}
	if !session.ToggleFavoritesView() {
		t.Fatalf("expected favorites view to be active")
	}

	if _, err := session.Search(context.Background(), "Modern", "", ""); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if session.Snapshot().FavoritesOnly {
		t.Fatalf("expected search to leave favorites view")
	}
}

func TestToggleFavoriteAddsThenRemoves(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	session := newTestSession(&fakeSuggester{}, store)
	ctx := context.Background()
	item := sampleSuggestions(1)[0]

	added, err := session.ToggleFavorite(ctx, item)
	if err != nil || !added {
		t.Fatalf("expected first toggle to add, got added=%v err=%v", added, err)
	}
	if !session.IsFavorite(item.Name) {
		t.Fatalf("expected %q to be a favorite", item.Name)
	}
	if len(store.favorites["profile-a"]) != 1 {
		t.Fatalf("expected favorites persisted, got %d", len(store.favorites["profile-a"]))
	}

	changed := item
	changed.Origin = "Greek"
	added, err = session.ToggleFavorite(ctx, changed)
	if err != nil || added {
		t.Fatalf("expected second toggle to remove by name, got added=%v err=%v", added, err)
	}
	if session.IsFavorite(item.Name) {
		t.Fatalf("expected %q removed", item.Name)
	}
	if len(store.favorites["profile-a"]) != 0 {
		t.Fatalf("expected removal persisted, got %d", len(store.favorites["profile-a"]))
	}
}

func TestToggleFavoriteMatchesNameExactly(t *testing.T) {
	t.Parallel()

	session := newTestSession(&fakeSuggester{}, newMemoryStore())
	ctx := context.Background()

	if _, err := session.ToggleFavorite(ctx, names.Suggestion{Name: "Ava"}); err != nil {
		t.Fatalf("ToggleFavorite returned error: %v", err)
	}
	added, err := session.ToggleFavorite(ctx, names.Suggestion{Name: "ava"})
	if err != nil {
		t.Fatalf("ToggleFavorite returned error: %v", err)
	}
	if !added {
		t.Fatalf("expected case-different name to be added separately")
	}
	if len(session.Snapshot().Favorites) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(session.Snapshot().Favorites))
	}
}

func TestToggleFavoriteRollsBackOnPersistenceFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.saveErr = eris.New("disk full")
	session := newTestSession(&fakeSuggester{}, store)

	if _, err := session.ToggleFavorite(context.Background(), names.Suggestion{Name: "Ava"}); err == nil {
		t.Fatalf("expected persistence error")
	}
	if session.IsFavorite("Ava") {
		t.Fatalf("expected favorites unchanged after failed write")
	}
}

func TestToggleFavoritesViewIsNoOpWithoutFavorites(t *testing.T) {
	t.Parallel()

	session := newTestSession(&fakeSuggester{}, newMemoryStore())

	if session.ToggleFavoritesView() {
		t.Fatalf("expected favorites view to stay off without favorites")
	}
	if state := session.Snapshot(); state.FavoritesOnly || state.Searched {
		t.Fatalf("expected no state change, got %+v", state)
	}
}

func TestFavoritesViewDisplaysFavoritesAndKeepsResults(t *testing.T) {
	t.Parallel()

	session := newTestSession(&fakeSuggester{results: sampleSuggestions(4)}, newMemoryStore())
	ctx := context.Background()

	if _, err := session.Search(ctx, "Classic", names.ModeHistorical, ""); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if _, err := session.ToggleFavorite(ctx, sampleSuggestions(4)[2]); err != nil {
		t.Fatalf("ToggleFavorite returned error: %v", err)
	}

	if !session.ToggleFavoritesView() {
		t.Fatalf("expected favorites view on")
	}

	state := session.Snapshot()
	if len(state.Displayed) != 1 || state.Displayed[0].Name != "Name2" {
		t.Fatalf("expected favorites displayed, got %+v", state.Displayed)
	}
	if len(state.Results) != 4 || state.Query != "Classic" {
		t.Fatalf("expected results and query preserved, got %d/%q", len(state.Results), state.Query)
	}

	session.ShowResults()
	if state := session.Snapshot(); state.FavoritesOnly || len(state.Displayed) != 4 {
		t.Fatalf("expected results displayed again, got %+v", state)
	}

	session.ToggleFavoritesView()
	if session.ToggleFavoritesView() {
		t.Fatalf("expected second toggle to leave favorites view")
	}
}

func TestSetLanguagePersists(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	session := newTestSession(&fakeSuggester{}, store)
	ctx := context.Background()

	if err := session.SetLanguage(ctx, names.LanguageSpanish); err != nil {
		t.Fatalf("SetLanguage returned error: %v", err)
	}
	if session.Language() != names.LanguageSpanish {
		t.Fatalf("expected spanish, got %q", session.Language())
	}
	if store.languages["profile-a"] != names.LanguageSpanish {
		t.Fatalf("expected language persisted, got %q", store.languages["profile-a"])
	}

	if err := session.SetLanguage(ctx, "de"); !eris.Is(err, names.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if session.Language() != names.LanguageSpanish {
		t.Fatalf("expected language unchanged after invalid code")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	session := newTestSession(&fakeSuggester{results: sampleSuggestions(2)}, newMemoryStore())
	if _, err := session.Search(context.Background(), "Classic", names.ModeHistorical, ""); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	state := session.Snapshot()
	state.Results[0].Name = "Mutated"

	if session.Snapshot().Results[0].Name != "Name0" {
		t.Fatalf("expected snapshot mutation not to leak into the session")
	}
}
