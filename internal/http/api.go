package http

import (
	"context"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"babygo/app/internal/discovery"
	"babygo/app/internal/names"
)

type searchRequest struct {
	Body struct {
		Query   string `json:"query" maxLength:"500" doc:"Free-text style or preference to analyze"`
		Mode    string `json:"mode,omitempty" enum:"historical,ai" doc:"Search framing, historical by default"`
		Surname string `json:"surname,omitempty" maxLength:"120" doc:"Optional family name to harmonize with"`
	}
}

type searchResponse struct {
	Body struct {
		Message string             `json:"message"`
		Results []names.Suggestion `json:"results"`
	}
}

type stateResponse struct {
	Body discovery.State
}

type favoritesResponse struct {
	Body struct {
		Favorites []names.Suggestion `json:"favorites"`
	}
}

type suggestionPayload struct {
	Name                 string  `json:"name" minLength:"1"`
	Origin               string  `json:"origin,omitempty"`
	Meaning              string  `json:"meaning,omitempty"`
	PhoneticScore        float64 `json:"phoneticScore,omitempty"`
	PopularityEra        string  `json:"popularityEra,omitempty"`
	CulturalSignificance string  `json:"culturalSignificance,omitempty"`
	Gender               string  `json:"gender,omitempty" enum:"boy,girl,unisex"`
	HistoricalTrend      string  `json:"historicalTrend,omitempty" enum:"rising,falling,stable"`
}

type toggleFavoriteRequest struct {
	Body struct {
		Suggestion suggestionPayload `json:"suggestion"`
	}
}

type toggleFavoriteResponse struct {
	Body struct {
		Added     bool               `json:"added"`
		Favorites []names.Suggestion `json:"favorites"`
	}
}

type languageRequest struct {
	Body struct {
		Language string `json:"language" doc:"Two-letter language code"`
	}
}

type languageResponse struct {
	Body struct {
		Language names.Language `json:"language"`
	}
}

func (s *Server) registerAPIRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search-names",
		Method:      stdhttp.MethodPost,
		Path:        "/api/search",
		Summary:     "Run a name search",
		Tags:        []string{"names"},
	}, s.apiSearchHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-state",
		Method:      stdhttp.MethodGet,
		Path:        "/api/state",
		Summary:     "Current discovery state of the visitor",
		Tags:        []string{"names"},
	}, s.apiStateHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-favorites",
		Method:      stdhttp.MethodGet,
		Path:        "/api/favorites",
		Summary:     "List favorite names",
		Tags:        []string{"favorites"},
	}, s.apiFavoritesHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggle-favorite",
		Method:      stdhttp.MethodPost,
		Path:        "/api/favorites/toggle",
		Summary:     "Add or remove a favorite name",
		Tags:        []string{"favorites"},
	}, s.apiToggleFavoriteHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "set-language",
		Method:      stdhttp.MethodPut,
		Path:        "/api/language",
		Summary:     "Switch the display and output language",
		Tags:        []string{"preferences"},
	}, s.apiLanguageHandler)
}

func (s *Server) apiSearchHandler(ctx context.Context, input *searchRequest) (*searchResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading session", nil)
		return nil, huma.Error500InternalServerError("session unavailable")
	}

	tr := s.translations.For(session.Language())

	mode := names.ModeHistorical
	if input.Body.Mode != "" {
		if mode, err = names.ParseMode(input.Body.Mode); err != nil {
			return nil, huma.Error400BadRequest(tr.T("search.invalid_mode"))
		}
	}

	results, err := session.Search(ctx, input.Body.Query, mode, input.Body.Surname)
	if err != nil {
		if eris.Is(err, names.ErrEmptyQuery) {
			return nil, huma.Error400BadRequest(tr.T("search.empty_query"))
		}
		s.recordError(ctx, err, "running search", logrus.Fields{"query": input.Body.Query})
		return nil, huma.Error500InternalServerError(tr.T("error.message"))
	}

	resp := &searchResponse{}
	resp.Body.Message = tr.Tf("results.summary", len(results), strings.TrimSpace(input.Body.Query))
	resp.Body.Results = results
	return resp, nil
}

func (s *Server) apiStateHandler(ctx context.Context, _ *struct{}) (*stateResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading session", nil)
		return nil, huma.Error500InternalServerError("session unavailable")
	}

	return &stateResponse{Body: session.Snapshot()}, nil
}

func (s *Server) apiFavoritesHandler(ctx context.Context, _ *struct{}) (*favoritesResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading session", nil)
		return nil, huma.Error500InternalServerError("session unavailable")
	}

	resp := &favoritesResponse{}
	resp.Body.Favorites = session.Snapshot().Favorites
	return resp, nil
}

func (s *Server) apiToggleFavoriteHandler(ctx context.Context, input *toggleFavoriteRequest) (*toggleFavoriteResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading session", nil)
		return nil, huma.Error500InternalServerError("session unavailable")
	}

	tr := s.translations.For(session.Language())
	suggestion := input.Body.Suggestion.toSuggestion()
	if suggestion.Name == "" {
		return nil, huma.Error400BadRequest(tr.T("favorites.invalid"))
	}

	added, err := session.ToggleFavorite(ctx, suggestion)
	if err != nil {
		s.recordError(ctx, err, "toggling favorite", logrus.Fields{"name": suggestion.Name})
		return nil, huma.Error500InternalServerError(tr.T("error.message"))
	}

	resp := &toggleFavoriteResponse{}
	resp.Body.Added = added
	resp.Body.Favorites = session.Snapshot().Favorites
	return resp, nil
}

func (s *Server) apiLanguageHandler(ctx context.Context, input *languageRequest) (*languageResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading session", nil)
		return nil, huma.Error500InternalServerError("session unavailable")
	}

	language, err := names.ParseLanguage(input.Body.Language)
	if err != nil {
		return nil, huma.Error400BadRequest(s.translations.T(session.Language(), "language.invalid"))
	}

	if err := session.SetLanguage(ctx, language); err != nil {
		s.recordError(ctx, err, "switching language", logrus.Fields{"language": string(language)})
		return nil, huma.Error500InternalServerError(s.translations.T(session.Language(), "error.message"))
	}

	resp := &languageResponse{}
	resp.Body.Language = language
	return resp, nil
}

func (p suggestionPayload) toSuggestion() names.Suggestion {
	gender, ok := names.ParseGender(p.Gender)
	if !ok {
		gender = names.GenderUnisex
	}
	trend, ok := names.ParseTrend(p.HistoricalTrend)
	if !ok {
		trend = names.TrendStable
	}

	return names.Suggestion{
		Name:                 strings.TrimSpace(p.Name),
		Origin:               strings.TrimSpace(p.Origin),
		Meaning:              strings.TrimSpace(p.Meaning),
		PhoneticScore:        p.PhoneticScore,
		PopularityEra:        strings.TrimSpace(p.PopularityEra),
		CulturalSignificance: strings.TrimSpace(p.CulturalSignificance),
		Gender:               gender,
		HistoricalTrend:      trend,
	}
}
