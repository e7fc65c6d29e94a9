package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"babygo/app/internal/db"
	"babygo/app/internal/discovery"
	"babygo/app/internal/http/templates"
	"babygo/app/internal/i18n"
	"babygo/app/internal/names"
)

const (
	htmlContentType = "text/html; charset=utf-8"
	formContentType = "application/x-www-form-urlencoded"
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	Body        []byte
}

type homeInput struct {
	View string `query:"view"`
}

type searchInput struct {
	Query   string `query:"q"`
	Mode    string `query:"mode"`
	Surname string `query:"surname"`
}

type formInput struct {
	Referer string `header:"Referer"`
	RawBody []byte `contentType:"application/x-www-form-urlencoded"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Model    string `json:"model"`
	}
}

var quickSearchIcons = map[names.NamingStyle]string{
	names.StyleClassic:  "★",
	names.StyleNature:   "❀",
	names.StyleRhythmic: "♪",
}

var modeIcons = map[names.Mode]string{
	names.ModeHistorical: "▤",
	names.ModeAI:         "✦",
}

func (s *Server) registerPageRoutes() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation("Babygo home", stdhttp.StatusNotFound, stdhttp.StatusInternalServerError))
	huma.Get(s.api, "/search", s.searchHandler, htmlOperation(
		"Search names",
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/favorites", s.favoritesHandler, htmlOperation("Toggle the favorites view", stdhttp.StatusInternalServerError))
	huma.Post(s.api, "/favorites/toggle", s.toggleFavoriteHandler, htmlOperation(
		"Toggle a favorite name",
		stdhttp.StatusSeeOther,
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/language", s.languageHandler, htmlOperation(
		"Switch the display language",
		stdhttp.StatusSeeOther,
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) homeHandler(ctx context.Context, input *homeInput) (*htmlResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		return s.internalError(ctx, err, "loading session"), nil
	}

	if input.View == "results" {
		session.ShowResults()
	}

	return s.renderHome(ctx, session.Snapshot(), stdhttp.StatusOK, ""), nil
}

func (s *Server) searchHandler(ctx context.Context, input *searchInput) (*htmlResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		return s.internalError(ctx, err, "loading session"), nil
	}

	tr := s.translations.For(session.Language())

	if strings.TrimSpace(input.Query) == "" {
		return s.renderHome(ctx, session.Snapshot(), stdhttp.StatusBadRequest, tr.T("search.empty_query")), nil
	}

	mode := names.ModeHistorical
	if strings.TrimSpace(input.Mode) != "" {
		if mode, err = names.ParseMode(input.Mode); err != nil {
			return s.renderHome(ctx, session.Snapshot(), stdhttp.StatusBadRequest, tr.T("search.invalid_mode")), nil
		}
	}

	if _, err := session.Search(ctx, input.Query, mode, input.Surname); err != nil {
		if eris.Is(err, names.ErrEmptyQuery) {
			return s.renderHome(ctx, session.Snapshot(), stdhttp.StatusBadRequest, tr.T("search.empty_query")), nil
		}
		return s.internalError(ctx, err, "running search"), nil
	}

	return s.renderHome(ctx, session.Snapshot(), stdhttp.StatusOK, ""), nil
}

func (s *Server) favoritesHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		return s.internalError(ctx, err, "loading session"), nil
	}

	session.ToggleFavoritesView()

	return s.renderHome(ctx, session.Snapshot(), stdhttp.StatusOK, ""), nil
}

func (s *Server) toggleFavoriteHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		return s.internalError(ctx, err, "loading session"), nil
	}

	tr := s.translations.For(session.Language())
	form, err := url.ParseQuery(string(input.RawBody))
	if err != nil {
		return s.renderErrorResponse(ctx, tr, stdhttp.StatusBadRequest, "error.bad_request", "favorites.invalid", len(session.Snapshot().Favorites)), nil
	}

	suggestion := suggestionFromForm(form)
	if suggestion.Name == "" {
		return s.renderErrorResponse(ctx, tr, stdhttp.StatusBadRequest, "error.bad_request", "favorites.invalid", len(session.Snapshot().Favorites)), nil
	}

	if _, err := session.ToggleFavorite(ctx, suggestion); err != nil {
		s.recordError(ctx, err, "toggling favorite", logrus.Fields{"name": suggestion.Name})
		return s.renderErrorResponse(ctx, tr, stdhttp.StatusInternalServerError, "error.title", "error.message", len(session.Snapshot().Favorites)), nil
	}

	return redirectResponse(backLocation(input.Referer)), nil
}

func (s *Server) languageHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	session, err := s.session(ctx)
	if err != nil {
		return s.internalError(ctx, err, "loading session"), nil
	}

	tr := s.translations.For(session.Language())
	form, err := url.ParseQuery(string(input.RawBody))
	if err != nil {
		return s.renderErrorResponse(ctx, tr, stdhttp.StatusBadRequest, "error.bad_request", "language.invalid", len(session.Snapshot().Favorites)), nil
	}

	language, err := names.ParseLanguage(form.Get("language"))
	if err != nil {
		return s.renderErrorResponse(ctx, tr, stdhttp.StatusBadRequest, "error.bad_request", "language.invalid", len(session.Snapshot().Favorites)), nil
	}

	if err := session.SetLanguage(ctx, language); err != nil {
		s.recordError(ctx, err, "switching language", logrus.Fields{"language": string(language)})
		return s.renderErrorResponse(ctx, tr, stdhttp.StatusInternalServerError, "error.title", "error.message", len(session.Snapshot().Favorites)), nil
	}

	return redirectResponse(backLocation(input.Referer)), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Body.Model = "ready"

	if err := db.Ping(ctx, s.db); err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	switch {
	case s.model == nil:
		resp.Body.Status = "degraded"
		resp.Body.Model = "unconfigured"
		resp.Status = stdhttp.StatusServiceUnavailable
	default:
		if err := s.model.Ready(ctx); err != nil {
			s.recordError(ctx, err, "checking model readiness", nil)
			resp.Body.Status = "degraded"
			resp.Body.Model = "error"
			resp.Status = stdhttp.StatusServiceUnavailable
		}
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func (s *Server) session(ctx context.Context) (*discovery.Session, error) {
	profileID := ProfileIDFromContext(ctx)
	if profileID == "" {
		return nil, eris.New("request has no visitor profile")
	}

	session, err := s.sessions.Session(ctx, profileID, preferredLanguageFromContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "loading session")
	}
	return session, nil
}

func (s *Server) renderHome(ctx context.Context, state discovery.State, status int, validation string) *htmlResponse {
	tr := s.translations.For(state.Language)

	mode := state.Mode
	if mode == "" {
		mode = names.ModeHistorical
	}

	data := templates.HomePageData{
		LayoutData:      s.layout(tr, tr.T("app.name")+" · "+tr.T("app.tagline"), len(state.Favorites), state.FavoritesOnly),
		Query:           state.Query,
		Surname:         state.Surname,
		Mode:            mode,
		Placeholder:     tr.T("search.placeholder." + string(mode)),
		Loading:         state.Loading,
		ValidationError: validation,
	}

	for _, option := range []names.Mode{names.ModeHistorical, names.ModeAI} {
		data.Modes = append(data.Modes, templates.ModeOption{
			Value:       option,
			Label:       tr.T("mode." + string(option)),
			Icon:        modeIcons[option],
			Placeholder: tr.T("search.placeholder." + string(option)),
			Selected:    option == mode,
		})
	}

	for _, style := range names.QuickSearchStyles() {
		data.QuickSearches = append(data.QuickSearches, templates.QuickSearchView{
			Label: tr.T("style." + string(style)),
			URL:   templates.SearchURL(string(style), mode, state.Surname),
			Icon:  quickSearchIcons[style],
		})
	}

	if state.Searched {
		data.Results = resultsView(tr, state)
	}

	body, err := renderComponent(ctx, templates.HomePage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering home page", nil)
		return s.renderErrorResponse(ctx, tr, stdhttp.StatusInternalServerError, "error.title", "error.message", len(state.Favorites))
	}

	return newHTMLResponse(status, body)
}

func resultsView(tr i18n.Translator, state discovery.State) *templates.ResultsView {
	view := &templates.ResultsView{
		FavoritesOnly: state.FavoritesOnly,
		Cards:         make([]templates.CardView, 0, len(state.Displayed)),
	}

	if state.FavoritesOnly {
		view.Heading = tr.T("favorites.heading")
		view.Summary = tr.Tf("favorites.summary", len(state.Favorites))
		view.EmptyMessage = tr.T("favorites.none")
	} else {
		mode := state.Mode
		if mode == "" {
			mode = names.ModeHistorical
		}
		view.Heading = tr.Tf("results.heading", tr.T("results.source."+string(mode)))
		view.Summary = tr.Tf("results.summary", len(state.Results), state.Query)
		view.EmptyMessage = tr.T("results.none")
	}

	for _, suggestion := range state.Displayed {
		view.Cards = append(view.Cards, templates.NewCardView(tr, suggestion, state.IsFavorite(suggestion.Name)))
	}

	return view
}

func (s *Server) layout(tr i18n.Translator, title string, favorites int, favoritesActive bool) templates.LayoutData {
	layout := templates.LayoutData{
		Title:           title,
		Tr:              tr,
		FavoritesCount:  favorites,
		FavoritesActive: favoritesActive,
	}

	for _, lang := range names.Languages() {
		layout.Languages = append(layout.Languages, templates.LanguageOption{
			Code:     lang,
			Label:    tr.T("language." + string(lang)),
			Selected: lang == tr.Language(),
		})
	}

	return layout
}

func suggestionFromForm(form url.Values) names.Suggestion {
	gender, ok := names.ParseGender(form.Get("gender"))
	if !ok {
		gender = names.GenderUnisex
	}
	trend, ok := names.ParseTrend(form.Get("historicalTrend"))
	if !ok {
		trend = names.TrendStable
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(form.Get("phoneticScore")), 64)
	if err != nil {
		score = 0
	}

	return names.Suggestion{
		Name:                 strings.TrimSpace(form.Get("name")),
		Origin:               strings.TrimSpace(form.Get("origin")),
		Meaning:              strings.TrimSpace(form.Get("meaning")),
		PhoneticScore:        score,
		PopularityEra:        strings.TrimSpace(form.Get("popularityEra")),
		CulturalSignificance: strings.TrimSpace(form.Get("culturalSignificance")),
		Gender:               gender,
		HistoricalTrend:      trend,
	}
}

// backLocation turns a Referer into a same-site redirect target. Pages whose GET has side
// effects fall back to the home page so the redirect does not repeat them.
func backLocation(referer string) string {
	if strings.TrimSpace(referer) == "" {
		return "/"
	}

	parsed, err := url.Parse(referer)
	if err != nil {
		return "/"
	}

	path := parsed.EscapedPath()
	switch {
	case path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//"):
		return "/"
	case path == "/search" || path == "/favorites":
		return "/"
	}

	if parsed.RawQuery != "" {
		return path + "?" + parsed.RawQuery
	}
	return path
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func redirectResponse(location string) *htmlResponse {
	response := newHTMLResponse(stdhttp.StatusSeeOther, nil)
	response.Location = location
	return response
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) internalError(ctx context.Context, err error, message string) *htmlResponse {
	s.recordError(ctx, err, message, nil)
	tr := s.translations.For(preferredLanguageFromContext(ctx))
	return s.renderErrorResponse(ctx, tr, stdhttp.StatusInternalServerError, "error.title", "error.message", 0)
}

func (s *Server) renderErrorResponse(ctx context.Context, tr i18n.Translator, status int, subtitleKey, messageKey string, favorites int) *htmlResponse {
	label := strconv.Itoa(status)
	if status == stdhttp.StatusNotFound {
		label = tr.T("notfound.title")
	}

	data := templates.ErrorPageData{
		LayoutData:  s.layout(tr, label+" · "+tr.T("app.name"), favorites, false),
		StatusLabel: label,
		Subtitle:    tr.T(subtitleKey),
		Message:     tr.T(messageKey),
		ButtonLabel: tr.T("notfound.button"),
	}

	body, err := renderComponent(ctx, templates.ErrorPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, data.Message))
		return newHTMLResponse(status, fallback)
	}

	return newHTMLResponse(status, body)
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
