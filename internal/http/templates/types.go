package templates

import (
	"babygo/app/internal/i18n"
	"babygo/app/internal/names"
)

// LayoutData carries the values shared by every page.
type LayoutData struct {
	Title           string
	Tr              i18n.Translator
	FavoritesCount  int
	FavoritesActive bool
	Languages       []LanguageOption
}

// LanguageOption is one entry of the language switcher.
type LanguageOption struct {
	Code     names.Language
	Label    string
	Selected bool
}

// ModeOption is one button of the search mode toggle.
type ModeOption struct {
	Value       names.Mode
	Label       string
	Icon        string
	Placeholder string
	Selected    bool
}

// QuickSearchView is a one-click preset query.
type QuickSearchView struct {
	Label string
	URL   string
	Icon  string
}

// HomePageData bundles the search form and, once searched, the results section.
type HomePageData struct {
	LayoutData
	Query           string
	Surname         string
	Mode            names.Mode
	Modes           []ModeOption
	Placeholder     string
	Loading         bool
	ValidationError string
	QuickSearches   []QuickSearchView
	Results         *ResultsView
}

// ResultsView is the rendered results or favorites section.
type ResultsView struct {
	Heading       string
	Summary       string
	EmptyMessage  string
	FavoritesOnly bool
	Cards         []CardView
}

// CardView is one rendered name suggestion.
type CardView struct {
	Suggestion  names.Suggestion
	IsFavorite  bool
	GenderIcon  string
	GenderLabel string
	TrendIcon   string
	TrendLabel  string
	ScoreLabel  string

	PhoneticLabel string
	PeakLabel     string
	ContextLabel  string
	FavoriteLabel string
}

// ErrorPageData holds information for rendering an error or not-found view.
type ErrorPageData struct {
	LayoutData
	StatusLabel string
	Subtitle    string
	Message     string
	ButtonLabel string
}
