package names

import (
	"strings"

	"github.com/rotisserie/eris"
)

// MaxSuggestions caps how many records a single query yields.
const MaxSuggestions = 10

// Gender classifies a suggested name.
type Gender string

const (
	GenderBoy    Gender = "boy"
	GenderGirl   Gender = "girl"
	GenderUnisex Gender = "unisex"
)

// Trend describes the historical popularity direction of a name.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Suggestion is a single scored name returned by the model.
type Suggestion struct {
	Name                 string  `json:"name"`
	Origin               string  `json:"origin"`
	Meaning              string  `json:"meaning"`
	PhoneticScore        float64 `json:"phoneticScore"`
	PopularityEra        string  `json:"popularityEra"`
	CulturalSignificance string  `json:"culturalSignificance"`
	Gender               Gender  `json:"gender"`
	HistoricalTrend      Trend   `json:"historicalTrend"`
}

// Mode selects the instruction framing sent to the model.
type Mode string

const (
	// ModeHistorical asks for real names that trended between 1980 and 2024.
	ModeHistorical Mode = "historical"
	// ModeAI asks for newly generated, creative names.
	ModeAI Mode = "ai"
)

// Language is a two-letter display and output language code.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

// DefaultLanguage applies whenever no preference is known.
const DefaultLanguage = LanguageEnglish

var (
	// ErrEmptyQuery is returned when a search is attempted with a blank query.
	ErrEmptyQuery = eris.New("query is required")
	// ErrUnsupportedMode is returned for modes other than historical and ai.
	ErrUnsupportedMode = eris.New("unsupported search mode")
	// ErrUnsupportedLanguage is returned for language codes other than en and es.
	ErrUnsupportedLanguage = eris.New("unsupported language")
)

// ParseMode converts user input into a Mode.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeHistorical:
		return ModeHistorical, nil
	case ModeAI:
		return ModeAI, nil
	default:
		return "", eris.Wrapf(ErrUnsupportedMode, "mode %q", raw)
	}
}

// ParseLanguage converts user input into a Language.
func ParseLanguage(raw string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageSpanish:
		return LanguageSpanish, nil
	default:
		return "", eris.Wrapf(ErrUnsupportedLanguage, "language %q", raw)
	}
}

// Languages lists every supported language in display order.
func Languages() []Language {
	return []Language{LanguageEnglish, LanguageSpanish}
}

// ParseGender matches a gender token case-insensitively.
func ParseGender(raw string) (Gender, bool) {
	switch Gender(strings.ToLower(strings.TrimSpace(raw))) {
	case GenderBoy:
		return GenderBoy, true
	case GenderGirl:
		return GenderGirl, true
	case GenderUnisex:
		return GenderUnisex, true
	}
	return "", false
}

// ParseTrend matches a trend token case-insensitively.
func ParseTrend(raw string) (Trend, bool) {
	switch Trend(strings.ToLower(strings.TrimSpace(raw))) {
	case TrendRising:
		return TrendRising, true
	case TrendFalling:
		return TrendFalling, true
	case TrendStable:
		return TrendStable, true
	}
	return "", false
}

// NamingStyle is a preset query offered as a one-click search.
type NamingStyle string

const (
	StyleClassic  NamingStyle = "Classic"
	StyleNature   NamingStyle = "Nature-inspired"
	StyleRhythmic NamingStyle = "Rhythmic flow"
	StyleModern   NamingStyle = "Modern"
	StyleVintage  NamingStyle = "Vintage"
)

// QuickSearchStyles are the presets surfaced below the search form.
func QuickSearchStyles() []NamingStyle {
	return []NamingStyle{StyleClassic, StyleNature, StyleRhythmic}
}
