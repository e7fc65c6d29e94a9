package templates

import (
	"fmt"
	"math"
	"net/url"

	"babygo/app/internal/i18n"
	"babygo/app/internal/names"
)

// NewCardView decorates a suggestion with its display labels.
func NewCardView(tr i18n.Translator, suggestion names.Suggestion, favorite bool) CardView {
	card := CardView{
		Suggestion:  suggestion,
		IsFavorite:  favorite,
		GenderLabel: tr.T("gender." + string(suggestion.Gender)),
		TrendLabel:  tr.T("trend." + string(suggestion.HistoricalTrend)),
		ScoreLabel:  formatScore(suggestion.PhoneticScore),

		PhoneticLabel: tr.T("card.phonetic"),
		PeakLabel:     tr.T("card.peak"),
		ContextLabel:  tr.T("card.context"),
		FavoriteLabel: tr.T("card.save"),
	}

	if favorite {
		card.FavoriteLabel = tr.T("card.saved")
	}

	switch suggestion.Gender {
	case names.GenderBoy:
		card.GenderIcon = "♂"
	case names.GenderGirl:
		card.GenderIcon = "♀"
	default:
		card.GenderIcon = "⚥"
	}

	switch suggestion.HistoricalTrend {
	case names.TrendRising:
		card.TrendIcon = "↗"
	case names.TrendFalling:
		card.TrendIcon = "↘"
	default:
		card.TrendIcon = "→"
	}

	return card
}

// SearchURL builds the GET /search link for a preset query.
func SearchURL(query string, mode names.Mode, surname string) string {
	values := url.Values{}
	values.Set("q", query)
	values.Set("mode", string(mode))
	if surname != "" {
		values.Set("surname", surname)
	}
	return "/search?" + values.Encode()
}

func formatScore(score float64) string {
	if score == math.Trunc(score) {
		return fmt.Sprintf("%d%%", int64(score))
	}
	return fmt.Sprintf("%.1f%%", score)
}
