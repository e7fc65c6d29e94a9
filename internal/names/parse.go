package names

import (
	"bytes"
	"encoding/json"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
)

var textPolicy = bluemonday.StrictPolicy()

// rawSuggestion keeps optional fields nullable so missing values can be told apart from
// malformed ones.
type rawSuggestion struct {
	Name                 *string  `json:"name"`
	Origin               *string  `json:"origin"`
	Meaning              *string  `json:"meaning"`
	PhoneticScore        *float64 `json:"phoneticScore"`
	PopularityEra        *string  `json:"popularityEra"`
	CulturalSignificance *string  `json:"culturalSignificance"`
	Gender               *string  `json:"gender"`
	HistoricalTrend      *string  `json:"historicalTrend"`
}

// ParseSuggestions decodes a model reply into at most MaxSuggestions records. The reply may be a
// bare array or an object with a "names" array, optionally wrapped in a Markdown code fence.
// Any record with an empty name or an unknown gender or trend token rejects the whole reply.
func ParseSuggestions(raw string) ([]Suggestion, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, eris.New("model response is empty")
	}

	records, err := decodeRecords([]byte(body))
	if err != nil {
		return nil, err
	}

	if len(records) > MaxSuggestions {
		records = records[:MaxSuggestions]
	}

	suggestions := make([]Suggestion, 0, len(records))
	for idx, record := range records {
		suggestion, err := record.toSuggestion()
		if err != nil {
			return nil, eris.Wrapf(err, "record %d", idx)
		}
		suggestions = append(suggestions, suggestion)
	}

	return suggestions, nil
}

func decodeRecords(body []byte) ([]rawSuggestion, error) {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Names *[]rawSuggestion `json:"names"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, eris.Wrap(err, "decoding model response object")
		}
		if wrapper.Names == nil {
			return nil, eris.New("model response object has no names array")
		}
		return *wrapper.Names, nil
	}

	var records []rawSuggestion
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, eris.Wrap(err, "decoding model response array")
	}
	if records == nil {
		return nil, eris.New("model response is not an array")
	}
	return records, nil
}

func (r rawSuggestion) toSuggestion() (Suggestion, error) {
	name := cleanText(deref(r.Name))
	if name == "" {
		return Suggestion{}, eris.New("name is required")
	}

	gender, ok := ParseGender(deref(r.Gender))
	if !ok {
		return Suggestion{}, eris.Errorf("unknown gender %q", deref(r.Gender))
	}

	trend, ok := ParseTrend(deref(r.HistoricalTrend))
	if !ok {
		return Suggestion{}, eris.Errorf("unknown historical trend %q", deref(r.HistoricalTrend))
	}

	var score float64
	if r.PhoneticScore != nil {
		score = *r.PhoneticScore
	}

	return Suggestion{
		Name:                 name,
		Origin:               cleanText(deref(r.Origin)),
		Meaning:              cleanText(deref(r.Meaning)),
		PhoneticScore:        score,
		PopularityEra:        cleanText(deref(r.PopularityEra)),
		CulturalSignificance: cleanText(deref(r.CulturalSignificance)),
		Gender:               gender,
		HistoricalTrend:      trend,
	}, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// cleanText drops any markup the model slipped into a field and collapses whitespace.
func cleanText(value string) string {
	stripped := html.UnescapeString(textPolicy.Sanitize(value))
	return strings.Join(strings.Fields(stripped), " ")
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "json")
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
