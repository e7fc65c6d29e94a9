package names

// ResponseSchema describes the JSON array of suggestions the model must return.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"required": []string{
				"name", "origin", "meaning", "phoneticScore", "popularityEra", "gender", "historicalTrend",
			},
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "The suggested first name.",
				},
				"origin": map[string]any{
					"type":        "string",
					"description": "Country or culture of origin.",
				},
				"meaning": map[string]any{
					"type":        "string",
					"description": "Brief meaning of the name.",
				},
				"phoneticScore": map[string]any{
					"type":        "number",
					"description": "How well the name flows, from 0 to 100.",
				},
				"popularityEra": map[string]any{
					"type":        "string",
					"description": "Era or year range when the name peaked.",
				},
				"culturalSignificance": map[string]any{
					"type":        "string",
					"description": "Short note on cultural importance.",
				},
				"gender": map[string]any{
					"type": "string",
					"enum": []string{string(GenderBoy), string(GenderGirl), string(GenderUnisex)},
				},
				"historicalTrend": map[string]any{
					"type": "string",
					"enum": []string{string(TrendRising), string(TrendFalling), string(TrendStable)},
				},
			},
		},
	}
}

// WrappedResponseSchema nests the suggestion array under a "names" key for backends that only
// accept an object at the root.
func WrappedResponseSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"names"},
		"properties": map[string]any{
			"names": ResponseSchema(),
		},
	}
}
