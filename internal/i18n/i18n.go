// Package i18n holds the display strings of the UI in every supported language.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"

	"babygo/app/internal/names"
)

//go:embed locales/*.json
var localeFiles embed.FS

// Bundle maps each supported language to its string table.
type Bundle struct {
	tables  map[names.Language]map[string]string
	matcher language.Matcher
	tags    []names.Language
}

// Load parses the embedded string tables.
func Load() (*Bundle, error) {
	bundle := &Bundle{
		tables: make(map[names.Language]map[string]string, len(names.Languages())),
	}

	supported := make([]language.Tag, 0, len(names.Languages()))
	for _, lang := range names.Languages() {
		data, err := localeFiles.ReadFile("locales/" + string(lang) + ".json")
		if err != nil {
			return nil, eris.Wrapf(err, "reading locale %s", lang)
		}

		table := map[string]string{}
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, eris.Wrapf(err, "decoding locale %s", lang)
		}

		bundle.tables[lang] = table
		bundle.tags = append(bundle.tags, lang)
		supported = append(supported, language.Make(string(lang)))
	}

	bundle.matcher = language.NewMatcher(supported)

	return bundle, nil
}

// T returns the string for key in lang, falling back to English and then to the key itself.
func (b *Bundle) T(lang names.Language, key string) string {
	if value, ok := b.tables[lang][key]; ok {
		return value
	}
	if value, ok := b.tables[names.DefaultLanguage][key]; ok {
		return value
	}
	return key
}

// Tf formats the string for key with the given arguments.
func (b *Bundle) Tf(lang names.Language, key string, args ...any) string {
	return fmt.Sprintf(b.T(lang, key), args...)
}

// Resolve picks the best supported language for an Accept-Language header value.
func (b *Bundle) Resolve(acceptLanguage string) names.Language {
	if acceptLanguage == "" {
		return names.DefaultLanguage
	}

	preferred, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(preferred) == 0 {
		return names.DefaultLanguage
	}

	_, index, confidence := b.matcher.Match(preferred...)
	if confidence == language.No || index < 0 || index >= len(b.tags) {
		return names.DefaultLanguage
	}

	return b.tags[index]
}

// Translator is a Bundle bound to one language, handed to templates.
type Translator struct {
	bundle *Bundle
	lang   names.Language
}

// For binds the bundle to a language.
func (b *Bundle) For(lang names.Language) Translator {
	return Translator{bundle: b, lang: lang}
}

// Language reports the bound language.
func (t Translator) Language() names.Language {
	return t.lang
}

// T looks up key in the bound language.
func (t Translator) T(key string) string {
	return t.bundle.T(t.lang, key)
}

// Tf formats key in the bound language.
func (t Translator) Tf(key string, args ...any) string {
	return t.bundle.Tf(t.lang, key, args...)
}
