package i18n

import (
	"testing"

	"babygo/app/internal/names"
)

func loadBundle(t *testing.T) *Bundle {
	t.Helper()

	bundle, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return bundle
}

func TestTranslateBothLanguages(t *testing.T) {
	t.Parallel()

	bundle := loadBundle(t)

	if got := bundle.T(names.LanguageEnglish, "notfound.subtitle"); got != "Analysis Interrupted" {
		t.Fatalf("expected english 404 subtitle, got %q", got)
	}

	if got := bundle.T(names.LanguageSpanish, "notfound.subtitle"); got != "Análisis Interrumpido" {
		t.Fatalf("expected spanish 404 subtitle, got %q", got)
	}

	if got := bundle.T(names.LanguageSpanish, "notfound.button"); got != "Volver al Inicio" {
		t.Fatalf("expected spanish back button, got %q", got)
	}
}

func TestTranslateFallsBack(t *testing.T) {
	t.Parallel()

	bundle := loadBundle(t)

	if got := bundle.T("fr", "card.save"); got != "Save to Favorites" {
		t.Fatalf("expected english fallback, got %q", got)
	}

	if got := bundle.T(names.LanguageEnglish, "missing.key"); got != "missing.key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
}

func TestLocalesShareKeys(t *testing.T) {
	t.Parallel()

	bundle := loadBundle(t)

	english := bundle.tables[names.LanguageEnglish]
	spanish := bundle.tables[names.LanguageSpanish]

	for key := range english {
		if _, ok := spanish[key]; !ok {
			t.Errorf("spanish locale is missing %q", key)
		}
	}
	for key := range spanish {
		if _, ok := english[key]; !ok {
			t.Errorf("english locale is missing %q", key)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	tr := loadBundle(t).For(names.LanguageEnglish)

	got := tr.Tf("results.summary", 3, "Classic")
	if got != `Analysis complete. Found 3 matches for "Classic".` {
		t.Fatalf("unexpected summary %q", got)
	}

	if tr.Language() != names.LanguageEnglish {
		t.Fatalf("expected bound language en, got %q", tr.Language())
	}
}

func TestResolveAcceptLanguage(t *testing.T) {
	t.Parallel()

	bundle := loadBundle(t)

	cases := map[string]names.Language{
		"":                        names.LanguageEnglish,
		"es-MX,es;q=0.9,en;q=0.8": names.LanguageSpanish,
		"en-GB":                   names.LanguageEnglish,
		"de-DE":                   names.LanguageEnglish,
		"not a header;;;":         names.LanguageEnglish,
	}

	for header, expected := range cases {
		if got := bundle.Resolve(header); got != expected {
			t.Errorf("Resolve(%q): expected %q, got %q", header, expected, got)
		}
	}
}
