package names

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
	"unicode"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Request carries everything needed to ask the model for suggestions.
type Request struct {
	Query    string
	Mode     Mode
	Language Language
	Surname  string
}

// Normalize trims the free-text fields and fills in defaults, failing on blank queries and
// unknown modes or languages.
func (r Request) Normalize() (Request, error) {
	r.Query = strings.TrimSpace(r.Query)
	r.Surname = strings.TrimSpace(r.Surname)

	if r.Query == "" {
		return Request{}, ErrEmptyQuery
	}

	if r.Mode == "" {
		r.Mode = ModeHistorical
	}
	mode, err := ParseMode(string(r.Mode))
	if err != nil {
		return Request{}, err
	}
	r.Mode = mode

	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	language, err := ParseLanguage(string(r.Language))
	if err != nil {
		return Request{}, err
	}
	r.Language = language

	return r, nil
}

// Prompt is the instruction pair handed to a model backend.
type Prompt struct {
	System string
	User   string
}

type promptDocument struct {
	Engine         string            `yaml:"engine"`
	Count          int               `yaml:"count"`
	MaxInputRunes  int               `yaml:"max_input_runes"`
	UserTemplate   string            `yaml:"user_template"`
	SystemTemplate string            `yaml:"system_template"`
	Modes          map[string]string `yaml:"modes"`
	Languages      map[string]string `yaml:"languages"`
}

// PromptBuilder renders prompts from the embedded template document.
type PromptBuilder struct {
	doc       promptDocument
	system    *template.Template
	user      *template.Template
	modes     map[Mode]*template.Template
	languages map[Language]string
}

// NewPromptBuilder parses the embedded prompt templates.
func NewPromptBuilder() (*PromptBuilder, error) {
	return LoadPromptBuilder(defaultPromptsYAML)
}

// LoadPromptBuilder parses a prompt template document. Every mode and language must be covered.
func LoadPromptBuilder(data []byte) (*PromptBuilder, error) {
	var doc promptDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "decoding prompt templates")
	}

	if doc.Count <= 0 || doc.Count > MaxSuggestions {
		doc.Count = MaxSuggestions
	}
	if doc.MaxInputRunes <= 0 {
		doc.MaxInputRunes = 120
	}

	system, err := template.New("system").Parse(doc.SystemTemplate)
	if err != nil {
		return nil, eris.Wrap(err, "parsing system template")
	}

	if strings.TrimSpace(doc.UserTemplate) == "" {
		return nil, eris.New("user template is required")
	}
	user, err := template.New("user").Parse(doc.UserTemplate)
	if err != nil {
		return nil, eris.Wrap(err, "parsing user template")
	}

	builder := &PromptBuilder{
		doc:       doc,
		system:    system,
		user:      user,
		modes:     make(map[Mode]*template.Template, 2),
		languages: make(map[Language]string, 2),
	}

	for _, mode := range []Mode{ModeHistorical, ModeAI} {
		text := strings.TrimSpace(doc.Modes[string(mode)])
		if text == "" {
			return nil, eris.Errorf("prompt template for mode %s is missing", mode)
		}
		parsed, err := template.New(string(mode)).Parse(text)
		if err != nil {
			return nil, eris.Wrapf(err, "parsing template for mode %s", mode)
		}
		builder.modes[mode] = parsed
	}

	for _, language := range Languages() {
		text := strings.TrimSpace(doc.Languages[string(language)])
		if text == "" {
			return nil, eris.Errorf("language instruction for %s is missing", language)
		}
		builder.languages[language] = text
	}

	return builder, nil
}

// Count reports how many names the prompt asks for.
func (b *PromptBuilder) Count() int {
	return b.doc.Count
}

type promptData struct {
	Engine              string
	Query               string
	Surname             string
	Count               int
	ModeInstruction     string
	LanguageInstruction string
}

// BuildPrompt renders the system and user instructions for a request.
func (b *PromptBuilder) BuildPrompt(req Request) (Prompt, error) {
	normalized, err := req.Normalize()
	if err != nil {
		return Prompt{}, err
	}

	data := promptData{
		Engine:              b.doc.Engine,
		Query:               sanitizeInput(normalized.Query, b.doc.MaxInputRunes),
		Surname:             sanitizeInput(normalized.Surname, b.doc.MaxInputRunes),
		Count:               b.doc.Count,
		LanguageInstruction: b.languages[normalized.Language],
	}

	modeInstruction, err := execute(b.modes[normalized.Mode], data)
	if err != nil {
		return Prompt{}, eris.Wrapf(err, "rendering %s instruction", normalized.Mode)
	}
	data.ModeInstruction = modeInstruction

	system, err := execute(b.system, data)
	if err != nil {
		return Prompt{}, eris.Wrap(err, "rendering system prompt")
	}

	user, err := execute(b.user, data)
	if err != nil {
		return Prompt{}, eris.Wrap(err, "rendering user prompt")
	}

	return Prompt{System: system, User: user}, nil
}

func execute(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// sanitizeInput flattens user text onto one line, swaps double quotes so the value cannot close
// the quoted slot it is embedded in, and caps its length.
func sanitizeInput(raw string, maxRunes int) string {
	var builder strings.Builder
	lastSpace := false
	count := 0

	for _, r := range strings.TrimSpace(raw) {
		if count >= maxRunes {
			break
		}
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			if lastSpace {
				continue
			}
			r = ' '
			lastSpace = true
		case r == '"':
			r = '\''
			lastSpace = false
		default:
			lastSpace = false
		}
		builder.WriteRune(r)
		count++
	}

	return strings.TrimSpace(builder.String())
}
