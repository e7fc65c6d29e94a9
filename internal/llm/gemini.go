package llm

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"babygo/app/internal/names"
)

const jsonMIMEType = "application/json"

// generativeModel is the subset of genai.GenerativeModel used by the Gemini completer.
type generativeModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// modelFactory builds a model configured with the given system instruction.
type modelFactory func(system string) generativeModel

// GeminiOptions configures the Gemini completer.
type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature *float64
	Timeout     time.Duration
	Logger      *logrus.Logger
}

// GeminiCompleter sends name prompts to the Gemini API.
type GeminiCompleter struct {
	client   *genai.Client
	newModel modelFactory
	logger   *logrus.Logger
	model    string
	timeout  time.Duration
}

var _ names.Completer = (*GeminiCompleter)(nil)

// NewGeminiCompleter opens a Gemini API client authenticated with the supplied key.
func NewGeminiCompleter(ctx context.Context, opts GeminiOptions) (*GeminiCompleter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, eris.New("llm api key is required")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, eris.New("completer model is required")
	}

	temperature, err := resolveTemperature(opts.Temperature)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, eris.Wrap(err, "creating gemini client")
	}
	schema := toGenaiSchema(names.ResponseSchema())

	factory := func(system string) generativeModel {
		generative := client.GenerativeModel(model)
		generative.SystemInstruction = genai.NewUserContent(genai.Text(system))
		generative.ResponseMIMEType = jsonMIMEType
		generative.ResponseSchema = schema
		generative.SetTemperature(float32(temperature))
		return generative
	}

	return newGeminiCompleter(client, factory, opts.Logger, model, opts.Timeout), nil
}

func newGeminiCompleter(client *genai.Client, factory modelFactory, logger *logrus.Logger, model string, timeout time.Duration) *GeminiCompleter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &GeminiCompleter{
		client:   client,
		newModel: factory,
		logger:   logger,
		model:    model,
		timeout:  timeout,
	}
}

// Complete issues one GenerateContent call and returns the concatenated text parts.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt names.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	fields := logrus.Fields{"model": g.model}

	resp, err := g.newModel(prompt.System).GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		g.logError(fields, err, "requesting gemini content")
		return "", eris.Wrap(err, "requesting gemini content")
	}

	text, err := extractText(resp)
	if err != nil {
		g.logError(fields, err, "processing gemini content")
		return "", err
	}

	return text, nil
}

// Ready reports whether the completer can issue requests.
func (g *GeminiCompleter) Ready(context.Context) error {
	if g.newModel == nil {
		return eris.New("gemini client is not configured")
	}
	return nil
}

// Model returns the configured model name.
func (g *GeminiCompleter) Model() string {
	return g.model
}

// Close releases the underlying API client.
func (g *GeminiCompleter) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *GeminiCompleter) logError(fields logrus.Fields, err error, message string) {
	if g.logger == nil || err == nil {
		return
	}

	entry := g.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", eris.New("gemini returned no response")
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", eris.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason.String())
	}

	if len(resp.Candidates) == 0 {
		return "", eris.New("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", eris.New("gemini blocked the response for safety")
	}

	if candidate.Content == nil {
		return "", eris.New("gemini candidate has no content")
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}

	content := strings.TrimSpace(builder.String())
	if content == "" {
		return "", eris.New("gemini response content is empty")
	}

	return content, nil
}

// toGenaiSchema converts a JSON-schema map into the Gemini schema type.
func toGenaiSchema(node map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	switch node["type"] {
	case "array":
		schema.Type = genai.TypeArray
	case "object":
		schema.Type = genai.TypeObject
	case "number":
		schema.Type = genai.TypeNumber
	case "integer":
		schema.Type = genai.TypeInteger
	case "boolean":
		schema.Type = genai.TypeBoolean
	default:
		schema.Type = genai.TypeString
	}

	if description, ok := node["description"].(string); ok {
		schema.Description = description
	}

	if enum, ok := node["enum"].([]string); ok {
		schema.Enum = append([]string(nil), enum...)
	}

	if required, ok := node["required"].([]string); ok {
		schema.Required = append([]string(nil), required...)
	}

	if items, ok := node["items"].(map[string]any); ok {
		schema.Items = toGenaiSchema(items)
	}

	if properties, ok := node["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(properties))
		for name, raw := range properties {
			if child, ok := raw.(map[string]any); ok {
				schema.Properties[name] = toGenaiSchema(child)
			}
		}
	}

	return schema
}
