package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/openai/openai-go/v2/shared/constant"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"babygo/app/internal/names"
)

// CompleterOptions configures the OpenAI-compatible completer.
type CompleterOptions struct {
	Client *Client
	Model  string
	// Temperature is the sampling temperature; nil selects the default and zero is honored.
	Temperature *float64
}

// OpenAICompleter sends name prompts through the chat completions API.
type OpenAICompleter struct {
	client         *Client
	logger         *logrus.Logger
	model          string
	temperature    float64
	responseFormat openai.ChatCompletionNewParamsResponseFormatUnion
}

var _ names.Completer = (*OpenAICompleter)(nil)

const defaultTemperature = 0.7

func resolveTemperature(temperature *float64) (float64, error) {
	if temperature == nil {
		return defaultTemperature, nil
	}
	if *temperature < 0 {
		return 0, eris.Errorf("temperature must not be negative, got %v", *temperature)
	}
	return *temperature, nil
}

// NewOpenAICompleter constructs a completer backed by the chat completions API.
func NewOpenAICompleter(opts CompleterOptions) (*OpenAICompleter, error) {
	if opts.Client == nil {
		return nil, eris.New("llm client is required")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, eris.New("completer model is required")
	}

	temperature, err := resolveTemperature(opts.Temperature)
	if err != nil {
		return nil, err
	}

	return &OpenAICompleter{
		client:         opts.Client,
		logger:         opts.Client.logger,
		model:          model,
		temperature:    temperature,
		responseFormat: buildSuggestionResponseFormat(),
	}, nil
}

// Complete issues one chat completion and returns the message content.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt names.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.client.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		ResponseFormat: c.responseFormat,
		Temperature:    openai.Float(c.temperature),
	}

	completion, err := c.client.chat.New(ctx, params)
	if err != nil {
		c.logError(logrus.Fields{"model": c.model}, err, "requesting chat completion")
		return "", eris.Wrap(err, "requesting chat completion")
	}

	if len(completion.Choices) == 0 {
		err := eris.New("llm completion returned no choices")
		c.logError(logrus.Fields{"model": c.model}, err, "processing chat completion")
		return "", err
	}

	choice := completion.Choices[0]
	if reason := strings.TrimSpace(choice.FinishReason); strings.EqualFold(reason, "content_filter") {
		err := eris.New("llm blocked the request via content filter")
		c.logError(logrus.Fields{"model": c.model}, err, "completion blocked")
		return "", err
	}

	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		err := eris.Errorf("llm refused to suggest names: %s", refusal)
		c.logError(logrus.Fields{"model": c.model}, err, "completion refused")
		return "", err
	}

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		err := eris.New("llm response content is empty")
		c.logError(logrus.Fields{"model": c.model}, err, "processing chat completion")
		return "", err
	}

	return content, nil
}

// Ready reports whether the completer can issue requests.
func (c *OpenAICompleter) Ready(context.Context) error {
	if c.client == nil || c.client.chat == nil {
		return eris.New("openai client is not configured")
	}
	return nil
}

// Model returns the configured model name.
func (c *OpenAICompleter) Model() string {
	return c.model
}

func (c *OpenAICompleter) logError(fields logrus.Fields, err error, message string) {
	if c.logger == nil || err == nil {
		return
	}

	entry := c.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

// Strict mode is left off: strict schemas reject the optional culturalSignificance field.
func buildSuggestionResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        "babygo_names",
				Description: openai.String("Scored baby name suggestions"),
				Strict:      openai.Bool(false),
				Schema:      names.WrappedResponseSchema(),
			},
			Type: constant.ValueOf[constant.JSONSchema](),
		},
	}
}
