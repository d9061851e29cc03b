package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/conexa/sdkforge/internal/core/ports"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const DefaultModel = "gpt-4o-mini"

// ErrAPIKeyNotSet means the provider cannot be constructed; callers treat
// the analysis service as disabled rather than retrying construction later.
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

// OpenAIProvider calls the OpenAI chat completions API. Retry policy lives
// with the analysis engine; each Complete call is a single attempt.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// Complete sends one completion request and returns the raw response text.
// A JSON object response format is requested so the engine can validate the
// payload against its schema.
func (p *OpenAIProvider) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

var _ ports.CompletionProvider = (*OpenAIProvider)(nil)
