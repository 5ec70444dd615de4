package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/stanza/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Adapter implements ai.Adapter using OpenAI-compatible chat APIs.
type Adapter struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

func newAdapter(config *ai.Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.AdapterModel),
	)
	if err != nil {
		return nil, err
	}

	return newAdapterWithClient(client, config.AdapterTemperature), nil
}

func newAdapterWithClient(client llms.Model, temperature float64) *Adapter {
	return &Adapter{
		client:      client,
		temperature: temperature,
		logger:      slog.Default().With("component", "openai-adapter"),
	}
}

// NewAdapter creates a new adapter using the provided configuration.
//
// Returns ai.Adapter interface to enforce abstraction.
func NewAdapter(config *ai.Config) (ai.Adapter, error) {
	return newAdapter(config)
}

// Adapt asks the model to rewrite the query fragment toward the candidate.
func (a *Adapter) Adapt(ctx context.Context, req ai.AdaptRequest) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildAdaptationPrompt(req))},
		},
	}

	response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(a.temperature))
	if err != nil {
		a.logger.Error("failed to generate adaptation", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyResponse
	}

	text := strings.Trim(stripCodeFence(response.Choices[0].Content), "\"")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}
