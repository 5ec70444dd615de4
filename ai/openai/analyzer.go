// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/rhyme"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Analyzer implements ai.Analyzer using OpenAI-compatible chat APIs.
// Themes, mood and imagery come from the model; rhyme patterns are derived
// locally from the text so they stay deterministic.
type Analyzer struct {
	client      llms.Model
	maxAttempts int
	logger      *slog.Logger
}

// analysisResponse is the structure expected from the model.
type analysisResponse struct {
	Themes  []string `json:"themes"`
	Mood    string   `json:"mood"`
	Imagery []string `json:"imagery"`
}

// newAnalyzer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAnalyzer(config *ai.Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.AnalyzerModel),
	)
	if err != nil {
		return nil, err
	}

	return newAnalyzerWithClient(client, config.MaxAttempts), nil
}

func newAnalyzerWithClient(client llms.Model, maxAttempts int) *Analyzer {
	return &Analyzer{
		client:      client,
		maxAttempts: max(maxAttempts, 1),
		logger:      slog.Default().With("component", "openai-analyzer"),
	}
}

// NewAnalyzer creates a new analyzer using the provided configuration.
//
// Returns ai.Analyzer interface to enforce abstraction.
func NewAnalyzer(config *ai.Config) (ai.Analyzer, error) {
	return newAnalyzer(config)
}

// Analyze asks the model for themes, mood and imagery, retrying on malformed
// JSON, and attaches locally extracted rhyme patterns.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*core.Analysis, error) {
	cleaned := cleanInput(text)
	if cleaned == "" {
		return nil, core.ErrEmptyText
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildAnalysisPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(cleaned)},
		},
	}

	var result analysisResponse
	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			return nil, ai.ErrEmptyResponse
		}

		responseText := repairJSON(stripCodeFence(response.Choices[0].Content))

		result = analysisResponse{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			a.logger.Warn("error parsing analysis response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		a.logger.Error("failed to parse analysis response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, lastErr)
	}

	analysis := &core.Analysis{
		Themes:        normalizeAttributes(result.Themes),
		RhymePatterns: rhyme.Extract(text),
		Mood:          normalizeAttribute(result.Mood),
		ImageryTags:   normalizeAttributes(result.Imagery),
	}

	a.logger.Debug("analyzed fragment",
		"themes", len(analysis.Themes),
		"patterns", len(analysis.RhymePatterns),
		"imagery", len(analysis.ImageryTags))

	return analysis, nil
}
