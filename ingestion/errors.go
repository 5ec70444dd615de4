package ingestion

import "errors"

var (
	// ErrFragmentRepositoryRequired is returned when a fragment repository is not provided.
	ErrFragmentRepositoryRequired = errors.New("fragment repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrAnalyzerRequired is returned when the provider has no analyzer.
	ErrAnalyzerRequired = errors.New("analyzer required")
)
