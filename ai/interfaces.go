package ai

import (
	"context"

	"github.com/poiesic/stanza/core"
)

// Analyzer turns raw fragment text into semantic metadata.
// Implementations must be thread-safe for concurrent use.
type Analyzer interface {
	// Analyze extracts themes, mood, imagery tags and rhyme patterns from text.
	// Returns an error if the service is unavailable or its response cannot be parsed.
	// A successful result always has non-nil attribute slices.
	Analyze(ctx context.Context, text string) (*core.Analysis, error)
}

// AdaptRequest carries everything an Adapter needs to blend a matched
// fragment into the query fragment.
type AdaptRequest struct {
	QueryText         string
	QueryAnalysis     core.Analysis
	CandidateText     string
	CandidateAnalysis core.Analysis
	Reasons           []string
}

// Adapter generates a rewritten text suggestion from a query and a matched candidate.
// Implementations must be thread-safe for concurrent use.
type Adapter interface {
	// Adapt returns a suggested rewrite. Each call is independent; a failure
	// affects only that call.
	Adapt(ctx context.Context, req AdaptRequest) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Analyzer returns the fragment analysis service.
	Analyzer() Analyzer

	// Adapter returns the adaptation service.
	Adapter() Adapter

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
