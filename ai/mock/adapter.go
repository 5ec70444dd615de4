package mock

import (
	"context"
	"sync"

	"github.com/poiesic/stanza/ai"
)

// MockAdapter is a test double for ai.Adapter.
// It is safe for concurrent use.
type MockAdapter struct {
	// AdaptFunc is called by Adapt if set.
	// If nil, returns the query and candidate texts joined by " / ".
	AdaptFunc func(ctx context.Context, req ai.AdaptRequest) (string, error)

	mu        sync.Mutex
	callCount int
	requests  []ai.AdaptRequest
}

// NewMockAdapter creates a mock adapter with default deterministic behavior.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

// Adapt records the request and produces a deterministic adaptation.
func (m *MockAdapter) Adapt(ctx context.Context, req ai.AdaptRequest) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	fn := m.AdaptFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return req.QueryText + " / " + req.CandidateText, nil
}

// CallCount returns the number of times Adapt was called.
func (m *MockAdapter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of every request received, in arrival order.
func (m *MockAdapter) Requests() []ai.AdaptRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.AdaptRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears recorded calls and custom functions.
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.requests = nil
	m.AdaptFunc = nil
}
