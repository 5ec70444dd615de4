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

package mock

import "github.com/poiesic/stanza/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock analyzer and adapter instances.
type MockProvider struct {
	analyzer *MockAnalyzer
	adapter  *MockAdapter
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockAnalyzer()/GetMockAdapter() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		analyzer: NewMockAnalyzer(),
		adapter:  NewMockAdapter(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(analyzer *MockAnalyzer, adapter *MockAdapter) ai.AIProvider {
	return &MockProvider{
		analyzer: analyzer,
		adapter:  adapter,
	}
}

// Analyzer returns the mock analyzer.
func (p *MockProvider) Analyzer() ai.Analyzer {
	return p.analyzer
}

// Adapter returns the mock adapter.
func (p *MockProvider) Adapter() ai.Adapter {
	return p.adapter
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockAnalyzer returns the underlying mock analyzer for test assertions.
func (p *MockProvider) GetMockAnalyzer() *MockAnalyzer {
	return p.analyzer
}

// GetMockAdapter returns the underlying mock adapter for test assertions.
func (p *MockProvider) GetMockAdapter() *MockAdapter {
	return p.adapter
}
