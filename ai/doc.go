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

// Package ai provides abstractions for the language model services Stanza uses.
//
// Two services are defined:
//
//   - Analyzer: derives themes, mood, imagery tags and rhyme patterns from fragment text
//   - Adapter: rewrites a query fragment toward a matched fragment
//
// AIProvider aggregates both so callers initialize and close them together.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible chat APIs
//   - ai/mock: deterministic test doubles with no external dependencies
//
// # Constructor Return Type Pattern
//
// Public production constructors (openai.NewProvider, openai.NewAnalyzer,
// openai.NewAdapter) return interface types. Mock constructors return concrete
// types so tests can inject behavior and inspect call counts:
//
//	analyzer := mock.NewMockAnalyzer()       // *mock.MockAnalyzer
//	analyzer.AnalyzeFunc = func(...) {...}
//	count := analyzer.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	analysis, err := provider.Analyzer().Analyze(ctx, "the night is cold and bright")
package ai
