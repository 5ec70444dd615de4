// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Analyzer, ai.Adapter and
// ai.AIProvider for use in unit tests. The mocks run without external AI
// services and behave deterministically.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	analysis, err := provider.Analyzer().Analyze(ctx, "longing under #moon")
//
//	analyzer := mock.NewMockAnalyzer()
//	analyzer.AnalyzeFunc = func(ctx context.Context, text string) (*core.Analysis, error) {
//	    return &core.Analysis{Themes: []string{"love"}}, nil
//	}
//
// # Default Behavior
//
//   - MockAnalyzer: words of five or more letters become themes and mood,
//     '#'-prefixed words become imagery tags, rhyme patterns come from rhyme.Extract
//   - MockAdapter: joins query and candidate text with " / "
//   - MockProvider: aggregates a mock analyzer and adapter
package mock
