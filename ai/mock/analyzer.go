package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/rhyme"
)

// MockAnalyzer is a test double for ai.Analyzer.
// It allows custom behavior injection via function fields.
type MockAnalyzer struct {
	// AnalyzeFunc is called by Analyze if set.
	// If nil, uses default word-based analysis.
	AnalyzeFunc func(ctx context.Context, text string) (*core.Analysis, error)

	mu        sync.Mutex
	callCount int
}

// NewMockAnalyzer creates a mock analyzer with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockAnalyzer().
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// Analyze derives a deterministic analysis from the words of text.
// Default behavior: words of five or more letters become themes (at most
// three), the first such word is the mood, words tagged with a leading '#'
// become imagery tags and rhyme patterns come from rhyme.Extract.
func (m *MockAnalyzer) Analyze(ctx context.Context, text string) (*core.Analysis, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.AnalyzeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	if strings.TrimSpace(text) == "" {
		return nil, core.ErrEmptyText
	}

	analysis := &core.Analysis{
		Themes:        []string{},
		RhymePatterns: rhyme.Extract(text),
		ImageryTags:   []string{},
	}
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if tag, ok := strings.CutPrefix(word, "#"); ok {
			tag = strings.Trim(tag, ".,!?;:\"'()")
			if tag != "" && !seen["#"+tag] {
				seen["#"+tag] = true
				analysis.ImageryTags = append(analysis.ImageryTags, tag)
			}
			continue
		}
		word = strings.Trim(word, ".,!?;:\"'()")
		if len(word) < 5 || seen[word] {
			continue
		}
		seen[word] = true
		if analysis.Mood == "" {
			analysis.Mood = word
		}
		if len(analysis.Themes) < 3 {
			analysis.Themes = append(analysis.Themes, word)
		}
	}
	return analysis, nil
}

// CallCount returns the number of times Analyze was called.
func (m *MockAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockAnalyzer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.AnalyzeFunc = nil
}
