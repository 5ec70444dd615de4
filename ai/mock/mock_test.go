package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAnalyzer_Default(t *testing.T) {
	analyzer := NewMockAnalyzer()

	analysis, err := analyzer.Analyze(context.Background(), "Longing, longing under the #moon tonight")
	require.NoError(t, err)

	assert.Equal(t, []string{"longing", "under", "tonight"}, analysis.Themes)
	assert.Equal(t, "longing", analysis.Mood)
	assert.Equal(t, []string{"moon"}, analysis.ImageryTags)
	assert.Equal(t, []string{"ging", "nder", "the", "moon", "ight"}, analysis.RhymePatterns)
	assert.NoError(t, core.ValidateAnalysis(analysis))
	assert.Equal(t, 1, analyzer.CallCount())
}

func TestMockAnalyzer_Injected(t *testing.T) {
	boom := errors.New("boom")
	analyzer := NewMockAnalyzer()
	analyzer.AnalyzeFunc = func(context.Context, string) (*core.Analysis, error) {
		return nil, boom
	}

	_, err := analyzer.Analyze(context.Background(), "anything")
	assert.ErrorIs(t, err, boom)

	analyzer.Reset()
	assert.Zero(t, analyzer.CallCount())
	_, err = analyzer.Analyze(context.Background(), "anything")
	assert.NoError(t, err)
}

func TestMockAnalyzer_EmptyText(t *testing.T) {
	_, err := NewMockAnalyzer().Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrEmptyText)
}

func TestMockAdapter_Concurrent(t *testing.T) {
	adapter := NewMockAdapter()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := adapter.Adapt(context.Background(), ai.AdaptRequest{QueryText: "q", CandidateText: "c"})
			assert.NoError(t, err)
			assert.Equal(t, "q / c", out)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, adapter.CallCount())
	assert.Len(t, adapter.Requests(), 20)
}

func TestMockProvider(t *testing.T) {
	provider := NewMockProvider()
	defer provider.Close()

	mp := provider.(*MockProvider)
	assert.Same(t, mp.GetMockAnalyzer(), provider.Analyzer())
	assert.Same(t, mp.GetMockAdapter(), provider.Adapter())
}
