package reanalyze

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/stanza/ai/mock"
	"github.com/poiesic/stanza/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
}

func TestNewReanalyzer(t *testing.T) {
	repos := setupTestDB(t)
	analyzer := mock.NewMockAnalyzer()

	r, err := NewReanalyzer(repos.Fragments, nil, analyzer, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), r.config)

	_, err = NewReanalyzer(nil, nil, analyzer, nil, nil)
	assert.Equal(t, ErrFragmentRepositoryRequired, err)

	_, err = NewReanalyzer(repos.Fragments, nil, nil, nil, nil)
	assert.Equal(t, ErrAnalyzerRequired, err)
}

func TestReanalyzer_Run(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()
	added := addFragments(t, repos, 10)

	var buf bytes.Buffer
	r, err := NewReanalyzer(repos.Fragments, repos.Checkpoints, mock.NewMockAnalyzer(), testConfig(), &buf)
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Processed)
	assert.Equal(t, 10, summary.Updated)
	assert.Zero(t, summary.Failed)

	for _, f := range added {
		stored, err := repos.Fragments.GetFragment(ctx, f.Id)
		require.NoError(t, err)
		assert.True(t, stored.Analyzed(), "fragment %d should be analyzed", f.Id)
	}

	output := buf.String()
	assert.Contains(t, output, "Starting reanalysis of 10 fragments (batch size: 3)")
	assert.Contains(t, output, "10/10")
	assert.Contains(t, output, "10 updated, 0 skipped, 0 failed")

	checkpoint, err := repos.Checkpoints.LoadCheckpoint(ctx, ProcessorType)
	require.NoError(t, err)
	assert.Nil(t, checkpoint, "a completed run removes its checkpoint")
}

func TestReanalyzer_EmptyDatabase(t *testing.T) {
	repos := setupTestDB(t)
	analyzer := mock.NewMockAnalyzer()

	var buf bytes.Buffer
	r, err := NewReanalyzer(repos.Fragments, repos.Checkpoints, analyzer, DefaultConfig(), &buf)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Contains(t, buf.String(), "No fragments found")
	assert.Zero(t, analyzer.CallCount())
}

func TestReanalyzer_InterruptedRunLeavesCheckpoint(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()
	added := addFragments(t, repos, 7)

	// Analyzing the fifth fragment (second batch) interrupts the run.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	analyzer := mock.NewMockAnalyzer()
	analyzer.AnalyzeFunc = func(_ context.Context, text string) (*core.Analysis, error) {
		if text == added[4].Text {
			cancel()
			return nil, errors.New("interrupted")
		}
		return &core.Analysis{Mood: "first pass"}, nil
	}

	r, err := NewReanalyzer(repos.Fragments, repos.Checkpoints, analyzer, testConfig(), nil)
	require.NoError(t, err)

	summary, err := r.Run(runCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, summary.Processed)

	checkpoint, err := repos.Checkpoints.LoadCheckpoint(ctx, ProcessorType)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, added[2].Id, checkpoint.LastID)

	t.Run("resume continues after the checkpoint", func(t *testing.T) {
		analyzer := mock.NewMockAnalyzer()
		cfg := testConfig()
		cfg.Resume = true

		var buf bytes.Buffer
		r, err := NewReanalyzer(repos.Fragments, repos.Checkpoints, analyzer, cfg, &buf)
		require.NoError(t, err)

		summary, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, added[2].Id, summary.StartedAfter)
		assert.Equal(t, 4, summary.Processed)
		assert.Equal(t, 4, analyzer.CallCount())
		assert.True(t, strings.HasPrefix(buf.String(), "Resuming after fragment"))

		first, err := repos.Fragments.GetFragment(ctx, added[0].Id)
		require.NoError(t, err)
		assert.Equal(t, "first pass", first.Analysis.Mood, "fragments before the checkpoint are untouched")
	})
}

func TestReanalyzer_ResumeWithoutCheckpointStartsFresh(t *testing.T) {
	repos := setupTestDB(t)
	addFragments(t, repos, 4)

	cfg := testConfig()
	cfg.Resume = true
	r, err := NewReanalyzer(repos.Fragments, repos.Checkpoints, mock.NewMockAnalyzer(), cfg, nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.StartedAfter)
	assert.Equal(t, 4, summary.Processed)
}

func TestReanalyzer_FailuresAreCounted(t *testing.T) {
	repos := setupTestDB(t)
	addFragments(t, repos, 5)

	analyzer := mock.NewMockAnalyzer()
	analyzer.AnalyzeFunc = func(_ context.Context, _ string) (*core.Analysis, error) {
		return nil, errors.New("service down")
	}

	r, err := NewReanalyzer(repos.Fragments, nil, analyzer, testConfig(), nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 5, summary.Failed)
	assert.Equal(t, 10, analyzer.CallCount(), "MaxRetries attempts per fragment")
}
