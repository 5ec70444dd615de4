package reanalyze

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/metrics"
	"github.com/poiesic/stanza/storage"
)

// BatchResult tallies the outcome of one batch.
type BatchResult struct {
	Updated int // fragments whose analysis was replaced
	Skipped int // already analyzed fragments left alone in OnlyMissing mode
	Failed  int // fragments whose analysis failed after every retry
}

// Add accumulates other into r.
func (r *BatchResult) Add(other BatchResult) {
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// BatchProcessor analyzes batches of fragments and writes the results back.
type BatchProcessor struct {
	repo           storage.FragmentRepository
	analyzer       ai.Analyzer
	maxRetries     int
	retryBaseDelay time.Duration
	onlyMissing    bool
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts per fragment analysis
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.FragmentRepository, analyzer ai.Analyzer, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		analyzer:       analyzer,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         slog.Default().With("processor", "reanalyze"),
	}
}

// Process analyzes each fragment of the batch and updates the analyzed ones.
//
// A fragment whose analysis still fails after maxRetries attempts keeps its
// previous analysis and is counted as failed; only storage errors abort.
func (bp *BatchProcessor) Process(ctx context.Context, fragments []*core.Fragment) (BatchResult, error) {
	var result BatchResult
	if len(fragments) == 0 {
		return result, nil
	}

	updated := make([]*core.Fragment, 0, len(fragments))
	for _, fragment := range fragments {
		if bp.onlyMissing && fragment.Analyzed() {
			result.Skipped++
			continue
		}

		analysis, err := bp.analyze(ctx, fragment.Text)
		metrics.ObserveAnalysis(err)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			bp.logger.Warn("giving up on fragment", "fragmentID", fragment.Id, "err", err)
			result.Failed++
			continue
		}

		fragment.Analysis = analysis
		updated = append(updated, fragment)
	}

	if len(updated) == 0 {
		return result, nil
	}

	if _, err := bp.repo.UpdateFragments(ctx, updated...); err != nil {
		return result, fmt.Errorf("failed to update fragments: %w", err)
	}
	result.Updated = len(updated)

	return result, nil
}

// analyze runs the analyzer with retry and returns a validated analysis.
func (bp *BatchProcessor) analyze(ctx context.Context, text string) (*core.Analysis, error) {
	var analysis core.Analysis
	err := RetryWithBackoff(ctx, func() error {
		a, err := bp.analyzer.Analyze(ctx, text)
		if err != nil {
			return err
		}
		analysis = core.SanitizeAnalysis(a)
		if err := core.ValidateAnalysis(&analysis); err != nil {
			return Permanent(err)
		}
		return nil
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}
