package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/metrics"
	"github.com/poiesic/stanza/storage"
)

// AnalysisProcessorType identifies the ingestion analysis checkpoint.
const AnalysisProcessorType = "ingestion.analysis"

// analysisProcessor analyzes fragments and stores the result on them.
type analysisProcessor struct {
	fragmentRepository   storage.FragmentRepository
	checkpointRepository storage.CheckpointRepository // optional
	analyzer             ai.Analyzer
	logger               *slog.Logger

	mu     sync.Mutex
	lastID core.ID

	analyzed atomic.Int64
	failed   atomic.Int64
}

var _ processor = (*analysisProcessor)(nil)

// newAnalysisProcessor creates a new analysis processor.
func newAnalysisProcessor(
	fragmentRepository storage.FragmentRepository,
	checkpointRepository storage.CheckpointRepository,
	analyzer ai.Analyzer,
	logger *slog.Logger,
) (*analysisProcessor, error) {
	if fragmentRepository == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &analysisProcessor{
		fragmentRepository:   fragmentRepository,
		checkpointRepository: checkpointRepository,
		analyzer:             analyzer,
		logger:               logger.With("processor", "analysis"),
	}, nil
}

// process analyzes the specified fragments. A fragment whose analysis fails
// is logged, counted and left unanalyzed; only storage errors are returned.
func (ap *analysisProcessor) process(ctx context.Context, ids ...core.ID) error {
	ap.logger.Info("processing fragments for analysis", "fragments", len(ids))

	// Sort first so checkpointing works correctly
	ids = slices.Clone(ids)
	slices.Sort(ids)

	fragments, err := ap.fragmentRepository.GetFragments(ctx, ids...)
	if err != nil {
		ap.logger.Error("error retrieving fragments", "err", err)
		return err
	}

	analyzed := make([]*core.Fragment, 0, len(fragments))
	for _, fragment := range fragments {
		analysis, err := ap.analyze(ctx, fragment)
		if err != nil {
			ap.failed.Add(1)
			ap.logger.Warn("error analyzing fragment", "fragmentID", fragment.Id, "err", err)
			continue
		}
		fragment.Analysis = analysis
		analyzed = append(analyzed, fragment)
	}

	if len(analyzed) == 0 {
		return nil
	}

	updated, err := ap.fragmentRepository.UpdateFragments(ctx, analyzed...)
	if err != nil {
		ap.failed.Add(int64(len(analyzed)))
		return err
	}
	ap.analyzed.Add(int64(len(updated)))

	ap.mu.Lock()
	if highestID := updated[len(updated)-1].Id; highestID > ap.lastID {
		ap.lastID = highestID
	}
	ap.mu.Unlock()

	return nil
}

func (ap *analysisProcessor) analyze(ctx context.Context, fragment *core.Fragment) (*core.Analysis, error) {
	analysis, err := ap.analyzer.Analyze(ctx, fragment.Text)
	metrics.ObserveAnalysis(err)
	if err != nil {
		return nil, err
	}
	sanitized := core.SanitizeAnalysis(analysis)
	if err := core.ValidateAnalysis(&sanitized); err != nil {
		return nil, fmt.Errorf("analyzer returned %w", err)
	}
	return &sanitized, nil
}

// checkpoint records the highest fragment ID analyzed so far.
// Without a checkpoint repository it does nothing.
func (ap *analysisProcessor) checkpoint(ctx context.Context) error {
	if ap.checkpointRepository == nil {
		return nil
	}

	// Held across the save so concurrent tasks never write an older ID last.
	ap.mu.Lock()
	defer ap.mu.Unlock()

	if ap.lastID == 0 {
		return nil
	}
	return ap.checkpointRepository.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType: AnalysisProcessorType,
		LastID:        ap.lastID,
	})
}
