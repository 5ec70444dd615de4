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

package reanalyze

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/storage"
)

// ProcessorType identifies reanalyze checkpoints.
const ProcessorType = "reanalyze"

// Config holds configuration for the reanalyze operation.
type Config struct {
	// BatchSize is the number of fragments to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of fragments)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per fragment analysis
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Resume continues after the fragment recorded by the last checkpoint
	// instead of starting from the first fragment
	Resume bool

	// OnlyMissing analyzes only fragments that have no analysis yet
	OnlyMissing bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Summary reports the outcome of a run.
type Summary struct {
	BatchResult
	Processed    int     // fragments visited
	StartedAfter core.ID // checkpoint the run resumed from, 0 for a fresh run
}

// Reanalyzer orchestrates the reanalysis of all fragments in a database.
type Reanalyzer struct {
	repo        storage.FragmentRepository
	checkpoints storage.CheckpointRepository // optional
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *FragmentIterator
	logger      *slog.Logger
}

// NewReanalyzer creates a new reanalyzer.
// checkpoints may be nil, which disables checkpointing and Resume.
// progress: where to write progress output (typically os.Stderr)
func NewReanalyzer(
	repo storage.FragmentRepository,
	checkpoints storage.CheckpointRepository,
	analyzer ai.Analyzer,
	config *Config,
	progress io.Writer,
) (*Reanalyzer, error) {
	if repo == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	processor := NewBatchProcessor(repo, analyzer, config.MaxRetries, config.RetryDelay)
	processor.onlyMissing = config.OnlyMissing

	return &Reanalyzer{
		repo:        repo,
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   processor,
		iterator:    NewFragmentIterator(repo, config.BatchSize),
		logger:      slog.Default().With("component", "reanalyzer"),
	}, nil
}

// Run executes the reanalyze operation.
//
// A checkpoint holding the last processed fragment ID is saved after every
// batch and removed once the run completes. Progress is reported to the
// configured writer.
func (r *Reanalyzer) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	if r.config.Resume && r.checkpoints != nil {
		checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, ProcessorType)
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if checkpoint != nil {
			summary.StartedAfter = checkpoint.LastID
			fmt.Fprintf(r.progress, "Resuming after fragment %d\n", checkpoint.LastID)
		}
	}

	total, err := r.repo.CountFragments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count fragments: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No fragments found in database (0 fragments)\n")
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Starting reanalysis of %d fragments (batch size: %d)\n",
		total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, summary.StartedAfter, func(fragments []*core.Fragment) error {
		result, err := r.processor.Process(ctx, fragments)
		summary.Add(result)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		summary.Processed += len(fragments)
		tracker.Update(summary.Processed)

		return r.saveCheckpoint(ctx, fragments[len(fragments)-1].Id)
	})
	if err != nil {
		return summary, err
	}

	tracker.Finish()

	if r.checkpoints != nil {
		if err := r.checkpoints.DeleteCheckpoint(ctx, ProcessorType); err != nil {
			r.logger.Warn("error removing checkpoint", "err", err)
		}
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reanalysis complete. Processed %d fragments in %v (%.1f fragments/sec): %d updated, %d skipped, %d failed\n",
		summary.Processed, elapsed.Round(time.Second), float64(summary.Processed)/max(elapsed.Seconds(), 1e-9),
		summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (r *Reanalyzer) saveCheckpoint(ctx context.Context, lastID core.ID) error {
	if r.checkpoints == nil {
		return nil
	}
	if err := r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType: ProcessorType,
		LastID:        lastID,
	}); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
