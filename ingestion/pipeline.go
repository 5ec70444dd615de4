package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/storage"
)

// Pipeline orchestrates the ingestion and analysis of fragments.
type Pipeline struct {
	fragmentRepository   storage.FragmentRepository
	checkpointRepository storage.CheckpointRepository
	analysisPool         *ants.Pool
	analysisProc         *analysisProcessor
	pending              sync.WaitGroup
	logger               *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent analysis.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		if p.analysisPool != nil {
			p.analysisPool.Release()
		}
		p.analysisPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithCheckpointRepository makes the analysis processor record the highest
// fragment ID it has analyzed after every batch.
func WithCheckpointRepository(checkpointRepository storage.CheckpointRepository) Option {
	return func(p *Pipeline) error {
		p.checkpointRepository = checkpointRepository
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	fragmentRepository storage.FragmentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if fragmentRepository == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	analysisPool, err := ants.NewPool(max(runtime.NumCPU()/2, 1))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		fragmentRepository: fragmentRepository,
		analysisPool:       analysisPool,
		logger:             slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create the processor after options are applied (so it gets final config)
	analysisProc, err := newAnalysisProcessor(fragmentRepository, p.checkpointRepository, provider.Analyzer(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.analysisProc = analysisProc

	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	Metadata map[string]string // Optional metadata to attach to every fragment
}

// Ingest stores texts as fragments and analyzes them asynchronously.
//
// Texts whose fingerprint is already stored, or that repeat an earlier text
// of the same call, are skipped. Blank texts fail the whole call before
// anything is stored. The returned fragments are the ones added, in input
// order, before analysis. Analysis errors are logged but do not fail the
// ingestion; call Wait to block until analysis has finished.
func (p *Pipeline) Ingest(ctx context.Context, texts []string, opts *IngestOptions) ([]*core.Fragment, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}

	fragments := make([]*core.Fragment, 0, len(texts))
	seen := make(map[core.ID]bool, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d: %w", core.ErrInvalidFragment, i, core.ErrEmptyText)
		}

		fingerprint := core.Fingerprint(text)
		if seen[fingerprint] {
			p.logger.Info("skipping repeated text", "index", i)
			continue
		}
		seen[fingerprint] = true

		existing, err := p.fragmentRepository.FindByFingerprint(ctx, fingerprint)
		switch {
		case err == nil:
			p.logger.Info("skipping duplicate fragment", "index", i, "existingID", existing.Id)
			continue
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}

		fragments = append(fragments, &core.Fragment{
			Text:     text,
			Metadata: maps.Clone(opts.Metadata),
		})
	}

	if len(fragments) == 0 {
		return []*core.Fragment{}, nil
	}

	added, err := p.fragmentRepository.AddFragments(ctx, fragments...)
	if err != nil {
		return nil, err
	}

	ids := make([]core.ID, len(added))
	for i, fragment := range added {
		ids[i] = fragment.Id
	}

	// Submit for async processing
	p.pending.Add(1)
	err = p.analysisPool.Submit(func() {
		defer p.pending.Done()
		ctx := context.Background()
		if err := p.analysisProc.process(ctx, ids...); err != nil {
			p.logger.Error("error processing analysis", "err", err)
			return
		}
		if err := p.analysisProc.checkpoint(ctx); err != nil {
			p.logger.Error("error applying analysis checkpoint", "err", err)
		}
	})
	if err != nil {
		p.pending.Done()
		p.logger.Error("error submitting analysis", "fragments", len(ids), "err", err)
	}

	return added, nil
}

// Stats reports asynchronous analysis outcomes.
type Stats struct {
	Analyzed int64
	Failed   int64
}

// Stats returns the number of fragments analyzed and failed so far.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Analyzed: p.analysisProc.analyzed.Load(),
		Failed:   p.analysisProc.failed.Load(),
	}
}

// Wait blocks until all analysis submitted so far has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release waits for pending analysis, then releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.analysisPool != nil {
		p.analysisPool.Release()
	}
}
