package match

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/metrics"
	"github.com/poiesic/stanza/storage"
)

// Matcher runs matching requests against the stored fragments.
type Matcher struct {
	fragmentRepository storage.FragmentRepository
	analyzer           ai.Analyzer
	adapter            ai.Adapter
	engine             *Engine
	pool               *ants.Pool
	logger             *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithEngine sets the scoring engine.
// Default is DefaultEngine(); nil keeps the default.
func WithEngine(engine *Engine) Option {
	return func(m *Matcher) error {
		if engine != nil {
			m.engine = engine
		}
		return nil
	}
}

// WithPoolSize sets how many adaptation calls may run at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(m *Matcher) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if m.pool != nil {
			m.pool.Release()
		}
		m.pool = pool
		return nil
	}
}

// NewMatcher creates a new matcher.
func NewMatcher(
	fragmentRepository storage.FragmentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Matcher, error) {
	if fragmentRepository == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	pool, err := ants.NewPool(max(runtime.NumCPU()/2, 1))
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		fragmentRepository: fragmentRepository,
		analyzer:           provider.Analyzer(),
		adapter:            provider.Adapter(),
		engine:             DefaultEngine(),
		pool:               pool,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			m.Release()
			return nil, err
		}
	}

	m.logger = m.logger.With("component", "matcher")
	return m, nil
}

// Engine returns the scoring engine used by the matcher.
func (m *Matcher) Engine() *Engine {
	return m.engine
}

// Release releases the adaptation worker pool.
// The matcher should not be used after calling Release.
func (m *Matcher) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
}

// Match analyzes text and matches it against every analyzed fragment in storage.
// Results are in rank order; the top AdaptLimit results carry an adaptation
// when the adapter succeeded for them.
func (m *Matcher) Match(ctx context.Context, text string) ([]*core.MatchResult, error) {
	return m.MatchWithMonitor(ctx, text, nil)
}

// MatchWithMonitor is Match with monitoring.
// The monitor receives callbacks at each stage of the request.
func (m *Matcher) MatchWithMonitor(ctx context.Context, text string, monitor MatchMonitor) ([]*core.MatchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(text)

	analysis, err := m.analyzer.Analyze(ctx, text)
	metrics.ObserveAnalysis(err)
	if err != nil {
		m.logger.Error("error analyzing query", "err", err)
		err = fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
		metrics.ObserveMatch(err, 0, 0)
		return nil, err
	}
	monitor.AfterQueryAnalysis(analysis)

	return m.match(ctx, text, core.SanitizeAnalysis(analysis), monitor)
}

// MatchAnalysis matches an already analyzed query against storage,
// skipping the analysis call.
func (m *Matcher) MatchAnalysis(ctx context.Context, text string, analysis core.Analysis) ([]*core.MatchResult, error) {
	return m.match(ctx, text, core.SanitizeAnalysis(&analysis), &noopMonitor{})
}

func (m *Matcher) match(ctx context.Context, text string, analysis core.Analysis, monitor MatchMonitor) ([]*core.MatchResult, error) {
	fragments, err := m.fragmentRepository.ListFragments(ctx)
	if err != nil {
		m.logger.Error("error listing candidate fragments", "err", err)
		metrics.ObserveMatch(err, 0, 0)
		return nil, err
	}

	candidates := make([]core.Candidate, 0, len(fragments))
	byID := make(map[core.ID]*core.Fragment, len(fragments))
	for _, fragment := range fragments {
		if !fragment.Analyzed() {
			continue
		}
		byID[fragment.Id] = fragment
		candidates = append(candidates, core.Candidate{
			Id:       fragment.Id,
			Analysis: *fragment.Analysis,
			Order:    len(candidates),
		})
	}
	monitor.AfterCandidateRetrieval(candidates)

	ranking := m.engine.Match(analysis, candidates)
	for _, result := range ranking.Display {
		result.Text = byID[result.CandidateID].Text
	}
	monitor.AfterRanking(ranking.Display)

	errs := m.adapt(ctx, text, analysis, ranking.Adapt, byID)
	for i, result := range ranking.Adapt {
		monitor.Adapted(result, errs[i])
	}

	m.logger.Debug("match complete",
		"candidates", len(candidates),
		"retained", len(ranking.Display),
		"adapted", len(ranking.Adapt))
	metrics.ObserveMatch(nil, len(candidates), len(ranking.Display))
	monitor.Finish(ranking.Display)

	return ranking.Display, nil
}

// adapt requests an adaptation for every result concurrently. Each result
// is written only by its own task, so rank order is unaffected. The returned
// slice holds the error for each result, if any.
func (m *Matcher) adapt(
	ctx context.Context,
	text string,
	analysis core.Analysis,
	results []*core.MatchResult,
	byID map[core.ID]*core.Fragment,
) []error {
	errs := make([]error, len(results))
	if len(results) == 0 {
		return errs
	}

	var wg sync.WaitGroup
	for i, result := range results {
		candidate := byID[result.CandidateID]
		req := ai.AdaptRequest{
			QueryText:         text,
			QueryAnalysis:     analysis,
			CandidateText:     candidate.Text,
			CandidateAnalysis: core.SanitizeAnalysis(candidate.Analysis),
			Reasons:           result.Reasons,
		}

		wg.Add(1)
		err := m.pool.Submit(func() {
			defer wg.Done()
			adaptation, err := m.adapter.Adapt(ctx, req)
			metrics.ObserveAdaptation(err)
			if err != nil {
				m.logger.Warn("adaptation failed", "candidateID", result.CandidateID, "err", err)
				errs[i] = err
				return
			}
			result.Adaptation = adaptation
		})
		if err != nil {
			wg.Done()
			m.logger.Warn("error submitting adaptation", "candidateID", result.CandidateID, "err", err)
			metrics.ObserveAdaptation(err)
			errs[i] = err
		}
	}
	wg.Wait()

	return errs
}
