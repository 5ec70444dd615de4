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

package match

import (
	"fmt"
	"strings"

	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/rhyme"
)

// Factor weights. They sum to 1.
const (
	ThemeWeight   = 0.35
	RhymeWeight   = 0.30
	MoodWeight    = 0.25
	ImageryWeight = 0.10
)

const (
	// DefaultAcceptThreshold is the score a candidate must exceed to be retained.
	DefaultAcceptThreshold = 0.1

	// DefaultRhymeReasonThreshold is the rhyme score above which a rhyme reason is emitted.
	DefaultRhymeReasonThreshold = 0.3

	// DefaultDisplayLimit is the number of ranked results returned.
	DefaultDisplayLimit = 5

	// DefaultAdaptLimit is the number of top results sent for adaptation.
	DefaultAdaptLimit = 3
)

// Engine scores candidates against a query and ranks the survivors.
// An Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	acceptThreshold      float64
	rhymeReasonThreshold float64
	displayLimit         int
	adaptLimit           int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine) error

// WithAcceptThreshold sets the minimum (exclusive) score for a candidate to be retained.
func WithAcceptThreshold(threshold float64) EngineOption {
	return func(e *Engine) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: accept threshold %v", ErrInvalidThreshold, threshold)
		}
		e.acceptThreshold = threshold
		return nil
	}
}

// WithRhymeReasonThreshold sets the rhyme score (exclusive) above which
// "Compatible rhyme patterns" is reported.
func WithRhymeReasonThreshold(threshold float64) EngineOption {
	return func(e *Engine) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: rhyme reason threshold %v", ErrInvalidThreshold, threshold)
		}
		e.rhymeReasonThreshold = threshold
		return nil
	}
}

// WithDisplayLimit sets how many ranked results are kept.
func WithDisplayLimit(limit int) EngineOption {
	return func(e *Engine) error {
		if limit < 1 {
			return fmt.Errorf("%w: display limit %d", ErrInvalidLimit, limit)
		}
		e.displayLimit = limit
		return nil
	}
}

// WithAdaptLimit sets how many of the top results are selected for adaptation.
// Zero disables adaptation.
func WithAdaptLimit(limit int) EngineOption {
	return func(e *Engine) error {
		if limit < 0 {
			return fmt.Errorf("%w: adapt limit %d", ErrInvalidLimit, limit)
		}
		e.adaptLimit = limit
		return nil
	}
}

// NewEngine creates an engine with default thresholds and limits, then applies opts.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		acceptThreshold:      DefaultAcceptThreshold,
		rhymeReasonThreshold: DefaultRhymeReasonThreshold,
		displayLimit:         DefaultDisplayLimit,
		adaptLimit:           DefaultAdaptLimit,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.adaptLimit = min(e.adaptLimit, e.displayLimit)
	return e, nil
}

// DefaultEngine returns an engine with the default configuration.
func DefaultEngine() *Engine {
	e, _ := NewEngine()
	return e
}

// AcceptThreshold returns the configured accept threshold.
func (e *Engine) AcceptThreshold() float64 {
	return e.acceptThreshold
}

// DisplayLimit returns the configured display limit.
func (e *Engine) DisplayLimit() int {
	return e.displayLimit
}

// AdaptLimit returns the configured adapt limit.
func (e *Engine) AdaptLimit() int {
	return e.adaptLimit
}

// Evaluation is the aggregate comparison of a candidate against a query.
type Evaluation struct {
	Score   float64
	Reasons []string

	Theme   Factor
	Rhyme   float64
	Mood    Factor
	Imagery Factor
}

// Evaluate scores candidate against query.
//
// Each factor contributes weight*subscore to a running total and its weight
// to a running weight total; the score is total divided by weight total.
// Reasons are collected, in factor order, for strictly positive factors only,
// and for rhyme only above the rhyme reason threshold.
func (e *Engine) Evaluate(query, candidate core.Analysis) Evaluation {
	q := core.SanitizeAnalysis(&query)
	c := core.SanitizeAnalysis(&candidate)

	var total, weightTotal float64
	reasons := make([]string, 0, 4)

	// Explicit float64 conversions keep each product rounded on its own, so
	// no architecture fuses them into a multiply-add.
	theme := Overlap(q.Themes, c.Themes)
	total += float64(ThemeWeight * theme.Score)
	weightTotal += ThemeWeight
	if theme.Score > 0 {
		reasons = append(reasons, "Shared themes: "+strings.Join(theme.Shared, ", "))
	}

	rhymeScore := rhyme.Score(q.RhymePatterns, c.RhymePatterns)
	total += float64(RhymeWeight * rhymeScore)
	weightTotal += RhymeWeight
	if rhymeScore > 0 && rhymeScore > e.rhymeReasonThreshold {
		reasons = append(reasons, "Compatible rhyme patterns")
	}

	mood := MoodOverlap(q.Mood, c.Mood)
	total += float64(MoodWeight * mood.Score)
	weightTotal += MoodWeight
	if mood.Score > 0 {
		reasons = append(reasons, "Similar mood: "+c.Mood)
	}

	imagery := Overlap(q.ImageryTags, c.ImageryTags)
	total += float64(ImageryWeight * imagery.Score)
	weightTotal += ImageryWeight
	if imagery.Score > 0 {
		reasons = append(reasons, "Matching imagery: "+strings.Join(imagery.Shared, ", "))
	}

	return Evaluation{
		Score:   total / weightTotal,
		Reasons: reasons,
		Theme:   theme,
		Rhyme:   rhymeScore,
		Mood:    mood,
		Imagery: imagery,
	}
}

// Accept reports whether an evaluation is strong enough to be retained: the
// score must exceed the accept threshold and at least one reason must exist.
func (e *Engine) Accept(ev Evaluation) bool {
	return ev.Score > e.acceptThreshold && len(ev.Reasons) > 0
}

// Match evaluates every candidate, drops the ones Accept rejects and ranks the rest.
func (e *Engine) Match(query core.Analysis, candidates []core.Candidate) Ranking {
	evaluated := make([]Evaluated, 0, len(candidates))
	for _, candidate := range candidates {
		ev := e.Evaluate(query, candidate.Analysis)
		if !e.Accept(ev) {
			continue
		}
		evaluated = append(evaluated, Evaluated{Candidate: candidate, Evaluation: ev})
	}
	return e.Rank(evaluated)
}

// ComputeMatches returns the ranked display set for query among candidates.
// An empty candidate list yields an empty result.
func (e *Engine) ComputeMatches(query core.Analysis, candidates []core.Candidate) []*core.MatchResult {
	return e.Match(query, candidates).Display
}

// ComputeMatches runs ComputeMatches on the default engine.
func ComputeMatches(query core.Analysis, candidates []core.Candidate) []*core.MatchResult {
	return DefaultEngine().ComputeMatches(query, candidates)
}
