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
	"cmp"
	"slices"

	"github.com/poiesic/stanza/core"
)

// Evaluated pairs a candidate with its evaluation.
type Evaluated struct {
	Candidate  core.Candidate
	Evaluation Evaluation
}

// Ranking is the outcome of ranking evaluated candidates.
// Adapt is a prefix of Display; both share the same result pointers.
type Ranking struct {
	Display []*core.MatchResult
	Adapt   []*core.MatchResult
}

// Rank orders evaluated candidates by descending score and keeps the top
// display limit. Equal scores are ordered by candidate Order, then by input order.
func (e *Engine) Rank(evaluated []Evaluated) Ranking {
	sorted := slices.Clone(evaluated)
	slices.SortStableFunc(sorted, func(a, b Evaluated) int {
		return cmp.Or(
			cmp.Compare(b.Evaluation.Score, a.Evaluation.Score),
			cmp.Compare(a.Candidate.Order, b.Candidate.Order),
		)
	})

	n := min(len(sorted), e.displayLimit)
	display := make([]*core.MatchResult, n)
	for i := range n {
		display[i] = &core.MatchResult{
			CandidateID: sorted[i].Candidate.Id,
			Score:       sorted[i].Evaluation.Score,
			Reasons:     sorted[i].Evaluation.Reasons,
		}
	}

	return Ranking{
		Display: display,
		Adapt:   display[:min(n, e.adaptLimit)],
	}
}
