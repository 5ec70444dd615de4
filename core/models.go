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

package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Fingerprint returns the content ID of a fragment text after case folding and
// whitespace collapsing, so trivially different copies of a fragment collide.
func Fingerprint(text string) ID {
	return IDFromContent(strings.Join(strings.Fields(strings.ToLower(text)), " "))
}

// Analysis is the semantic metadata attached to a fragment.
// Attribute slices are ordered, deduplicated and never contain empty strings.
type Analysis struct {
	Themes        []string
	RhymePatterns []string
	Mood          string
	ImageryTags   []string
}

// SanitizeAnalysis returns a copy of a with every attribute set non-nil and
// empty elements removed. A nil analysis yields an empty one.
func SanitizeAnalysis(a *Analysis) Analysis {
	if a == nil {
		return Analysis{
			Themes:        []string{},
			RhymePatterns: []string{},
			ImageryTags:   []string{},
		}
	}
	return Analysis{
		Themes:        nonEmpty(a.Themes),
		RhymePatterns: nonEmpty(a.RhymePatterns),
		Mood:          a.Mood,
		ImageryTags:   nonEmpty(a.ImageryTags),
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Fragment is a stored piece of text together with its analysis.
type Fragment struct {
	Id          ID
	Text        string
	Analysis    *Analysis         // nil until the analysis processor runs
	Fingerprint ID                // Fingerprint(Text), used to reject duplicates
	Metadata    map[string]string // Optional metadata (e.g., "source", "author")
	InsertedAt  time.Time         // When the fragment was inserted into the database
	UpdatedAt   time.Time         // When the fragment was last updated
}

// Analyzed reports whether the fragment carries an analysis.
func (f *Fragment) Analyzed() bool {
	return f.Analysis != nil
}

// Candidate is a stored fragment being compared against a query.
// Order is the position in the storage snapshot; ranking uses it to break score ties.
type Candidate struct {
	Id       ID
	Analysis Analysis
	Order    int
}

// MatchResult is a ranked candidate with its aggregate score and the reasons it matched.
type MatchResult struct {
	CandidateID ID
	Score       float64
	Reasons     []string
	Adaptation  string // set only by the adaptation step
	Text        string // candidate text, filled in for presentation
}

// Checkpoint records the progress of a long-running processor.
type Checkpoint struct {
	ProcessorType string
	LastID        ID
	UpdatedAt     time.Time
}
