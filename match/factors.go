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
	"strings"
	"unicode"
)

// Factor is the outcome of comparing one attribute between query and candidate.
type Factor struct {
	Score  float64
	Shared []string // input-side elements that found a partner, in input order
}

// Overlap compares two attribute sets. An input element is shared when it
// contains, or is contained by, any candidate element (case-insensitive).
// The score is the shared fraction of the input set.
func Overlap(input, candidate []string) Factor {
	lowered := make([]string, len(candidate))
	for i, c := range candidate {
		lowered[i] = strings.ToLower(c)
	}

	shared := make([]string, 0)
	seen := make(map[string]bool)
	for _, in := range input {
		if seen[in] {
			continue
		}
		needle := strings.ToLower(in)
		for _, c := range lowered {
			if strings.Contains(needle, c) || strings.Contains(c, needle) {
				shared = append(shared, in)
				seen[in] = true
				break
			}
		}
	}

	return Factor{
		Score:  min(float64(len(shared))/float64(max(len(input), 1)), 1.0),
		Shared: shared,
	}
}

// MoodOverlap applies the Overlap rule to the words of two mood descriptions.
// Words are split on whitespace and commas. An empty mood on either side
// scores 0.
func MoodOverlap(inputMood, candidateMood string) Factor {
	if inputMood == "" || candidateMood == "" {
		return Factor{Shared: []string{}}
	}
	return Overlap(moodWords(inputMood), moodWords(candidateMood))
}

func moodWords(mood string) []string {
	return strings.FieldsFunc(strings.ToLower(mood), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
