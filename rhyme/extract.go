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

package rhyme

import (
	"strings"
	"unicode"
)

const (
	// MinWordLength is the shortest word that yields a pattern.
	MinWordLength = 3

	// PatternLength is the suffix length taken from words of at least that length.
	PatternLength = 4
)

// Extract returns the rhyme patterns of text in first-occurrence order.
//
// The text is lowercased and stripped of everything except letters, digits,
// whitespace and apostrophes (so contractions stay whole). Words shorter than
// MinWordLength are ignored; longer words contribute their last PatternLength
// characters, three-character words contribute themselves.
func Extract(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '\'' {
			return r
		}
		return -1
	}, strings.ToLower(text))

	patterns := make([]string, 0)
	seen := make(map[string]bool)
	for _, word := range strings.Fields(cleaned) {
		runes := []rune(word)
		if len(runes) < MinWordLength {
			continue
		}
		n := MinWordLength
		if len(runes) >= PatternLength {
			n = PatternLength
		}
		pattern := string(runes[len(runes)-n:])
		if seen[pattern] {
			continue
		}
		seen[pattern] = true
		patterns = append(patterns, pattern)
	}
	return patterns
}
