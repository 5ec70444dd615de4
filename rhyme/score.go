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

// Score returns the fraction of patterns that can be paired between two
// pattern sets, in [0, 1].
//
// Pairing is greedy and order dependent: each element of patterns1, in order,
// claims the first unclaimed element of patterns2 that it Matches. An element
// of patterns2 is claimed at most once. The match count is divided by the
// size of the smaller set. Either set being empty yields 0.
func Score(patterns1, patterns2 []string) float64 {
	if len(patterns1) == 0 || len(patterns2) == 0 {
		return 0
	}

	claimed := make([]bool, len(patterns2))
	matches := 0
	for _, p1 := range patterns1 {
		for j, p2 := range patterns2 {
			if claimed[j] || !Matches(p1, p2) {
				continue
			}
			claimed[j] = true
			matches++
			break
		}
	}

	score := float64(matches) / float64(min(len(patterns1), len(patterns2)))
	return min(score, 1.0)
}
