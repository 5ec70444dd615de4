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

import "strings"

// Matches reports whether pattern a plausibly rhymes with pattern b.
//
// Three rules are tried in order:
//  1. the patterns are equal
//  2. the last three, or the last two, characters of a end b
//  3. the vowel skeletons (a, e, i, o, u in order) of both patterns have at
//     least two vowels and share their final two
//
// Rule 2 is one-sided: only a's endings are tested against b. Callers pass
// the query-side pattern as a.
func Matches(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return true
	}

	if strings.HasSuffix(b, lastN(a, 3)) || strings.HasSuffix(b, lastN(a, 2)) {
		return true
	}

	va := []rune(vowels(a))
	vb := []rune(vowels(b))
	if len(va) >= 2 && len(vb) >= 2 {
		return string(va[len(va)-2:]) == string(vb[len(vb)-2:])
	}

	return false
}

// lastN returns the last n runes of s, or s itself when it is shorter.
func lastN(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// vowels concatenates the vowel runs of s.
func vowels(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
