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

package openai

// repairJSON attempts to fix common JSON formatting issues from LLM responses:
// keys missing their opening quote and trailing commas before a closing
// bracket or brace.
func repairJSON(s string) string {
	return dropTrailingCommas(quoteKeys(s))
}

// quoteKeys restores a missing opening quote before object keys.
// Example: `, mood":` -> `, "mood":`
func quoteKeys(s string) string {
	src := []rune(s)
	fixed := make([]rune, 0, len(src)+16)
	inString := false

	i := 0
	for i < len(src) {
		ch := src[i]

		if ch == '"' && (i == 0 || src[i-1] != '\\') {
			inString = !inString
		}

		if inString || (ch != '{' && ch != ',') {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++

		for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t') {
			fixed = append(fixed, src[i])
			i++
		}

		if i >= len(src) || src[i] == '"' || !isLetter(src[i]) {
			continue
		}

		keyStart := i
		for i < len(src) && (isLetter(src[i]) || src[i] == '_') {
			i++
		}

		// A bare word followed by ": is a key that lost its opening quote.
		// The closing quote at src[i] is consumed here so it does not open a string.
		if i+1 < len(src) && src[i] == '"' && src[i+1] == ':' {
			fixed = append(fixed, '"')
			fixed = append(fixed, src[keyStart:i]...)
			fixed = append(fixed, '"')
			i++
			continue
		}
		fixed = append(fixed, src[keyStart:i]...)
	}

	return string(fixed)
}

// dropTrailingCommas removes a comma that directly precedes (ignoring
// whitespace) a closing ] or }.
func dropTrailingCommas(s string) string {
	src := []rune(s)
	fixed := make([]rune, 0, len(src))
	inString := false

	for i, ch := range src {
		if ch == '"' && (i == 0 || src[i-1] != '\\') {
			inString = !inString
		}
		if ch == ',' && !inString {
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\n' || src[j] == '\t' || src[j] == '\r') {
				j++
			}
			if j < len(src) && (src[j] == ']' || src[j] == '}') {
				continue
			}
		}
		fixed = append(fixed, ch)
	}

	return string(fixed)
}
