package openai

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeAttribute folds compatibility forms, lowercases and trims a single
// attribute value returned by the model.
func normalizeAttribute(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFKC.String(s)))
}

// normalizeAttributes normalizes every value, dropping empties and repeats.
// The result is never nil and keeps first-seen order.
func normalizeAttributes(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = normalizeAttribute(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// cleanInput normalizes fragment text before it is sent to a model.
// Line breaks are kept since they carry verse structure.
func cleanInput(s string) string {
	lines := strings.Split(norm.NFKC.String(s), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
