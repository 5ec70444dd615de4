package rhyme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty input", "", []string{}},
		{"whitespace only", "  \n\t ", []string{}},
		{"shared ending collapses", "bright light night", []string{"ight"}},
		{"short words dropped", "a an to be", []string{}},
		{"three letter word kept whole", "the sun", []string{"the", "sun"}},
		{"punctuation stripped and lowercased", "The NIGHT, the light!", []string{"the", "ight"}},
		{"apostrophes preserved", "don't stop", []string{"on't", "stop"}},
		{"digits kept", "route 66 in 2024", []string{"oute", "2024"}},
		{"first occurrence order", "stove love dove grove", []string{"tove", "love", "dove", "rove"}},
		{"unicode letters", "café naïve", []string{"café", "aïve"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_NoDuplicatesNoShortTokens(t *testing.T) {
	texts := []string{
		"I wandered lonely as a cloud that floats on high o'er vales and hills",
		"night night night light light",
		"It's 3 o'clock, and the clock's ticking: tick, tock, tick!",
		"--- !!! ???",
	}

	for _, text := range texts {
		patterns := Extract(text)
		seen := make(map[string]bool)
		for _, p := range patterns {
			assert.GreaterOrEqual(t, len([]rune(p)), MinWordLength, "pattern %q too short", p)
			assert.LessOrEqual(t, len([]rune(p)), PatternLength, "pattern %q too long", p)
			assert.False(t, seen[p], "duplicate pattern %q in %q", p, text)
			seen[p] = true
		}
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"exact", "ight", "ight", true},
		{"suffix overlap", "love", "dove", true},
		{"three letter suffix", "ight", "bright", true},
		{"two letter suffix", "love", "stove", true},
		{"case insensitive", "Love", "DOVE", true},
		{"vowel skeleton", "rain", "pail", true},
		{"no match", "cat", "dog", false},
		{"single vowel skeletons", "ble", "tame", false},
		{"different vowel endings", "moan", "lime", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.a, tt.b))
		})
	}
}

func TestMatches_Asymmetric(t *testing.T) {
	// Only the first argument's endings are tested against the second.
	assert.True(t, Matches("t", "cat"))
	assert.False(t, Matches("cat", "t"))
}

func TestScore(t *testing.T) {
	t.Run("all patterns paired", func(t *testing.T) {
		assert.Equal(t, 1.0, Score([]string{"ight", "love"}, []string{"bright", "stove"}))
	})

	t.Run("empty first set", func(t *testing.T) {
		assert.Equal(t, 0.0, Score([]string{}, []string{"ight"}))
		assert.Equal(t, 0.0, Score(nil, []string{"ight"}))
	})

	t.Run("empty second set", func(t *testing.T) {
		assert.Equal(t, 0.0, Score([]string{"ight"}, []string{}))
		assert.Equal(t, 0.0, Score([]string{"ight"}, nil))
	})

	t.Run("divides by smaller set", func(t *testing.T) {
		assert.Equal(t, 1.0, Score([]string{"ight"}, []string{"ight", "ove"}))
		assert.Equal(t, 0.5, Score([]string{"ight", "cat"}, []string{"ight", "dog", "fish"}))
	})

	t.Run("second set elements claimed once", func(t *testing.T) {
		// Both query patterns rhyme with "ight" but it can only be claimed once.
		assert.Equal(t, 1.0, Score([]string{"ight", "ght"}, []string{"ight"}))
		assert.Equal(t, 0.5, Score([]string{"ight", "ght"}, []string{"ight", "dog"}))
	})

	t.Run("no matches", func(t *testing.T) {
		assert.Equal(t, 0.0, Score([]string{"cat"}, []string{"dog"}))
	})
}

func TestScore_GreedyOrderDependent(t *testing.T) {
	// "fade" rhymes with both "able" and "tame" through the vowel skeleton,
	// "ble" only with "able". Claiming greedily in query order loses a pair
	// when "fade" comes first.
	candidate := []string{"able", "tame"}

	assert.Equal(t, 0.5, Score([]string{"fade", "ble"}, candidate))
	assert.Equal(t, 1.0, Score([]string{"ble", "fade"}, candidate))
}

func TestScore_Bounded(t *testing.T) {
	sets := [][]string{
		{},
		{"ight"},
		{"ight", "ove", "ain"},
		Extract("the rain in spain falls mainly on the plain"),
		Extract("bright light night delight"),
	}
	for _, a := range sets {
		for _, b := range sets {
			s := Score(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}
