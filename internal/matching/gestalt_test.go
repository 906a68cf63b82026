package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatcliffObershelpCompare(t *testing.T) {
	m := ratcliffObershelp{}

	t.Run("identical strings score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, m.Compare("elephant", "elephant"))
	})

	t.Run("empty against empty scores 1", func(t *testing.T) {
		assert.Equal(t, 1.0, m.Compare("", ""))
	})

	t.Run("empty against non-empty scores 0", func(t *testing.T) {
		assert.Equal(t, 0.0, m.Compare("", "elephant"))
		assert.Equal(t, 0.0, m.Compare("elephant", ""))
	})

	t.Run("no common characters score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, m.Compare("abc", "xyz"))
	})

	// elephant/elefant: "ele" (3) plus "ant" (3) match out of 15 runes,
	// so 2*6/15 = 0.8 exactly. The default threshold depends on this.
	t.Run("single-letter misspelling scores exactly 0.8", func(t *testing.T) {
		assert.InDelta(t, 0.8, m.Compare("elephant", "elefant"), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, m.Compare("elephant", "elefant"), m.Compare("elefant", "elephant"))
	})

	t.Run("wikimedia against wikimania", func(t *testing.T) {
		assert.InDelta(t, 14.0/18.0, m.Compare("wikimedia", "wikimania"), 1e-9)
	})
}

func TestLongestCommonSubstring(t *testing.T) {
	ai, bi, size := longestCommonSubstring([]rune("photograph"), []rune("tomography"))
	assert.Equal(t, "ograph", string([]rune("photograph")[ai:ai+size]))
	assert.Equal(t, 3, bi)
	assert.Equal(t, 6, size)

	_, _, size = longestCommonSubstring([]rune("abc"), []rune("xyz"))
	assert.Zero(t, size)
}
