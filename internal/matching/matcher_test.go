package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brightclass/assessment-delivery/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestCheck_MultipleChoice(t *testing.T) {
	m := New()
	q := &models.Question{Type: models.MultipleChoice, CorrectAnswer: "Paris", Points: 2}

	t.Run("exact match is case-insensitive", func(t *testing.T) {
		res := m.Check(q, "paris")
		assert.True(t, res.IsCorrect)
		assert.Equal(t, models.MatchExact, res.Method)
		assert.Nil(t, res.Similarity)
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		res := m.Check(q, "  Paris \n")
		assert.True(t, res.IsCorrect)
	})

	t.Run("wrong option is incorrect", func(t *testing.T) {
		res := m.Check(q, "London")
		assert.False(t, res.IsCorrect)
		assert.Equal(t, models.MatchNone, res.Method)
	})

	t.Run("empty submission is incorrect", func(t *testing.T) {
		res := m.Check(q, "   ")
		assert.False(t, res.IsCorrect)
		assert.Equal(t, models.MatchNone, res.Method)
	})
}

func TestCheck_TrueFalse(t *testing.T) {
	m := New()
	q := &models.Question{Type: models.TrueFalse, CorrectAnswer: "true", Points: 1}

	assert.True(t, m.Check(q, "True").IsCorrect)
	assert.False(t, m.Check(q, "false").IsCorrect)
}

func TestCheck_NumericAnswers(t *testing.T) {
	m := New()
	q := &models.Question{Type: models.ShortAnswer, CorrectAnswer: "5", Points: 1}

	res := m.Check(q, "5.0")
	assert.True(t, res.IsCorrect)
	assert.Equal(t, models.MatchExact, res.Method)
}

func TestCheck_ShortAnswerFuzzy(t *testing.T) {
	m := New()
	q := &models.Question{
		Type:                models.ShortAnswer,
		CorrectAnswer:       "Elephant",
		Points:              3,
		FuzzyMatching:       true,
		SimilarityThreshold: floatPtr(0.8),
	}

	t.Run("exact match wins before fuzzy", func(t *testing.T) {
		res := m.Check(q, "elephant")
		assert.True(t, res.IsCorrect)
		assert.Equal(t, models.MatchExact, res.Method)
	})

	t.Run("minor misspelling passes the threshold", func(t *testing.T) {
		res := m.Check(q, "Elefant")
		assert.True(t, res.IsCorrect)
		assert.Equal(t, models.MatchFuzzy, res.Method)
		if assert.NotNil(t, res.Similarity) {
			assert.GreaterOrEqual(t, *res.Similarity, 0.8)
		}
	})

	t.Run("unrelated word stays incorrect", func(t *testing.T) {
		res := m.Check(q, "Giraffe")
		assert.False(t, res.IsCorrect)
		assert.Equal(t, models.MatchNone, res.Method)
	})
}

func TestCheck_ShortAnswerFuzzyDisabled(t *testing.T) {
	m := New()
	q := &models.Question{Type: models.ShortAnswer, CorrectAnswer: "Elephant", Points: 3}

	res := m.Check(q, "Elefant")
	assert.False(t, res.IsCorrect)
	assert.Equal(t, models.MatchNone, res.Method)
	assert.Nil(t, res.Similarity)
}

func TestCheck_DefaultThreshold(t *testing.T) {
	m := New()
	// No per-question threshold set; the 0.8 default applies.
	q := &models.Question{Type: models.ShortAnswer, CorrectAnswer: "Elephant", FuzzyMatching: true}

	assert.True(t, m.Check(q, "Elefant").IsCorrect)
	assert.False(t, m.Check(q, "Giraffe").IsCorrect)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "the eiffel tower", normalize("  The  Eiffel   Tower! "))
	assert.Equal(t, "dont stop", normalize("Don't stop."))
	assert.Equal(t, "", normalize("  ...  "))
}
