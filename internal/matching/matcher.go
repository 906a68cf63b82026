package matching

import (
	"strings"

	"github.com/adrg/strutil"

	"github.com/brightclass/assessment-delivery/internal/models"
)

// DefaultSimilarityThreshold applies to fuzzy short-answer questions that do
// not carry their own threshold.
const DefaultSimilarityThreshold = 0.8

// Result is the outcome of checking one submitted answer.
type Result struct {
	IsCorrect  bool               `json:"is_correct"`
	Similarity *float64           `json:"similarity,omitempty"`
	Method     models.MatchMethod `json:"match_method"`
}

// Matcher decides answer correctness per question type. It is pure: no state
// beyond the fallback threshold, safe for concurrent use.
type Matcher struct {
	defaultThreshold float64
	similarity       strutil.StringMetric
}

func New() *Matcher {
	return &Matcher{
		defaultThreshold: DefaultSimilarityThreshold,
		similarity:       ratcliffObershelp{},
	}
}

// Check grades a submitted value against the question's correct answer.
// Multiple-choice and true/false use exact case-insensitive comparison;
// short-answer tries exact first and falls back to fuzzy similarity when the
// question enables it. An empty submission is always incorrect.
func (m *Matcher) Check(q *models.Question, submitted string) Result {
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return Result{Method: models.MatchNone}
	}

	correct := strings.TrimSpace(q.CorrectAnswer)

	switch q.Type {
	case models.MultipleChoice, models.TrueFalse:
		if strings.EqualFold(submitted, correct) || numericEqual(submitted, correct) {
			return Result{IsCorrect: true, Method: models.MatchExact}
		}
		return Result{Method: models.MatchNone}

	case models.ShortAnswer:
		return m.checkShortAnswer(q, submitted, correct)

	default:
		return Result{Method: models.MatchNone}
	}
}

func (m *Matcher) checkShortAnswer(q *models.Question, submitted, correct string) Result {
	normSubmitted := normalize(submitted)
	normCorrect := normalize(correct)

	if normSubmitted == normCorrect || numericEqual(submitted, correct) {
		return Result{IsCorrect: true, Method: models.MatchExact}
	}

	if !q.FuzzyMatching {
		return Result{Method: models.MatchNone}
	}

	score := strutil.Similarity(normSubmitted, normCorrect, m.similarity)
	if score >= m.threshold(q) {
		return Result{IsCorrect: true, Similarity: &score, Method: models.MatchFuzzy}
	}
	return Result{Similarity: &score, Method: models.MatchNone}
}

func (m *Matcher) threshold(q *models.Question) float64 {
	if q.SimilarityThreshold != nil {
		return *q.SimilarityThreshold
	}
	return m.defaultThreshold
}
