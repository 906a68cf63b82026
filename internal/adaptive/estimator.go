// Package adaptive derives a coarse 1.0-4.0 ability estimate from a student's
// answer history. The value is presentation-only; it never feeds back into
// question selection.
package adaptive

import "github.com/brightclass/assessment-delivery/internal/models"

const (
	MinAbility = 1.0
	MaxAbility = 4.0

	// defaultAccuracy seeds the estimate before any question is answered.
	defaultAccuracy = 0.5
)

// State is the ephemeral per-session estimate, recomputed from the full
// answer list on every change and discarded when the session ends.
type State struct {
	Ability              float64 `json:"ability"`
	QuestionsAnswered    int     `json:"questions_answered"`
	CorrectCount         int     `json:"correct_count"`
	ConsecutiveCorrect   int     `json:"consecutive_correct"`
	ConsecutiveIncorrect int     `json:"consecutive_incorrect"`
}

// Estimate recomputes the ability state. The answers slice must be in
// submission order; streaks are scanned from the most recent answer backward.
func Estimate(answers []models.StudentAnswer) State {
	state := State{QuestionsAnswered: len(answers)}
	for _, a := range answers {
		if a.IsCorrect {
			state.CorrectCount++
		}
	}

	accuracy := defaultAccuracy
	if state.QuestionsAnswered > 0 {
		accuracy = float64(state.CorrectCount) / float64(state.QuestionsAnswered)
	}
	ability := MinAbility + accuracy*(MaxAbility-MinAbility)

	// Only one streak type is nonzero at a time: the scan stops at the first
	// answer that breaks the most recent result's run.
	if state.QuestionsAnswered > 0 {
		latest := answers[len(answers)-1].IsCorrect
		run := 0
		for i := len(answers) - 1; i >= 0; i-- {
			if answers[i].IsCorrect != latest {
				break
			}
			run++
		}
		if latest {
			state.ConsecutiveCorrect = run
		} else {
			state.ConsecutiveIncorrect = run
		}
	}

	switch {
	case state.ConsecutiveCorrect >= 3:
		ability += 0.3
	case state.ConsecutiveCorrect >= 2:
		ability += 0.15
	case state.ConsecutiveIncorrect >= 2:
		ability -= 0.2
	}

	state.Ability = clamp(ability, MinAbility, MaxAbility)
	return state
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
