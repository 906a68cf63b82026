package models

import (
	"math"
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

const (
	AttemptEndReasonTimeout   = "time_out"
	AttemptEndReasonSubmitted = "submitted"
)

type MatchMethod string

const (
	MatchExact MatchMethod = "exact"
	MatchFuzzy MatchMethod = "fuzzy"
	MatchNone  MatchMethod = "none"
)

// AssessmentAttempt is one student's run through an assessment, from first
// visit until manual submit or timer expiry. At most one in-progress attempt
// exists per (student, assessment) pair.
type AssessmentAttempt struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	AssessmentID uint          `json:"assessment_id" gorm:"not null;index:idx_attempt_student_assessment"`
	StudentID    string        `json:"student_id" gorm:"not null;size:255;index:idx_attempt_student_assessment"`
	StudentName  string        `json:"student_name" gorm:"size:200"`
	Grade        string        `json:"grade" gorm:"size:20"`
	Subject      string        `json:"subject" gorm:"size:100"`
	Status       AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Scoring. Score is always the sum of awarded answer points and
	// Percentage the rounded share of TotalPoints.
	Score       int     `json:"score"`
	TotalPoints int     `json:"total_points"`
	Percentage  float64 `json:"percentage"`

	// Progress
	TimeRemaining        int `json:"time_remaining"` // seconds, never negative
	CurrentQuestionIndex int `json:"current_question_index"`

	// Timing. Deadline is the wall-clock cutoff (StartedAt + duration) the
	// expiry sweeper enforces server-side.
	StartedAt   time.Time  `json:"started_at"`
	Deadline    *time.Time `json:"deadline" gorm:"index"`
	LastSavedAt *time.Time `json:"last_saved_at"`
	CompletedAt *time.Time `json:"completed_at"`
	EndReason   *string    `json:"end_reason" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment Assessment      `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
	Answers    []StudentAnswer `json:"answers" gorm:"foreignKey:AttemptID"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

// StudentAnswer records the latest submitted value for one question of an
// attempt. Resubmission overwrites the row, never appends.
type StudentAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`

	Value         string      `json:"value" gorm:"type:text"`
	IsCorrect     bool        `json:"is_correct"`
	PointsAwarded int         `json:"points_awarded"`
	Similarity    *float64    `json:"similarity,omitempty"`
	MatchMethod   MatchMethod `json:"match_method" gorm:"default:none"`

	TimeSpent int `json:"time_spent"` // seconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}

// RecalculateScore rederives Score and Percentage from the answer list.
// Call after any answer mutation so the stored attempt stays consistent.
func (a *AssessmentAttempt) RecalculateScore() {
	total := 0
	for _, ans := range a.Answers {
		total += ans.PointsAwarded
	}
	a.Score = total
	if a.TotalPoints > 0 {
		a.Percentage = math.Round(100 * float64(a.Score) / float64(a.TotalPoints))
	} else {
		a.Percentage = 0
	}
}

// AnsweredCount reports how many questions carry a submitted answer.
func (a *AssessmentAttempt) AnsweredCount() int {
	return len(a.Answers)
}

// AnswerFor returns the answer recorded for the question, or nil.
func (a *AssessmentAttempt) AnswerFor(questionID uint) *StudentAnswer {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return &a.Answers[i]
		}
	}
	return nil
}
