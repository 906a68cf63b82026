package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// Question is one item of an assessment. The Type tag decides how the answer
// matcher treats the submitted value; Options is only populated for
// multiple-choice questions.
type Question struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	AssessmentID uint         `json:"assessment_id" gorm:"not null;index"`
	Type         QuestionType `json:"type" gorm:"not null" validate:"required,question_type"`
	Order        int          `json:"order" gorm:"not null;default:0"`
	Text         string       `json:"text" gorm:"type:text;not null" validate:"required,min=1"`

	// Options holds the option list for multiple-choice questions ([]string).
	Options datatypes.JSON `json:"options,omitempty" gorm:"type:jsonb"`

	CorrectAnswer string  `json:"correct_answer" gorm:"not null;type:text" validate:"required"`
	Points        int     `json:"points" gorm:"not null;default:1" validate:"required,min=1,max=100"`
	Hint          *string `json:"hint,omitempty" gorm:"type:text"`

	// Fuzzy short-answer matching. Threshold is a similarity ratio in [0,1];
	// nil means the matcher default applies.
	FuzzyMatching       bool     `json:"fuzzy_matching" gorm:"default:false"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" validate:"omitempty,min=0,max=1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// OptionList decodes the Options JSON column. Returns nil for question types
// without options.
func (q *Question) OptionList() []string {
	if len(q.Options) == 0 {
		return nil
	}
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}
