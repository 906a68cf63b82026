package models

import (
	"time"

	"gorm.io/gorm"
)

type AssessmentStatus string

const (
	StatusDraft    AssessmentStatus = "Draft"
	StatusActive   AssessmentStatus = "Active"
	StatusArchived AssessmentStatus = "Archived"
)

// Assessment is the published unit of delivery. Questions are immutable once
// the assessment leaves Draft.
type Assessment struct {
	ID       uint             `json:"id" gorm:"primaryKey"`
	Title    string           `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Subject  string           `json:"subject" gorm:"not null;size:100;index" validate:"required,max=100"`
	Grade    string           `json:"grade" gorm:"not null;size:20" validate:"required,max=20"`
	Duration int              `json:"duration" gorm:"not null" validate:"required,min=1,max=300"` // minutes
	Status   AssessmentStatus `json:"status" gorm:"default:Draft;index" validate:"omitempty,oneof=Draft Active Archived"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Version control
	Version int `json:"version" gorm:"default:1"`

	// Relations
	Questions []Question          `json:"questions" gorm:"foreignKey:AssessmentID"`
	Attempts  []AssessmentAttempt `json:"attempts,omitempty" gorm:"foreignKey:AssessmentID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	TotalPoints    int `json:"total_points" gorm:"-"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// ComputeTotals fills the derived question count and point total from the
// loaded Questions relation.
func (a *Assessment) ComputeTotals() {
	a.QuestionsCount = len(a.Questions)
	a.TotalPoints = 0
	for _, q := range a.Questions {
		a.TotalPoints += q.Points
	}
}
