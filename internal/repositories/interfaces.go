package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/brightclass/assessment-delivery/internal/models"
)

// Repository aggregates the per-entity repositories behind one injection
// point for the service layer.
type Repository interface {
	Assessment() AssessmentRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
}

// ===== SHARED FILTER STRUCTS =====

type AssessmentFilters struct {
	Status    *models.AssessmentStatus `json:"status"`
	Subject   *string                  `json:"subject"`
	Grade     *string                  `json:"grade"`
	CreatedBy *string                  `json:"created_by"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "created_at", "title"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status       models.AttemptStatus `json:"status"`
	StudentID    *string              `json:"student_id"`
	AssessmentID *uint                `json:"assessment_id"`
	DateFrom     *time.Time           `json:"date_from"`
	DateTo       *time.Time           `json:"date_to"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
	SortBy       string               `json:"sort_by"`
	SortOrder    string               `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type AttemptStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	AverageScore      float64 `json:"average_score"`
	AveragePercentage float64 `json:"average_percentage"`
	HighestPercentage float64 `json:"highest_percentage"`
	LowestPercentage  float64 `json:"lowest_percentage"`
}

// IsNotFoundError reports whether err is the store's record-not-found
// condition.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
