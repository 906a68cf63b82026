package repositories

import (
	"context"
	"time"

	"github.com/brightclass/assessment-delivery/internal/models"
)

// AttemptRepository covers assessment attempt persistence.
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, attempt *models.AssessmentAttempt) error
	GetByID(ctx context.Context, id uint) (*models.AssessmentAttempt, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.AssessmentAttempt, error) // Include answers, assessment, questions
	Update(ctx context.Context, attempt *models.AssessmentAttempt) error
	Delete(ctx context.Context, id uint) error

	// Upsert stores the full attempt snapshot including answers. Idempotent:
	// storing the same snapshot twice yields the same state.
	Upsert(ctx context.Context, attempt *models.AssessmentAttempt) error

	// Query operations
	List(ctx context.Context, filters AttemptFilters) ([]*models.AssessmentAttempt, int64, error)
	GetByStudentAndAssessment(ctx context.Context, studentID string, assessmentID uint) ([]*models.AssessmentAttempt, error)
	GetActiveAttempt(ctx context.Context, studentID string, assessmentID uint) (*models.AssessmentAttempt, error)
	GetCompletedByAssessment(ctx context.Context, assessmentID uint) ([]*models.AssessmentAttempt, error)

	// Time management
	UpdateTimeRemaining(ctx context.Context, id uint, timeRemaining int) error
	GetExpiredAttempts(ctx context.Context, cutoff time.Time) ([]*models.AssessmentAttempt, error)

	// Statistics
	GetStats(ctx context.Context, assessmentID uint) (*AttemptStats, error)
}

// AnswerRepository covers per-question student answers.
type AnswerRepository interface {
	Upsert(ctx context.Context, answer *models.StudentAnswer) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.StudentAnswer, error)
	GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.StudentAnswer, error)
	DeleteByAttempt(ctx context.Context, attemptID uint) error
}
