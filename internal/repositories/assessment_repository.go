package repositories

import (
	"context"

	"github.com/brightclass/assessment-delivery/internal/models"
)

// AssessmentRepository covers assessment and question reference data. The
// delivery core only reads; writes exist for authoring and seeding.
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Assessment, error)
	Update(ctx context.Context, assessment *models.Assessment) error
	UpdateStatus(ctx context.Context, id uint, status models.AssessmentStatus) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	HasAttempts(ctx context.Context, id uint) (bool, error)
}
