package repositories

import (
	"context"
	"fmt"

	"github.com/brightclass/assessment-delivery/internal/models"
)

// AttemptStore adapts AttemptRepository to the delivery session's store
// contract: load-by-pair returning nil when absent, full-snapshot upsert,
// finalize as a plain save of the completed snapshot.
type AttemptStore struct {
	attempts AttemptRepository
}

func NewAttemptStore(attempts AttemptRepository) *AttemptStore {
	return &AttemptStore{attempts: attempts}
}

func (s *AttemptStore) Load(ctx context.Context, studentID string, assessmentID uint) (*models.AssessmentAttempt, error) {
	attempt, err := s.attempts.GetActiveAttempt(ctx, studentID, assessmentID)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load active attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) Save(ctx context.Context, attempt *models.AssessmentAttempt) error {
	return s.attempts.Upsert(ctx, attempt)
}

func (s *AttemptStore) Finalize(ctx context.Context, attempt *models.AssessmentAttempt) error {
	return s.attempts.Upsert(ctx, attempt)
}
