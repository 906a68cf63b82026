package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightclass/assessment-delivery/internal/models"
	"github.com/brightclass/assessment-delivery/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.AssessmentAttempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Preload("Answers").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Preload("Answers").
		Preload("Assessment").
		Preload("Assessment.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\" ASC, questions.id ASC")
		}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	attempt.Assessment.ComputeTotals()
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.AssessmentAttempt) error {
	return a.db.WithContext(ctx).Omit("Answers", "Assessment").Save(attempt).Error
}

func (a *AttemptPostgreSQL) Delete(ctx context.Context, id uint) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("attempt_id = ?", id).Delete(&models.StudentAnswer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AssessmentAttempt{}, id).Error
	})
}

// Upsert writes the full attempt snapshot. The attempt row is saved whole and
// every answer upserted on its (attempt, question) unique key, so repeated
// saves of the same snapshot are idempotent.
func (a *AttemptPostgreSQL) Upsert(ctx context.Context, attempt *models.AssessmentAttempt) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Answers", "Assessment").Save(attempt).Error; err != nil {
			return err
		}
		for i := range attempt.Answers {
			answer := &attempt.Answers[i]
			answer.AttemptID = attempt.ID
			if err := upsertAnswer(tx, answer); err != nil {
				return fmt.Errorf("failed to upsert answer for question %d: %w", answer.QuestionID, err)
			}
		}
		return nil
	})
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.AssessmentAttempt, int64, error) {
	var attempts []*models.AssessmentAttempt
	var total int64

	query := a.db.WithContext(ctx).Model(&models.AssessmentAttempt{})
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.applyPaginationAndSort(query, filters)
	if err := query.Preload("Answers").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) GetByStudentAndAssessment(ctx context.Context, studentID string, assessmentID uint) ([]*models.AssessmentAttempt, error) {
	var attempts []*models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Where("student_id = ? AND assessment_id = ?", studentID, assessmentID).
		Preload("Answers").
		Order("started_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, studentID string, assessmentID uint) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Where("student_id = ? AND assessment_id = ? AND status = ?",
			studentID, assessmentID, models.AttemptInProgress).
		Preload("Answers").
		Order("started_at DESC").
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetCompletedByAssessment(ctx context.Context, assessmentID uint) ([]*models.AssessmentAttempt, error) {
	var attempts []*models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Where("assessment_id = ? AND status = ?", assessmentID, models.AttemptCompleted).
		Preload("Answers").
		Order("completed_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) UpdateTimeRemaining(ctx context.Context, id uint, timeRemaining int) error {
	if timeRemaining < 0 {
		timeRemaining = 0
	}
	now := time.Now()
	return a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"time_remaining": timeRemaining,
			"last_saved_at":  &now,
		}).Error
}

func (a *AttemptPostgreSQL) GetExpiredAttempts(ctx context.Context, cutoff time.Time) ([]*models.AssessmentAttempt, error) {
	var attempts []*models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", models.AttemptInProgress, cutoff).
		Preload("Answers").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) GetStats(ctx context.Context, assessmentID uint) (*repositories.AttemptStats, error) {
	stats := &repositories.AttemptStats{}

	var total int64
	if err := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("assessment_id = ?", assessmentID).
		Count(&total).Error; err != nil {
		return nil, err
	}
	stats.TotalAttempts = int(total)

	row := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("assessment_id = ? AND status = ?", assessmentID, models.AttemptCompleted).
		Select("COUNT(*), COALESCE(AVG(score), 0), COALESCE(AVG(percentage), 0), COALESCE(MAX(percentage), 0), COALESCE(MIN(percentage), 0)").
		Row()
	if err := row.Scan(&stats.CompletedAttempts, &stats.AverageScore,
		&stats.AveragePercentage, &stats.HighestPercentage, &stats.LowestPercentage); err != nil {
		return nil, err
	}
	return stats, nil
}

func (a *AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.AssessmentID != nil {
		query = query.Where("assessment_id = ?", *filters.AssessmentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}

func (a *AttemptPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "started_at", "completed_at", "percentage", "score":
	default:
		sortBy = "started_at"
	}
	sortOrder := "DESC"
	if filters.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}

// ===== ANSWERS =====

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (r *AnswerPostgreSQL) Upsert(ctx context.Context, answer *models.StudentAnswer) error {
	return upsertAnswer(r.db.WithContext(ctx), answer)
}

func (r *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.StudentAnswer, error) {
	var answers []*models.StudentAnswer
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("updated_at ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.StudentAnswer, error) {
	var answer models.StudentAnswer
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *AnswerPostgreSQL) DeleteByAttempt(ctx context.Context, attemptID uint) error {
	return r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Delete(&models.StudentAnswer{}).Error
}

// upsertAnswer creates or overwrites the single answer row for the question,
// keyed by the (attempt_id, question_id) unique index.
func upsertAnswer(db *gorm.DB, answer *models.StudentAnswer) error {
	var existing models.StudentAnswer
	err := db.Where("attempt_id = ? AND question_id = ?", answer.AttemptID, answer.QuestionID).
		First(&existing).Error
	switch {
	case err == nil:
		answer.ID = existing.ID
		answer.CreatedAt = existing.CreatedAt
		return db.Save(answer).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"value", "is_correct", "points_awarded", "similarity", "match_method", "time_spent", "updated_at",
			}),
		}).Create(answer).Error
	default:
		return err
	}
}
