package postgres

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/brightclass/assessment-delivery/internal/models"
	"github.com/brightclass/assessment-delivery/internal/repositories"
)

var dbCounter atomic.Int64

func newTestDB(t *testing.T) repositories.Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:repos%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Assessment{},
		&models.Question{},
		&models.AssessmentAttempt{},
		&models.StudentAnswer{},
	))
	return NewRepository(db)
}

func seedAssessment(t *testing.T, repo repositories.Repository, status models.AssessmentStatus) *models.Assessment {
	t.Helper()
	assessment := &models.Assessment{
		Title:     "Math Check",
		Subject:   "Math",
		Grade:     "4",
		Duration:  15,
		Status:    status,
		CreatedBy: "teacher-1",
		Version:   1,
		Questions: []models.Question{
			{Type: models.MultipleChoice, Order: 0, Text: "2+2?", CorrectAnswer: "4", Points: 2},
			{Type: models.ShortAnswer, Order: 1, Text: "Speed unit?", CorrectAnswer: "m/s", Points: 3},
		},
	}
	require.NoError(t, repo.Assessment().Create(context.Background(), assessment))
	return assessment
}

func seedAttempt(t *testing.T, repo repositories.Repository, assessmentID uint, studentID string) *models.AssessmentAttempt {
	t.Helper()
	deadline := time.Now().Add(15 * time.Minute)
	attempt := &models.AssessmentAttempt{
		AssessmentID:  assessmentID,
		StudentID:     studentID,
		Status:        models.AttemptInProgress,
		TotalPoints:   5,
		TimeRemaining: 15 * 60,
		StartedAt:     time.Now(),
		Deadline:      &deadline,
	}
	require.NoError(t, repo.Attempt().Create(context.Background(), attempt))
	return attempt
}

// ===== ASSESSMENTS =====

func TestAssessmentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)

	assessment := seedAssessment(t, repo, models.StatusDraft)
	require.NotZero(t, assessment.ID)

	fetched, err := repo.Assessment().GetByIDWithQuestions(ctx, assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Math Check", fetched.Title)
	require.Len(t, fetched.Questions, 2)
	assert.Equal(t, 0, fetched.Questions[0].Order)

	_, err = repo.Assessment().GetByID(ctx, 999)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestAssessmentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)

	assessment := seedAssessment(t, repo, models.StatusDraft)

	require.NoError(t, repo.Assessment().UpdateStatus(ctx, assessment.ID, models.StatusActive))

	fetched, err := repo.Assessment().GetByID(ctx, assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, fetched.Status)
	assert.Equal(t, 2, fetched.Version, "status change bumps the version")

	err = repo.Assessment().UpdateStatus(ctx, 999, models.StatusActive)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestAssessmentRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)

	seedAssessment(t, repo, models.StatusDraft)
	active := seedAssessment(t, repo, models.StatusActive)

	status := models.StatusActive
	result, total, err := repo.Assessment().List(ctx, repositories.AssessmentFilters{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, result, 1)
	assert.Equal(t, active.ID, result[0].ID)

	_, total, err = repo.Assessment().List(ctx, repositories.AssessmentFilters{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "total counts beyond the page")
}

func TestAssessmentRepository_HasAttempts(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)

	assessment := seedAssessment(t, repo, models.StatusActive)

	has, err := repo.Assessment().HasAttempts(ctx, assessment.ID)
	require.NoError(t, err)
	assert.False(t, has)

	seedAttempt(t, repo, assessment.ID, "student-1")

	has, err = repo.Assessment().HasAttempts(ctx, assessment.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

// ===== ATTEMPTS =====

func TestAttemptRepository_GetActiveAttempt(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	assessment := seedAssessment(t, repo, models.StatusActive)

	_, err := repo.Attempt().GetActiveAttempt(ctx, "student-1", assessment.ID)
	assert.True(t, repositories.IsNotFoundError(err))

	attempt := seedAttempt(t, repo, assessment.ID, "student-1")

	active, err := repo.Attempt().GetActiveAttempt(ctx, "student-1", assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, active.ID)

	// Completed attempts no longer count as active.
	now := time.Now()
	reason := models.AttemptEndReasonSubmitted
	attempt.Status = models.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.EndReason = &reason
	require.NoError(t, repo.Attempt().Update(ctx, attempt))

	_, err = repo.Attempt().GetActiveAttempt(ctx, "student-1", assessment.ID)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestAttemptRepository_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	assessment := seedAssessment(t, repo, models.StatusActive)
	attempt := seedAttempt(t, repo, assessment.ID, "student-1")

	attempt.Answers = []models.StudentAnswer{
		{QuestionID: assessment.Questions[0].ID, Value: "4", IsCorrect: true, PointsAwarded: 2, MatchMethod: models.MatchExact},
	}
	attempt.Score = 2

	require.NoError(t, repo.Attempt().Upsert(ctx, attempt))
	require.NoError(t, repo.Attempt().Upsert(ctx, attempt))

	stored, err := repo.Attempt().GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Answers, 1)
	assert.Equal(t, 2, stored.Score)
}

func TestAnswerRepository_OneRowPerQuestion(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	assessment := seedAssessment(t, repo, models.StatusActive)
	attempt := seedAttempt(t, repo, assessment.ID, "student-1")
	questionID := assessment.Questions[0].ID

	first := &models.StudentAnswer{AttemptID: attempt.ID, QuestionID: questionID, Value: "5", MatchMethod: models.MatchNone}
	require.NoError(t, repo.Answer().Upsert(ctx, first))

	second := &models.StudentAnswer{AttemptID: attempt.ID, QuestionID: questionID, Value: "4", IsCorrect: true, PointsAwarded: 2, MatchMethod: models.MatchExact}
	require.NoError(t, repo.Answer().Upsert(ctx, second))

	answers, err := repo.Answer().GetByAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1, "resubmission overwrites, never appends")
	assert.Equal(t, "4", answers[0].Value)
	assert.True(t, answers[0].IsCorrect)
}

func TestAttemptRepository_GetExpiredAttempts(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	assessment := seedAssessment(t, repo, models.StatusActive)

	fresh := seedAttempt(t, repo, assessment.ID, "student-fresh")
	stale := seedAttempt(t, repo, assessment.ID, "student-stale")
	past := time.Now().Add(-time.Minute)
	stale.Deadline = &past
	require.NoError(t, repo.Attempt().Update(ctx, stale))

	// Completed attempts are never swept even with an old deadline.
	done := seedAttempt(t, repo, assessment.ID, "student-done")
	done.Deadline = &past
	done.Status = models.AttemptCompleted
	require.NoError(t, repo.Attempt().Update(ctx, done))

	expired, err := repo.Attempt().GetExpiredAttempts(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
	assert.NotEqual(t, fresh.ID, expired[0].ID)
}

func TestAttemptRepository_UpdateTimeRemaining(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	assessment := seedAssessment(t, repo, models.StatusActive)
	attempt := seedAttempt(t, repo, assessment.ID, "student-1")

	require.NoError(t, repo.Attempt().UpdateTimeRemaining(ctx, attempt.ID, 120))

	stored, err := repo.Attempt().GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, stored.TimeRemaining)
	assert.NotNil(t, stored.LastSavedAt)

	// Negative input clamps to zero.
	require.NoError(t, repo.Attempt().UpdateTimeRemaining(ctx, attempt.ID, -10))
	stored, err = repo.Attempt().GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TimeRemaining)
}

func TestAttemptRepository_GetStats(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	assessment := seedAssessment(t, repo, models.StatusActive)

	finish := func(studentID string, score int, percentage float64) {
		attempt := seedAttempt(t, repo, assessment.ID, studentID)
		now := time.Now()
		reason := models.AttemptEndReasonSubmitted
		attempt.Status = models.AttemptCompleted
		attempt.Score = score
		attempt.Percentage = percentage
		attempt.CompletedAt = &now
		attempt.EndReason = &reason
		require.NoError(t, repo.Attempt().Update(ctx, attempt))
	}
	finish("student-1", 5, 100)
	finish("student-2", 2, 40)
	seedAttempt(t, repo, assessment.ID, "student-3")

	stats, err := repo.Attempt().GetStats(ctx, assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalAttempts)
	assert.Equal(t, 2, stats.CompletedAttempts)
	assert.InDelta(t, 3.5, stats.AverageScore, 0.001)
	assert.InDelta(t, 70.0, stats.AveragePercentage, 0.001)
	assert.InDelta(t, 100.0, stats.HighestPercentage, 0.001)
	assert.InDelta(t, 40.0, stats.LowestPercentage, 0.001)
}

func TestAttemptRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	assessment := seedAssessment(t, repo, models.StatusActive)

	seedAttempt(t, repo, assessment.ID, "student-1")
	seedAttempt(t, repo, assessment.ID, "student-2")

	studentID := "student-1"
	result, total, err := repo.Attempt().List(ctx, repositories.AttemptFilters{StudentID: &studentID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, result, 1)
	assert.Equal(t, "student-1", result[0].StudentID)
}
