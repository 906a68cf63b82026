package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/brightclass/assessment-delivery/internal/adaptive"
	"github.com/brightclass/assessment-delivery/internal/matching"
	"github.com/brightclass/assessment-delivery/internal/models"
)

var ErrNoActiveAttempt = errors.New("no active attempt")

// Store is the persistence boundary of a delivery session. Save is a full
// idempotent upsert keyed by attempt id; Load returns nil without error when
// the student has no attempt for the assessment yet.
type Store interface {
	Load(ctx context.Context, studentID string, assessmentID uint) (*models.AssessmentAttempt, error)
	Save(ctx context.Context, attempt *models.AssessmentAttempt) error
	Finalize(ctx context.Context, attempt *models.AssessmentAttempt) error
}

// Session owns the authoritative in-memory attempt for one student taking one
// assessment. It composes the answer matcher and the store; the timer and
// autosaver attach from outside via UpdateTimeRemaining and Snapshot.
type Session struct {
	mu         sync.Mutex
	assessment *models.Assessment
	attempt    *models.AssessmentAttempt
	matcher    *matching.Matcher
	store      Store
	logger     *slog.Logger
}

func NewSession(assessment *models.Assessment, store Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	assessment.ComputeTotals()
	return &Session{
		assessment: assessment,
		matcher:    matching.New(),
		store:      store,
		logger:     logger,
	}
}

// Initialize loads the student's existing attempt or creates a fresh one with
// the full time budget and persists it immediately.
func (s *Session) Initialize(ctx context.Context, studentID, studentName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Load(ctx, studentID, s.assessment.ID)
	if err != nil {
		return fmt.Errorf("failed to load attempt: %w", err)
	}
	if existing != nil {
		s.attempt = existing
		s.logger.Info("resumed existing attempt",
			"attempt_id", existing.ID,
			"student_id", studentID,
			"assessment_id", s.assessment.ID)
		return nil
	}

	now := time.Now()
	deadline := now.Add(time.Duration(s.assessment.Duration) * time.Minute)
	attempt := &models.AssessmentAttempt{
		AssessmentID:  s.assessment.ID,
		StudentID:     studentID,
		StudentName:   studentName,
		Grade:         s.assessment.Grade,
		Subject:       s.assessment.Subject,
		Status:        models.AttemptInProgress,
		TotalPoints:   s.assessment.TotalPoints,
		TimeRemaining: s.assessment.Duration * 60,
		StartedAt:     now,
		Deadline:      &deadline,
	}
	if err := s.store.Save(ctx, attempt); err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	s.attempt = attempt

	s.logger.Info("started new attempt",
		"student_id", studentID,
		"assessment_id", s.assessment.ID,
		"time_budget", attempt.TimeRemaining)
	return nil
}

// CurrentQuestion returns the question at the attempt's cursor, or nil when
// no attempt is active or the cursor is out of range.
func (s *Session) CurrentQuestion() *models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentQuestionLocked()
}

func (s *Session) currentQuestionLocked() *models.Question {
	if s.attempt == nil {
		return nil
	}
	idx := s.attempt.CurrentQuestionIndex
	if idx < 0 || idx >= len(s.assessment.Questions) {
		return nil
	}
	return &s.assessment.Questions[idx]
}

// SubmitAnswer grades the value against the current question, overwrites any
// prior answer for it, rederives score and percentage, persists, and returns
// the correctness as immediate feedback. Submitting with no current question
// or on a finished attempt is a no-op returning false.
func (s *Session) SubmitAnswer(ctx context.Context, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt == nil || s.attempt.Status != models.AttemptInProgress {
		return false
	}
	question := s.currentQuestionLocked()
	if question == nil {
		return false
	}

	res := s.matcher.Check(question, value)
	points := 0
	if res.IsCorrect {
		points = question.Points
	}

	if existing := s.attempt.AnswerFor(question.ID); existing != nil {
		existing.Value = value
		existing.IsCorrect = res.IsCorrect
		existing.PointsAwarded = points
		existing.Similarity = res.Similarity
		existing.MatchMethod = res.Method
		existing.UpdatedAt = time.Now()
	} else {
		s.attempt.Answers = append(s.attempt.Answers, models.StudentAnswer{
			AttemptID:     s.attempt.ID,
			QuestionID:    question.ID,
			Value:         value,
			IsCorrect:     res.IsCorrect,
			PointsAwarded: points,
			Similarity:    res.Similarity,
			MatchMethod:   res.Method,
		})
	}

	s.attempt.RecalculateScore()
	s.persistLocked(ctx)

	return res.IsCorrect
}

// GoToQuestion moves the cursor. Out-of-range indexes are silently rejected.
func (s *Session) GoToQuestion(ctx context.Context, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goToLocked(ctx, index)
}

func (s *Session) goToLocked(ctx context.Context, index int) bool {
	if s.attempt == nil || s.attempt.Status != models.AttemptInProgress {
		return false
	}
	if index < 0 || index >= len(s.assessment.Questions) {
		return false
	}
	s.attempt.CurrentQuestionIndex = index
	s.persistLocked(ctx)
	return true
}

func (s *Session) NextQuestion(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return false
	}
	return s.goToLocked(ctx, s.attempt.CurrentQuestionIndex+1)
}

func (s *Session) PreviousQuestion(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return false
	}
	return s.goToLocked(ctx, s.attempt.CurrentQuestionIndex-1)
}

func (s *Session) CanGoNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt != nil && s.attempt.CurrentQuestionIndex < len(s.assessment.Questions)-1
}

func (s *Session) CanGoPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt != nil && s.attempt.CurrentQuestionIndex > 0
}

func (s *Session) IsLastQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt != nil && s.attempt.CurrentQuestionIndex == len(s.assessment.Questions)-1
}

// UpdateTimeRemaining patches the attempt's clock and persists. Called by the
// timer's tick callback; negative values clamp to zero.
func (s *Session) UpdateTimeRemaining(ctx context.Context, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt == nil || s.attempt.Status != models.AttemptInProgress {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	s.attempt.TimeRemaining = seconds
	s.persistLocked(ctx)
}

// Submit finalizes the attempt manually. The caller stops the timer first.
// Submitting an already completed attempt is a no-op.
func (s *Session) Submit(ctx context.Context) error {
	return s.finalize(ctx, models.AttemptEndReasonSubmitted)
}

// Expire finalizes the attempt on timer expiry, forcing the clock to zero.
func (s *Session) Expire(ctx context.Context) error {
	s.mu.Lock()
	if s.attempt != nil {
		s.attempt.TimeRemaining = 0
	}
	s.mu.Unlock()
	return s.finalize(ctx, models.AttemptEndReasonTimeout)
}

func (s *Session) finalize(ctx context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt == nil {
		return ErrNoActiveAttempt
	}
	if s.attempt.Status == models.AttemptCompleted {
		return nil
	}

	s.attempt.RecalculateScore()
	s.attempt.Status = models.AttemptCompleted
	now := time.Now()
	s.attempt.CompletedAt = &now
	s.attempt.EndReason = &reason

	if err := s.store.Finalize(ctx, s.attempt); err != nil {
		return fmt.Errorf("failed to finalize attempt: %w", err)
	}

	s.logger.Info("attempt finalized",
		"attempt_id", s.attempt.ID,
		"score", s.attempt.Score,
		"percentage", s.attempt.Percentage,
		"end_reason", reason)
	return nil
}

// Progress reports the answered-question count and its share of the total.
func (s *Session) Progress() (answered int, percentage float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt == nil || len(s.assessment.Questions) == 0 {
		return 0, 0
	}
	answered = s.attempt.AnsweredCount()
	percentage = math.Round(100 * float64(answered) / float64(len(s.assessment.Questions)))
	return answered, percentage
}

// Adaptive recomputes the display-only ability estimate from the full answer
// list.
func (s *Session) Adaptive() adaptive.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt == nil {
		return adaptive.Estimate(nil)
	}
	return adaptive.Estimate(s.attempt.Answers)
}

// Attempt returns the authoritative attempt. The session stays the owner;
// callers treat it as read-only.
func (s *Session) Attempt() *models.AssessmentAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Snapshot is the autosaver's data accessor. It copies the attempt under the
// session lock so the flush can persist it while answers keep landing.
func (s *Session) Snapshot() *models.AssessmentAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt == nil {
		return nil
	}
	snap := *s.attempt
	snap.Answers = make([]models.StudentAnswer, len(s.attempt.Answers))
	copy(snap.Answers, s.attempt.Answers)
	return &snap
}

// persistLocked saves the attempt, stamping LastSavedAt. Save failures are
// logged and left to the autosaver's retry; the student keeps working on the
// in-memory state.
func (s *Session) persistLocked(ctx context.Context) {
	now := time.Now()
	s.attempt.LastSavedAt = &now
	if err := s.store.Save(ctx, s.attempt); err != nil {
		s.logger.Error("failed to persist attempt",
			"attempt_id", s.attempt.ID,
			"error", err)
	}
}
