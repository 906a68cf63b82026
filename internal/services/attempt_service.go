package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brightclass/assessment-delivery/internal/adaptive"
	"github.com/brightclass/assessment-delivery/internal/delivery"
	"github.com/brightclass/assessment-delivery/internal/events"
	"github.com/brightclass/assessment-delivery/internal/matching"
	"github.com/brightclass/assessment-delivery/internal/models"
	"github.com/brightclass/assessment-delivery/internal/repositories"
	"github.com/brightclass/assessment-delivery/internal/utils"
)

type attemptService struct {
	repo      repositories.Repository
	matcher   *matching.Matcher
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewAttemptService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *utils.Validator) AttemptService {
	return &attemptService{
		repo:      repo,
		matcher:   matching.New(),
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest) (*AttemptResponse, error) {
	s.logger.Info("Starting assessment attempt",
		"assessment_id", req.AssessmentID,
		"student_id", req.StudentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, req.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.Status != models.StatusActive {
		return nil, ErrAssessmentNotActive
	}
	if len(assessment.Questions) == 0 {
		return nil, ErrAssessmentHasNoQuestions
	}
	assessment.ComputeTotals()

	// Resume the active attempt when one exists; only expired ones are
	// closed out and replaced.
	existing, err := s.repo.Attempt().GetActiveAttempt(ctx, req.StudentID, req.AssessmentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up active attempt: %w", err)
	}
	if existing != nil {
		if existing.Deadline != nil && time.Now().After(*existing.Deadline) {
			if err := s.HandleTimeout(ctx, existing.ID); err != nil {
				return nil, err
			}
		} else {
			s.logger.Info("Resuming existing attempt", "attempt_id", existing.ID)
			full, err := s.repo.Attempt().GetByIDWithDetails(ctx, existing.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load attempt: %w", err)
			}
			resp := toAttemptResponse(full)
			resp.Resumed = true
			return resp, nil
		}
	}

	now := time.Now()
	deadline := now.Add(time.Duration(assessment.Duration) * time.Minute)
	attempt := &models.AssessmentAttempt{
		AssessmentID:  req.AssessmentID,
		StudentID:     req.StudentID,
		StudentName:   req.StudentName,
		Grade:         assessment.Grade,
		Subject:       assessment.Subject,
		Status:        models.AttemptInProgress,
		TotalPoints:   assessment.TotalPoints,
		TimeRemaining: assessment.Duration * 60,
		StartedAt:     now,
		Deadline:      &deadline,
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.publishEvent(ctx, events.NewAttemptStartedEvent(
		attempt.ID, assessment.ID, assessment.Title,
		attempt.StudentID, attempt.StartedAt, assessment.Duration))

	s.logger.Info("Assessment attempt started",
		"attempt_id", attempt.ID,
		"assessment_id", req.AssessmentID,
		"student_id", req.StudentID)

	attempt.Assessment = *assessment
	return toAttemptResponse(attempt), nil
}

func (s *attemptService) GetByID(ctx context.Context, attemptID uint) (*AttemptResponse, error) {
	attempt, err := s.getAttemptWithDetails(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return toAttemptResponse(attempt), nil
}

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest) (*AnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	attempt, err := s.getAttemptWithDetails(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(ctx, attempt); err != nil {
		return nil, err
	}

	question := findQuestion(&attempt.Assessment, req.QuestionID)
	if question == nil {
		return nil, ErrQuestionNotInAssessment
	}

	result := s.matcher.Check(question, req.Value)
	answer := models.StudentAnswer{
		AttemptID:   attempt.ID,
		QuestionID:  question.ID,
		Value:       req.Value,
		IsCorrect:   result.IsCorrect,
		MatchMethod: result.Method,
		Similarity:  result.Similarity,
		TimeSpent:   req.TimeSpent,
	}
	if result.IsCorrect {
		answer.PointsAwarded = question.Points
	}

	if err := s.repo.Answer().Upsert(ctx, &answer); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	// Keep the in-memory answer list current so the recomputed score and
	// ability estimate include this submission.
	if existing := attempt.AnswerFor(question.ID); existing != nil {
		*existing = answer
	} else {
		attempt.Answers = append(attempt.Answers, answer)
	}
	attempt.RecalculateScore()
	now := time.Now()
	attempt.LastSavedAt = &now

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt score: %w", err)
	}

	s.logger.Debug("Answer recorded",
		"attempt_id", attempt.ID,
		"question_id", question.ID,
		"correct", result.IsCorrect,
		"method", result.Method)

	return &AnswerResponse{
		QuestionID:    question.ID,
		IsCorrect:     result.IsCorrect,
		PointsAwarded: answer.PointsAwarded,
		Similarity:    result.Similarity,
		MatchMethod:   result.Method,
		Score:         attempt.Score,
		Percentage:    attempt.Percentage,
		AnsweredCount: attempt.AnsweredCount(),
		Ability:       adaptive.Estimate(attempt.Answers),
	}, nil
}

func (s *attemptService) UpdatePosition(ctx context.Context, attemptID uint, req *UpdatePositionRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	attempt, err := s.getAttemptWithDetails(ctx, attemptID)
	if err != nil {
		return err
	}
	if err := s.ensureActive(ctx, attempt); err != nil {
		return err
	}

	index := *req.CurrentQuestionIndex
	if index < 0 || index >= len(attempt.Assessment.Questions) {
		return NewBusinessRuleError("position_out_of_range",
			"current question index is outside the question list",
			map[string]interface{}{"index": index, "questions": len(attempt.Assessment.Questions)})
	}

	attempt.CurrentQuestionIndex = index
	now := time.Now()
	attempt.LastSavedAt = &now

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}

func (s *attemptService) Heartbeat(ctx context.Context, attemptID uint, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	remaining := *req.TimeRemaining
	if remaining < 0 {
		remaining = 0
	}

	// The server-side deadline wins over whatever the client reports.
	if attempt.Deadline != nil && time.Now().After(*attempt.Deadline) {
		remaining = 0
	}

	if remaining == 0 {
		if err := s.HandleTimeout(ctx, attempt.ID); err != nil {
			return nil, err
		}
		return &HeartbeatResponse{TimeRemaining: 0, Critical: true, Expired: true}, nil
	}

	if err := s.repo.Attempt().UpdateTimeRemaining(ctx, attempt.ID, remaining); err != nil {
		return nil, fmt.Errorf("failed to update time remaining: %w", err)
	}

	return &HeartbeatResponse{
		TimeRemaining: remaining,
		Warning:       remaining > delivery.CriticalThreshold && remaining <= delivery.WarningThreshold,
		Critical:      remaining <= delivery.CriticalThreshold,
	}, nil
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint) (*ResultsResponse, error) {
	attempt, err := s.getAttemptWithDetails(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	// Submitting twice returns the stored results instead of failing.
	if attempt.Status == models.AttemptCompleted {
		return toResultsResponse(attempt), nil
	}

	if err := s.finalize(ctx, attempt, models.AttemptEndReasonSubmitted); err != nil {
		return nil, err
	}
	return toResultsResponse(attempt), nil
}

func (s *attemptService) Results(ctx context.Context, attemptID uint) (*ResultsResponse, error) {
	attempt, err := s.getAttemptWithDetails(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptCompleted {
		return nil, ErrAttemptNotActive
	}
	return toResultsResponse(attempt), nil
}

func (s *attemptService) HandleTimeout(ctx context.Context, attemptID uint) error {
	attempt, err := s.getAttemptWithDetails(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status == models.AttemptCompleted {
		return nil
	}
	attempt.TimeRemaining = 0
	return s.finalize(ctx, attempt, models.AttemptEndReasonTimeout)
}

// ===== INTERNAL HELPERS =====

func (s *attemptService) getAttempt(ctx context.Context, attemptID uint) (*models.AssessmentAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) getAttemptWithDetails(ctx context.Context, attemptID uint) (*models.AssessmentAttempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	attempt.Assessment.ComputeTotals()
	return attempt, nil
}

// ensureActive rejects mutations on completed attempts and force-submits
// attempts whose server-side deadline has passed.
func (s *attemptService) ensureActive(ctx context.Context, attempt *models.AssessmentAttempt) error {
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptAlreadySubmitted
	}
	if attempt.Deadline != nil && time.Now().After(*attempt.Deadline) {
		if err := s.HandleTimeout(ctx, attempt.ID); err != nil {
			s.logger.Error("Failed to time out attempt", "attempt_id", attempt.ID, "error", err)
		}
		return ErrAttemptTimeExpired
	}
	return nil
}

func (s *attemptService) finalize(ctx context.Context, attempt *models.AssessmentAttempt, endReason string) error {
	attempt.RecalculateScore()
	now := time.Now()
	attempt.Status = models.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.LastSavedAt = &now
	attempt.EndReason = &endReason
	if endReason == models.AttemptEndReasonTimeout {
		attempt.TimeRemaining = 0
	}

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to finalize attempt: %w", err)
	}

	switch endReason {
	case models.AttemptEndReasonTimeout:
		s.publishEvent(ctx, events.NewAttemptExpiredEvent(
			attempt.ID, attempt.AssessmentID, attempt.Assessment.Title,
			attempt.StudentID, now, attempt.Score, attempt.Percentage))
	default:
		s.publishEvent(ctx, events.NewAttemptSubmittedEvent(
			attempt.ID, attempt.AssessmentID, attempt.Assessment.Title,
			attempt.StudentID, now, attempt.Score, attempt.TotalPoints,
			attempt.Percentage, endReason))
	}

	s.logger.Info("Attempt finalized",
		"attempt_id", attempt.ID,
		"end_reason", endReason,
		"score", attempt.Score,
		"percentage", attempt.Percentage)
	return nil
}

// publishEvent logs publish failures instead of failing the operation; event
// delivery is best effort.
func (s *attemptService) publishEvent(ctx context.Context, event *events.AttemptEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAttemptEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
