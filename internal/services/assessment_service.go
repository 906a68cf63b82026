package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/brightclass/assessment-delivery/internal/cache"
	"github.com/brightclass/assessment-delivery/internal/events"
	"github.com/brightclass/assessment-delivery/internal/models"
	"github.com/brightclass/assessment-delivery/internal/repositories"
	"github.com/brightclass/assessment-delivery/internal/utils"
)

const (
	assessmentCacheTTL = 5 * time.Minute
	// Stats change as attempts complete, so they lag by at most this TTL.
	statsCacheTTL = time.Minute
)

type assessmentService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewAssessmentService(repo repositories.Repository, cacheService cache.CacheService, publisher events.EventPublisher, logger *slog.Logger, validator *utils.Validator) AssessmentService {
	return &assessmentService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest) (*models.Assessment, error) {
	s.logger.Info("Creating assessment", "title", req.Title, "created_by", req.CreatedBy)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	assessment := &models.Assessment{
		Title:     req.Title,
		Subject:   req.Subject,
		Grade:     req.Grade,
		Duration:  req.Duration,
		Status:    models.StatusDraft,
		CreatedBy: req.CreatedBy,
		Version:   1,
	}

	for i, qr := range req.Questions {
		question, err := buildQuestion(qr, i)
		if err != nil {
			return nil, err
		}
		assessment.Questions = append(assessment.Questions, *question)
	}

	if err := s.repo.Assessment().Create(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}
	assessment.ComputeTotals()

	s.logger.Info("Assessment created", "assessment_id", assessment.ID, "questions", assessment.QuestionsCount)
	return assessment, nil
}

func (s *assessmentService) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	cacheKey := assessmentCacheKey(id)
	if s.cache != nil {
		var cached models.Assessment
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !cache.IsCacheMiss(err) {
			s.logger.Warn("Assessment cache read failed", "assessment_id", id, "error", err)
		}
	}

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	assessment.ComputeTotals()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, assessment, assessmentCacheTTL); err != nil {
			s.logger.Warn("Assessment cache write failed", "assessment_id", id, "error", err)
		}
	}
	return assessment, nil
}

func (s *assessmentService) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	assessments, total, err := s.repo.Assessment().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	for _, a := range assessments {
		a.ComputeTotals()
	}
	return assessments, total, nil
}

// ===== STATUS TRANSITIONS =====

// UpdateStatus moves an assessment along Draft -> Active -> Archived.
// Backward transitions are rejected; content is frozen once Active.
func (s *assessmentService) UpdateStatus(ctx context.Context, id uint, status models.AssessmentStatus) error {
	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to get assessment: %w", err)
	}

	if !isValidTransition(assessment.Status, status) {
		return ErrAssessmentInvalidStatus
	}
	if status == models.StatusActive && len(assessment.Questions) == 0 {
		return ErrAssessmentHasNoQuestions
	}

	if err := s.repo.Assessment().UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	s.invalidate(ctx, id)

	if status == models.StatusActive {
		assessment.ComputeTotals()
		s.publishEvent(ctx, events.NewAssessmentPublishedEvent(
			assessment.ID, assessment.Title, assessment.Subject, assessment.Grade,
			assessment.Duration, assessment.QuestionsCount, assessment.CreatedBy))
	}

	s.logger.Info("Assessment status updated", "assessment_id", id, "status", status)
	return nil
}

func (s *assessmentService) Delete(ctx context.Context, id uint) error {
	hasAttempts, err := s.repo.Assessment().HasAttempts(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if hasAttempts {
		return ErrAssessmentNotDeletable
	}

	if err := s.repo.Assessment().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	s.invalidate(ctx, id)

	s.logger.Info("Assessment deleted", "assessment_id", id)
	return nil
}

func (s *assessmentService) Stats(ctx context.Context, id uint) (*repositories.AttemptStats, error) {
	cacheKey := assessmentStatsCacheKey(id)
	if s.cache != nil {
		var cached repositories.AttemptStats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !cache.IsCacheMiss(err) {
			s.logger.Warn("Stats cache read failed", "assessment_id", id, "error", err)
		}
	}

	if _, err := s.repo.Assessment().GetByID(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	stats, err := s.repo.Attempt().GetStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt stats: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, statsCacheTTL); err != nil {
			s.logger.Warn("Stats cache write failed", "assessment_id", id, "error", err)
		}
	}
	return stats, nil
}

// ===== INTERNAL HELPERS =====

func buildQuestion(req CreateQuestionRequest, order int) (*models.Question, error) {
	question := &models.Question{
		Type:                req.Type,
		Order:               order,
		Text:                req.Text,
		CorrectAnswer:       req.CorrectAnswer,
		Points:              req.Points,
		Hint:                req.Hint,
		FuzzyMatching:       req.FuzzyMatching,
		SimilarityThreshold: req.SimilarityThreshold,
	}

	if req.Type == models.MultipleChoice {
		if len(req.Options) < 2 {
			return nil, NewValidationError("options", "multiple choice questions need at least two options", req.Options)
		}
		raw, err := json.Marshal(req.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to encode options: %w", err)
		}
		question.Options = datatypes.JSON(raw)
	}

	return question, nil
}

func isValidTransition(from, to models.AssessmentStatus) bool {
	switch from {
	case models.StatusDraft:
		return to == models.StatusActive
	case models.StatusActive:
		return to == models.StatusArchived
	default:
		return false
	}
}

func assessmentCacheKey(id uint) string {
	return fmt.Sprintf("assessment:%d", id)
}

func assessmentStatsCacheKey(id uint) string {
	return assessmentCacheKey(id) + ":stats"
}

// invalidate drops the assessment payload and every key derived from it.
func (s *assessmentService) invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, assessmentCacheKey(id)); err != nil {
		s.logger.Warn("Assessment cache invalidation failed", "assessment_id", id, "error", err)
	}
	if err := s.cache.DeletePattern(ctx, assessmentCacheKey(id)+":*"); err != nil {
		s.logger.Warn("Assessment cache pattern invalidation failed", "assessment_id", id, "error", err)
	}
}

func (s *assessmentService) publishEvent(ctx context.Context, event *events.AttemptEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAttemptEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
