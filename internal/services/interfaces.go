package services

import (
	"context"
	"time"

	"github.com/brightclass/assessment-delivery/internal/adaptive"
	"github.com/brightclass/assessment-delivery/internal/models"
	"github.com/brightclass/assessment-delivery/internal/repositories"
)

// ===== SERVICE INTERFACES =====

// AttemptService drives the attempt lifecycle: start or resume, answer
// submission with immediate scoring, position and timer sync, and
// finalization by submit or timeout.
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest) (*AttemptResponse, error)
	GetByID(ctx context.Context, attemptID uint) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest) (*AnswerResponse, error)
	UpdatePosition(ctx context.Context, attemptID uint, req *UpdatePositionRequest) error
	Heartbeat(ctx context.Context, attemptID uint, req *HeartbeatRequest) (*HeartbeatResponse, error)
	Submit(ctx context.Context, attemptID uint) (*ResultsResponse, error)
	Results(ctx context.Context, attemptID uint) (*ResultsResponse, error)

	// HandleTimeout force-submits an attempt whose deadline passed. Used by
	// the expiry sweeper and by request paths that find a stale attempt.
	HandleTimeout(ctx context.Context, attemptID uint) error
}

// AssessmentService covers the authoring surface the delivery side needs:
// create, read, list, status transitions and deletion.
type AssessmentService interface {
	Create(ctx context.Context, req *CreateAssessmentRequest) (*models.Assessment, error)
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.AssessmentStatus) error
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context, id uint) (*repositories.AttemptStats, error)
}

// ExportService renders completed attempt results for download.
type ExportService interface {
	ExportResults(ctx context.Context, assessmentID uint, format string) (*ExportResult, error)
}

// ===== REQUEST DTOS =====

type StartAttemptRequest struct {
	AssessmentID uint   `json:"assessment_id" validate:"required"`
	StudentID    string `json:"student_id" validate:"required,max=255"`
	StudentName  string `json:"student_name" validate:"omitempty,max=200"`
}

type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Value      string `json:"value"`
	TimeSpent  int    `json:"time_spent" validate:"omitempty,min=0"`
}

type UpdatePositionRequest struct {
	CurrentQuestionIndex *int `json:"current_question_index" validate:"required,min=0"`
}

type HeartbeatRequest struct {
	TimeRemaining *int `json:"time_remaining" validate:"required"`
}

type CreateAssessmentRequest struct {
	Title     string                  `json:"title" validate:"required,min=1,max=200"`
	Subject   string                  `json:"subject" validate:"required,max=100"`
	Grade     string                  `json:"grade" validate:"required,max=20"`
	Duration  int                     `json:"duration" validate:"required,min=1,max=300"` // minutes
	CreatedBy string                  `json:"created_by" validate:"omitempty,max=255"`
	Questions []CreateQuestionRequest `json:"questions" validate:"omitempty,dive"`
}

type CreateQuestionRequest struct {
	Type                models.QuestionType `json:"type" validate:"required,question_type"`
	Text                string              `json:"text" validate:"required,min=1"`
	Options             []string            `json:"options" validate:"omitempty,min=2"`
	CorrectAnswer       string              `json:"correct_answer" validate:"required"`
	Points              int                 `json:"points" validate:"required,min=1,max=100"`
	Hint                *string             `json:"hint"`
	FuzzyMatching       bool                `json:"fuzzy_matching"`
	SimilarityThreshold *float64            `json:"similarity_threshold" validate:"omitempty,min=0,max=1"`
}

// ===== RESPONSE DTOS =====

// AttemptResponse is the in-progress view: full question list without the
// correct answers, plus the student's saved answers and position.
type AttemptResponse struct {
	ID                   uint                 `json:"id"`
	AssessmentID         uint                 `json:"assessment_id"`
	AssessmentTitle      string               `json:"assessment_title"`
	Subject              string               `json:"subject"`
	Grade                string               `json:"grade"`
	StudentID            string               `json:"student_id"`
	StudentName          string               `json:"student_name"`
	Status               models.AttemptStatus `json:"status"`
	Score                int                  `json:"score"`
	TotalPoints          int                  `json:"total_points"`
	TimeRemaining        int                  `json:"time_remaining"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	StartedAt            time.Time            `json:"started_at"`
	Deadline             *time.Time           `json:"deadline,omitempty"`
	LastSavedAt          *time.Time           `json:"last_saved_at,omitempty"`
	Resumed              bool                 `json:"resumed"`
	Questions            []QuestionView       `json:"questions"`
	Answers              []AnswerView         `json:"answers"`
}

// QuestionView is a question as shown to the student mid-attempt. The
// correct answer and matching configuration stay server-side.
type QuestionView struct {
	ID      uint                `json:"id"`
	Type    models.QuestionType `json:"type"`
	Order   int                 `json:"order"`
	Text    string              `json:"text"`
	Options []string            `json:"options,omitempty"`
	Points  int                 `json:"points"`
	Hint    *string             `json:"hint,omitempty"`
}

type AnswerView struct {
	QuestionID uint   `json:"question_id"`
	Value      string `json:"value"`
	TimeSpent  int    `json:"time_spent"`
}

// AnswerResponse is the immediate feedback for one submitted answer plus the
// attempt's running score.
type AnswerResponse struct {
	QuestionID    uint               `json:"question_id"`
	IsCorrect     bool               `json:"is_correct"`
	PointsAwarded int                `json:"points_awarded"`
	Similarity    *float64           `json:"similarity,omitempty"`
	MatchMethod   models.MatchMethod `json:"match_method"`
	Score         int                `json:"score"`
	Percentage    float64            `json:"percentage"`
	AnsweredCount int                `json:"answered_count"`
	Ability       adaptive.State     `json:"ability"`
}

type HeartbeatResponse struct {
	TimeRemaining int  `json:"time_remaining"`
	Warning       bool `json:"warning"`
	Critical      bool `json:"critical"`
	Expired       bool `json:"expired"`
}

// ResultsResponse is the post-completion view including per-question
// breakdown and the final ability estimate.
type ResultsResponse struct {
	AttemptID       uint           `json:"attempt_id"`
	AssessmentID    uint           `json:"assessment_id"`
	AssessmentTitle string         `json:"assessment_title"`
	StudentID       string         `json:"student_id"`
	StudentName     string         `json:"student_name"`
	Score           int            `json:"score"`
	TotalPoints     int            `json:"total_points"`
	Percentage      float64        `json:"percentage"`
	EndReason       string         `json:"end_reason"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Ability         adaptive.State `json:"ability"`
	Answers         []ResultAnswer `json:"answers"`
}

// ResultAnswer reveals the correct answer; it only appears after completion.
type ResultAnswer struct {
	QuestionID    uint                `json:"question_id"`
	QuestionText  string              `json:"question_text"`
	Type          models.QuestionType `json:"type"`
	Value         string              `json:"value"`
	CorrectAnswer string              `json:"correct_answer"`
	IsCorrect     bool                `json:"is_correct"`
	Points        int                 `json:"points"`
	PointsAwarded int                 `json:"points_awarded"`
	Similarity    *float64            `json:"similarity,omitempty"`
	MatchMethod   models.MatchMethod  `json:"match_method"`
	TimeSpent     int                 `json:"time_spent"`
}

// ExportResult is a rendered results file ready to stream to the client.
type ExportResult struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}
