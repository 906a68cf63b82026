package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of delivery events
type EventType string

const (
	// Attempt lifecycle events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventAttemptExpired   EventType = "attempt.expired"

	// Assessment events
	EventAssessmentPublished EventType = "assessment.published"
	EventAssessmentArchived  EventType = "assessment.archived"
)

// AttemptEvent is the base event structure for all delivery events
type AttemptEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Attempt event payloads

type AttemptStartedEvent struct {
	AttemptID       uint      `json:"attempt_id"`
	AssessmentID    uint      `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title"`
	StudentID       string    `json:"student_id"`
	StartedAt       time.Time `json:"started_at"`
	Duration        int       `json:"duration"` // minutes
}

type AttemptSubmittedEvent struct {
	AttemptID       uint      `json:"attempt_id"`
	AssessmentID    uint      `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title"`
	StudentID       string    `json:"student_id"`
	SubmittedAt     time.Time `json:"submitted_at"`
	Score           int       `json:"score"`
	TotalPoints     int       `json:"total_points"`
	Percentage      float64   `json:"percentage"`
	EndReason       string    `json:"end_reason"`
}

type AttemptExpiredEvent struct {
	AttemptID       uint      `json:"attempt_id"`
	AssessmentID    uint      `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title"`
	StudentID       string    `json:"student_id"`
	ExpiredAt       time.Time `json:"expired_at"`
	Score           int       `json:"score"`
	Percentage      float64   `json:"percentage"`
}

// Assessment event payloads

type AssessmentPublishedEvent struct {
	AssessmentID    uint   `json:"assessment_id"`
	AssessmentTitle string `json:"assessment_title"`
	Subject         string `json:"subject"`
	Grade           string `json:"grade"`
	Duration        int    `json:"duration"` // minutes
	QuestionsCount  int    `json:"questions_count"`
	CreatedBy       string `json:"created_by"`
}

// Event factory functions

func NewAttemptStartedEvent(attemptID, assessmentID uint, title, studentID string, startedAt time.Time, duration int) *AttemptEvent {
	return newEvent(EventAttemptStarted, AttemptStartedEvent{
		AttemptID:       attemptID,
		AssessmentID:    assessmentID,
		AssessmentTitle: title,
		StudentID:       studentID,
		StartedAt:       startedAt,
		Duration:        duration,
	})
}

func NewAttemptSubmittedEvent(attemptID, assessmentID uint, title, studentID string, submittedAt time.Time, score, totalPoints int, percentage float64, endReason string) *AttemptEvent {
	return newEvent(EventAttemptSubmitted, AttemptSubmittedEvent{
		AttemptID:       attemptID,
		AssessmentID:    assessmentID,
		AssessmentTitle: title,
		StudentID:       studentID,
		SubmittedAt:     submittedAt,
		Score:           score,
		TotalPoints:     totalPoints,
		Percentage:      percentage,
		EndReason:       endReason,
	})
}

func NewAttemptExpiredEvent(attemptID, assessmentID uint, title, studentID string, expiredAt time.Time, score int, percentage float64) *AttemptEvent {
	return newEvent(EventAttemptExpired, AttemptExpiredEvent{
		AttemptID:       attemptID,
		AssessmentID:    assessmentID,
		AssessmentTitle: title,
		StudentID:       studentID,
		ExpiredAt:       expiredAt,
		Score:           score,
		Percentage:      percentage,
	})
}

func NewAssessmentPublishedEvent(assessmentID uint, title, subject, grade string, duration, questionsCount int, createdBy string) *AttemptEvent {
	return newEvent(EventAssessmentPublished, AssessmentPublishedEvent{
		AssessmentID:    assessmentID,
		AssessmentTitle: title,
		Subject:         subject,
		Grade:           grade,
		Duration:        duration,
		QuestionsCount:  questionsCount,
		CreatedBy:       createdBy,
	})
}

func newEvent(eventType EventType, data interface{}) *AttemptEvent {
	return &AttemptEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "assessment-delivery",
		Version:   "1.0",
		Data:      data,
	}
}
