package services

import (
	"sort"

	"github.com/brightclass/assessment-delivery/internal/adaptive"
	"github.com/brightclass/assessment-delivery/internal/models"
)

// ===== RESPONSE MAPPING =====

func toAttemptResponse(attempt *models.AssessmentAttempt) *AttemptResponse {
	assessment := &attempt.Assessment

	questions := make([]QuestionView, 0, len(assessment.Questions))
	for i := range assessment.Questions {
		q := &assessment.Questions[i]
		questions = append(questions, QuestionView{
			ID:      q.ID,
			Type:    q.Type,
			Order:   q.Order,
			Text:    q.Text,
			Options: q.OptionList(),
			Points:  q.Points,
			Hint:    q.Hint,
		})
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].Order < questions[j].Order
	})

	answers := make([]AnswerView, 0, len(attempt.Answers))
	for _, a := range attempt.Answers {
		answers = append(answers, AnswerView{
			QuestionID: a.QuestionID,
			Value:      a.Value,
			TimeSpent:  a.TimeSpent,
		})
	}

	return &AttemptResponse{
		ID:                   attempt.ID,
		AssessmentID:         attempt.AssessmentID,
		AssessmentTitle:      assessment.Title,
		Subject:              attempt.Subject,
		Grade:                attempt.Grade,
		StudentID:            attempt.StudentID,
		StudentName:          attempt.StudentName,
		Status:               attempt.Status,
		Score:                attempt.Score,
		TotalPoints:          attempt.TotalPoints,
		TimeRemaining:        attempt.TimeRemaining,
		CurrentQuestionIndex: attempt.CurrentQuestionIndex,
		StartedAt:            attempt.StartedAt,
		Deadline:             attempt.Deadline,
		LastSavedAt:          attempt.LastSavedAt,
		Questions:            questions,
		Answers:              answers,
	}
}

func toResultsResponse(attempt *models.AssessmentAttempt) *ResultsResponse {
	assessment := &attempt.Assessment

	answers := make([]ResultAnswer, 0, len(assessment.Questions))
	for i := range assessment.Questions {
		q := &assessment.Questions[i]
		entry := ResultAnswer{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			Type:          q.Type,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
			MatchMethod:   models.MatchNone,
		}
		if a := attempt.AnswerFor(q.ID); a != nil {
			entry.Value = a.Value
			entry.IsCorrect = a.IsCorrect
			entry.PointsAwarded = a.PointsAwarded
			entry.Similarity = a.Similarity
			entry.MatchMethod = a.MatchMethod
			entry.TimeSpent = a.TimeSpent
		}
		answers = append(answers, entry)
	}
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].QuestionID < answers[j].QuestionID
	})

	endReason := ""
	if attempt.EndReason != nil {
		endReason = *attempt.EndReason
	}

	return &ResultsResponse{
		AttemptID:       attempt.ID,
		AssessmentID:    attempt.AssessmentID,
		AssessmentTitle: assessment.Title,
		StudentID:       attempt.StudentID,
		StudentName:     attempt.StudentName,
		Score:           attempt.Score,
		TotalPoints:     attempt.TotalPoints,
		Percentage:      attempt.Percentage,
		EndReason:       endReason,
		StartedAt:       attempt.StartedAt,
		CompletedAt:     attempt.CompletedAt,
		Ability:         adaptive.Estimate(attempt.Answers),
		Answers:         answers,
	}
}

func findQuestion(assessment *models.Assessment, questionID uint) *models.Question {
	for i := range assessment.Questions {
		if assessment.Questions[i].ID == questionID {
			return &assessment.Questions[i]
		}
	}
	return nil
}
