package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brightclass/assessment-delivery/internal/models"
)

func exportFixture(t *testing.T) (ExportService, uint) {
	t.Helper()
	ctx := context.Background()

	repo := newTestRepo(t)
	assessment := seedActiveAssessment(t, repo)
	attempts := NewAttemptService(repo, newTestPublisher(), newTestLogger(), newTestValidator())

	full, err := repo.Assessment().GetByIDWithQuestions(ctx, assessment.ID)
	require.NoError(t, err)

	attempt, err := attempts.Start(ctx, &StartAttemptRequest{
		AssessmentID: assessment.ID,
		StudentID:    "student-1",
		StudentName:  "Alice Nguyen",
	})
	require.NoError(t, err)
	_, err = attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: full.Questions[0].ID, Value: "Paris"})
	require.NoError(t, err)
	_, err = attempts.Submit(ctx, attempt.ID)
	require.NoError(t, err)

	// An in-progress attempt must not leak into the export.
	_, err = attempts.Start(ctx, &StartAttemptRequest{AssessmentID: assessment.ID, StudentID: "student-2"})
	require.NoError(t, err)

	return NewExportService(repo, newTestLogger()), assessment.ID
}

func TestExportService_CSV(t *testing.T) {
	svc, assessmentID := exportFixture(t)

	result, err := svc.ExportResults(context.Background(), assessmentID, ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, result.FileName, ".csv")

	records, err := csv.NewReader(bytes.NewReader(result.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "header plus one completed attempt")

	assert.Equal(t, resultHeaders(), records[0])
	row := records[1]
	assert.Equal(t, "student-1", row[0])
	assert.Equal(t, "Alice Nguyen", row[1])
	assert.Equal(t, "3", row[2])
	assert.Equal(t, "10", row[3])
	assert.Equal(t, "30", row[4])
	assert.Equal(t, models.AttemptEndReasonSubmitted, row[6])
}

func TestExportService_Excel(t *testing.T) {
	svc, assessmentID := exportFixture(t)

	result, err := svc.ExportResults(context.Background(), assessmentID, ExportFormatExcel)
	require.NoError(t, err)
	assert.Contains(t, result.FileName, ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Student ID", rows[0][0])
	assert.Equal(t, "student-1", rows[1][0])
}

func TestExportService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown assessment", func(t *testing.T) {
		svc := NewExportService(newTestRepo(t), newTestLogger())
		_, err := svc.ExportResults(ctx, 999, ExportFormatCSV)
		assert.ErrorIs(t, err, ErrAssessmentNotFound)
	})

	t.Run("no completed attempts", func(t *testing.T) {
		repo := newTestRepo(t)
		assessment := seedActiveAssessment(t, repo)
		svc := NewExportService(repo, newTestLogger())

		_, err := svc.ExportResults(ctx, assessment.ID, ExportFormatCSV)
		assert.ErrorIs(t, err, ErrExportNoAttempts)
	})

	t.Run("unsupported format", func(t *testing.T) {
		svc, assessmentID := exportFixture(t)
		_, err := svc.ExportResults(context.Background(), assessmentID, "pdf")
		assert.ErrorIs(t, err, ErrExportInvalidFormat)
	})
}
