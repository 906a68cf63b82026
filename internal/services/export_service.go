package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/brightclass/assessment-delivery/internal/models"
	"github.com/brightclass/assessment-delivery/internal/repositories"
)

const (
	ExportFormatCSV   = "csv"
	ExportFormatExcel = "xlsx"

	contentTypeCSV   = "text/csv"
	contentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ===== EXPORT OPERATIONS =====

// ExportResults renders all completed attempts of an assessment as a
// downloadable CSV or Excel file.
func (s *exportService) ExportResults(ctx context.Context, assessmentID uint, format string) (*ExportResult, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	attempts, err := s.repo.Attempt().GetCompletedByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed attempts: %w", err)
	}
	if len(attempts) == 0 {
		return nil, ErrExportNoAttempts
	}

	s.logger.Info("Exporting assessment results",
		"assessment_id", assessmentID,
		"format", format,
		"attempts", len(attempts))

	switch format {
	case ExportFormatCSV:
		data, err := s.renderCSV(attempts)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			FileName:    exportFileName(assessment, "csv"),
			ContentType: contentTypeCSV,
			Data:        data,
		}, nil
	case ExportFormatExcel:
		data, err := s.renderExcel(assessment, attempts)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			FileName:    exportFileName(assessment, "xlsx"),
			ContentType: contentTypeExcel,
			Data:        data,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrExportInvalidFormat, format)
	}
}

func (s *exportService) renderCSV(attempts []*models.AssessmentAttempt) ([]byte, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	if err := writer.Write(resultHeaders()); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, attempt := range attempts {
		if err := writer.Write(resultRow(attempt)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return []byte(buf.String()), nil
}

func (s *exportService) renderExcel(assessment *models.Assessment, attempts []*models.AssessmentAttempt) ([]byte, error) {
	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range resultHeaders() {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, attempt := range attempts {
		for colIndex, value := range resultRow(attempt) {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return buf.Bytes(), nil
}

// ===== ROW MAPPING =====

func resultHeaders() []string {
	return []string{
		"Student ID", "Student Name", "Score", "Total Points", "Percentage",
		"Answered", "End Reason", "Started At", "Completed At",
	}
}

func resultRow(attempt *models.AssessmentAttempt) []string {
	endReason := ""
	if attempt.EndReason != nil {
		endReason = *attempt.EndReason
	}
	completedAt := ""
	if attempt.CompletedAt != nil {
		completedAt = attempt.CompletedAt.Format(time.RFC3339)
	}

	return []string{
		attempt.StudentID,
		attempt.StudentName,
		strconv.Itoa(attempt.Score),
		strconv.Itoa(attempt.TotalPoints),
		strconv.FormatFloat(attempt.Percentage, 'f', 0, 64),
		strconv.Itoa(attempt.AnsweredCount()),
		endReason,
		attempt.StartedAt.Format(time.RFC3339),
		completedAt,
	}
}

func exportFileName(assessment *models.Assessment, ext string) string {
	title := strings.ToLower(strings.ReplaceAll(assessment.Title, " ", "_"))
	return fmt.Sprintf("results_%s_%d.%s", title, assessment.ID, ext)
}
