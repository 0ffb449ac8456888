package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/policy"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

const (
	exportSheet    = "Questions"
	exportPageSize = 500
)

var exportHeaders = []string{"ID", "Name", "Position", "Type", "State", "Question Text"}

type exportService struct {
	repo         repositories.Repository
	capabilities CapabilityService
	logger       *slog.Logger
}

func NewExportService(repo repositories.Repository, capabilities CapabilityService, logger *slog.Logger) ExportService {
	return &exportService{
		repo:         repo,
		capabilities: capabilities,
		logger:       logger,
	}
}

// ExportQuestions writes the active questions of a bank as an .xlsx workbook
func (s *exportService) ExportQuestions(ctx context.Context, bankID uint, userID string, w io.Writer) error {
	bank, err := s.repo.QuestionBank().GetByID(ctx, nil, bankID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionBankNotFound
		}
		return fmt.Errorf("failed to get question bank: %w", err)
	}

	rights, err := s.capabilities.BankRights(ctx, bank, userID)
	if err != nil {
		return err
	}
	if !rights.Can(policy.Read) {
		return NewPermissionError(userID, bankID, "question_bank", "export", "insufficient rights in owning context")
	}

	questions, err := s.loadQuestions(ctx, bankID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, question := range questions {
		position := ""
		if question.Position != nil {
			position = fmt.Sprint(*question.Position)
		}
		row := []interface{}{
			question.ID,
			question.Name,
			position,
			string(question.QuestionType),
			string(question.WorkflowState),
			question.QuestionText(),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write question %d: %w", question.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Question bank exported", "bank_id", bankID, "user_id", userID, "questions", len(questions))
	return nil
}

func (s *exportService) loadQuestions(ctx context.Context, bankID uint) ([]*models.Question, error) {
	state := models.StateActive
	var all []*models.Question

	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.repo.Question().ListByBank(ctx, nil, bankID, repositories.QuestionFilters{
			WorkflowState: &state,
			Limit:         exportPageSize,
			Offset:        offset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list questions: %w", err)
		}
		all = append(all, page...)
		if len(page) < exportPageSize || int64(len(all)) >= total {
			return all, nil
		}
	}
}
