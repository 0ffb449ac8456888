package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/policy"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

type questionBankService struct {
	repo           repositories.Repository
	capabilities   CapabilityService
	sampler        QuestionBankSampler
	eventPublisher events.EventPublisher
	logger         *slog.Logger
	validator      *validator.Validator
	now            func() time.Time
}

func NewQuestionBankService(repo repositories.Repository, capabilities CapabilityService, sampler QuestionBankSampler, eventPublisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) QuestionBankService {
	return &questionBankService{
		repo:           repo,
		capabilities:   capabilities,
		sampler:        sampler,
		eventPublisher: eventPublisher,
		logger:         logger,
		validator:      validator,
		now:            time.Now,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionBankService) Create(ctx context.Context, req *CreateQuestionBankRequest, userID string) (*QuestionBankResponse, error) {
	s.logger.Info("Creating question bank", "user_id", userID, "context_type", req.ContextType, "context_id", req.ContextID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	contextType, _ := models.ParseContextType(string(req.ContextType))
	ref := models.ContextRef{Type: contextType, ID: req.ContextID}

	info, held, err := s.authorizeContext(ctx, ref, userID, policy.Create)
	if err != nil {
		return nil, err
	}

	bank := &models.QuestionBank{
		Title:         s.normalizeTitle(req.Title, info),
		MigrationID:   req.MigrationID,
		WorkflowState: models.StateActive,
	}
	bank.SetContext(ref)

	if err := s.repo.QuestionBank().Create(ctx, nil, bank); err != nil {
		return nil, fmt.Errorf("failed to create question bank: %w", err)
	}

	s.logger.Info("Question bank created successfully", "bank_id", bank.ID)
	s.publish(ctx, events.QuestionBankCreated, bankEventData(bank, userID))

	return s.buildQuestionBankResponse(ctx, bank, info, userID, policy.BankRights(held, false)), nil
}

func (s *questionBankService) GetByID(ctx context.Context, id uint, userID string) (*QuestionBankResponse, error) {
	bank, rights, err := s.authorizeBank(ctx, id, userID, policy.Read)
	if err != nil {
		return nil, err
	}

	return s.buildQuestionBankResponse(ctx, bank, nil, userID, rights), nil
}

func (s *questionBankService) Update(ctx context.Context, id uint, req *UpdateQuestionBankRequest, userID string) (*QuestionBankResponse, error) {
	s.logger.Info("Updating question bank", "bank_id", id, "user_id", userID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	bank, rights, err := s.authorizeBankWrite(ctx, id, userID, policy.Update)
	if err != nil {
		return nil, err
	}
	if bank.IsDeleted() {
		return nil, ErrQuestionBankDeleted
	}

	var info *models.ContextInfo
	if req.Title != nil {
		info, err = s.capabilities.ResolveContext(ctx, bank.ContextRef())
		if err != nil {
			return nil, err
		}
		title := s.normalizeTitle(*req.Title, info)

		if err := s.repo.QuestionBank().UpdateTitle(ctx, nil, id, title); err != nil {
			// Deleted after it was loaded
			if repositories.IsNotFoundError(err) {
				return nil, ErrQuestionBankDeleted
			}
			return nil, fmt.Errorf("failed to update question bank: %w", err)
		}
		bank.Title = title
	}

	s.logger.Info("Question bank updated successfully", "bank_id", id)
	s.publish(ctx, events.QuestionBankUpdated, bankEventData(bank, userID))

	return s.buildQuestionBankResponse(ctx, bank, info, userID, rights), nil
}

// List returns the active banks of one context
func (s *questionBankService) List(ctx context.Context, filters repositories.QuestionBankFilters, userID string) (*QuestionBankListResponse, error) {
	if filters.ContextType == nil || filters.ContextID == nil {
		return nil, validationError(validator.ValidationErrors{{Field: "context", Message: "is required", Rule: "required"}})
	}

	ref := models.ContextRef{Type: *filters.ContextType, ID: *filters.ContextID}
	info, held, err := s.authorizeContext(ctx, ref, userID, policy.Read)
	if err != nil {
		return nil, err
	}

	banks, total, err := s.repo.QuestionBank().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list question banks: %w", err)
	}

	responses := make([]*QuestionBankResponse, 0, len(banks))
	for _, bank := range banks {
		bookmarked := s.isBookmarked(ctx, bank.ID, userID)
		responses = append(responses, s.buildQuestionBankResponse(ctx, bank, info, userID, policy.BankRights(held, bookmarked)))
	}

	return &QuestionBankListResponse{
		Banks: responses,
		Total: total,
		Page:  pageNumber(filters),
		Size:  filters.Limit,
	}, nil
}

func (s *questionBankService) Rights(ctx context.Context, id uint, userID string) (*QuestionBankRightsResponse, error) {
	bank, err := s.getBank(ctx, id)
	if err != nil {
		return nil, err
	}

	rights, err := s.capabilities.BankRights(ctx, bank, userID)
	if err != nil {
		return nil, err
	}

	return &QuestionBankRightsResponse{BankID: bank.ID, Rights: rights.List()}, nil
}

// ===== LIFECYCLE =====

// Destroy is a logical delete. The bank stays readable by id and its
// alignments are retired with it.
func (s *questionBankService) Destroy(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question bank", "bank_id", id, "user_id", userID)

	bank, _, err := s.authorizeBankWrite(ctx, id, userID, policy.Delete)
	if err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.QuestionBank().SoftDelete(ctx, nil, id, s.now()); err != nil {
			return err
		}
		return txRepo.Alignment().MarkAllDeleted(ctx, nil, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionBankNotFound
		}
		return fmt.Errorf("failed to delete question bank: %w", err)
	}

	s.logger.Info("Question bank deleted successfully", "bank_id", id)
	s.publish(ctx, events.QuestionBankDeleted, bankEventData(bank, userID))

	return nil
}

// ClearForReplacement physically removes the bank's questions and quiz groups
// so an import can repopulate it.
func (s *questionBankService) ClearForReplacement(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Clearing question bank", "bank_id", id, "user_id", userID)

	bank, _, err := s.authorizeBankWrite(ctx, id, userID, policy.Update)
	if err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.QuestionBank().ClearQuestionsAndGroups(ctx, nil, id)
	})
	if err != nil {
		return fmt.Errorf("failed to clear question bank: %w", err)
	}

	s.logger.Info("Question bank cleared successfully", "bank_id", id)
	s.publish(ctx, events.QuestionBankCleared, bankEventData(bank, userID))

	return nil
}

// UnfiledForContext returns the context's "Unfiled Questions" bank, creating it on first use
func (s *questionBankService) UnfiledForContext(ctx context.Context, ref models.ContextRef, userID string) (*QuestionBankResponse, error) {
	info, held, err := s.authorizeContext(ctx, ref, userID, policy.Create)
	if err != nil {
		return nil, err
	}

	var bank *models.QuestionBank
	created := false
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		existing, err := txRepo.QuestionBank().FindByTitle(ctx, nil, ref, models.UnfiledBankTitle)
		if err == nil {
			bank = existing
			return nil
		}
		if !repositories.IsNotFoundError(err) {
			return err
		}

		bank = &models.QuestionBank{Title: models.UnfiledBankTitle, WorkflowState: models.StateActive}
		bank.SetContext(ref)
		created = true
		return txRepo.QuestionBank().Create(ctx, nil, bank)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get unfiled question bank: %w", err)
	}

	if created {
		s.logger.Info("Unfiled question bank created", "bank_id", bank.ID, "context", ref.Code())
		s.publish(ctx, events.QuestionBankCreated, bankEventData(bank, userID))
	}

	return s.buildQuestionBankResponse(ctx, bank, info, userID, policy.BankRights(held, false)), nil
}

// ===== BOOKMARKS =====

// Bookmark adds or removes the user's bookmark. Both directions are idempotent.
// Adding needs read access through the owning context.
func (s *questionBankService) Bookmark(ctx context.Context, id uint, userID string, bookmark bool) error {
	bank, err := s.loadBank(ctx, id)
	if err != nil {
		return err
	}

	if bookmark {
		held, err := s.capabilities.ContextCapabilities(ctx, bank.ContextRef(), userID)
		if err != nil {
			return err
		}
		if !policy.BankRights(held, false).Can(policy.Read) {
			return NewPermissionError(userID, id, "question_bank", "bookmark", "no read access in owning context")
		}
		if err := s.repo.QuestionBank().AddBookmark(ctx, nil, id, userID); err != nil {
			return fmt.Errorf("failed to bookmark question bank: %w", err)
		}
	} else {
		if err := s.repo.QuestionBank().RemoveBookmark(ctx, nil, id, userID); err != nil {
			return fmt.Errorf("failed to remove bookmark: %w", err)
		}
	}

	s.publish(ctx, events.QuestionBankBookmarked, events.BookmarkEvent{BankID: id, UserID: userID, Bookmarked: bookmark})
	return nil
}

func (s *questionBankService) IsBookmarked(ctx context.Context, id uint, userID string) (bool, error) {
	if _, err := s.getBank(ctx, id); err != nil {
		return false, err
	}

	bookmarked, err := s.repo.QuestionBank().IsBookmarked(ctx, nil, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return bookmarked, nil
}

func (s *questionBankService) ListBookmarked(ctx context.Context, userID string, filters repositories.QuestionBankFilters) (*QuestionBankListResponse, error) {
	banks, total, err := s.repo.QuestionBank().ListBookmarked(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarked question banks: %w", err)
	}

	responses := make([]*QuestionBankResponse, 0, len(banks))
	for _, bank := range banks {
		held, err := s.capabilities.ContextCapabilities(ctx, bank.ContextRef(), userID)
		if err != nil {
			s.logger.Warn("Failed to resolve capabilities for bookmarked bank", "bank_id", bank.ID, "error", err)
			held = policy.NewCapabilitySet()
		}
		responses = append(responses, s.buildQuestionBankResponse(ctx, bank, nil, userID, policy.BankRights(held, true)))
	}

	return &QuestionBankListResponse{
		Banks: responses,
		Total: total,
		Page:  pageNumber(filters),
		Size:  filters.Limit,
	}, nil
}

// ===== OUTCOME ALIGNMENTS =====

// SetAlignments makes the bank's active alignments match req exactly
func (s *questionBankService) SetAlignments(ctx context.Context, id uint, req *SetAlignmentsRequest, userID string) ([]*models.OutcomeAlignment, error) {
	s.logger.Info("Setting question bank alignments", "bank_id", id, "user_id", userID, "count", len(req.Alignments))

	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	if _, _, err := s.authorizeBankWrite(ctx, id, userID, policy.Update); err != nil {
		return nil, err
	}

	var result *alignmentChanges
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		changes, err := s.reconcileAlignments(ctx, txRepo, id, req.Mastery())
		result = changes
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set alignments: %w", err)
	}

	alignments, err := s.repo.Alignment().ListByBank(ctx, nil, id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get alignments: %w", err)
	}

	s.logger.Info("Question bank alignments updated", "bank_id", id, "active", len(alignments), "removed", result.removed)
	s.publish(ctx, events.QuestionBankAlignmentsUpdated, events.AlignmentsEvent{
		BankID:     id,
		UserID:     userID,
		OutcomeIDs: result.outcomeIDs,
		Removed:    result.removed,
	})

	return alignments, nil
}

func (s *questionBankService) GetAlignments(ctx context.Context, id uint, userID string) ([]*models.OutcomeAlignment, error) {
	if _, _, err := s.authorizeBank(ctx, id, userID, policy.Read); err != nil {
		return nil, err
	}

	alignments, err := s.repo.Alignment().ListByBank(ctx, nil, id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get alignments: %w", err)
	}
	return alignments, nil
}

// ===== QUESTIONS =====

func (s *questionBankService) QuestionCount(ctx context.Context, id uint, userID string) (int64, error) {
	if _, _, err := s.authorizeBank(ctx, id, userID, policy.Read); err != nil {
		return 0, err
	}

	count, err := s.repo.QuestionBank().CountActiveQuestions(ctx, nil, id)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// SelectQuestions draws into a quiz group backed by this bank. The caller
// needs read access to the bank and must manage the quiz's context.
func (s *questionBankService) SelectQuestions(ctx context.Context, req *SelectForSubmissionRequest, userID string) (*SelectionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	bank, _, err := s.authorizeBankWrite(ctx, req.BankID, userID, policy.Read)
	if err != nil {
		return nil, err
	}
	if bank.IsDeleted() {
		return nil, ErrQuestionBankDeleted
	}
	if err := s.authorizeQuizGroup(ctx, req, userID); err != nil {
		return nil, err
	}

	quizQuestions, err := s.sampler.SelectForSubmission(ctx, req)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]uint, 0, len(quizQuestions))
	for _, qq := range quizQuestions {
		questionIDs = append(questionIDs, qq.QuestionID)
	}
	s.publish(ctx, events.QuestionsSelected, events.SelectionEvent{
		BankID:      req.BankID,
		QuizID:      req.QuizID,
		QuizGroupID: req.QuizGroupID,
		QuestionIDs: questionIDs,
	})

	return &SelectionResponse{
		BankID:        req.BankID,
		QuizID:        req.QuizID,
		QuizGroupID:   req.QuizGroupID,
		QuizQuestions: quizQuestions,
	}, nil
}
