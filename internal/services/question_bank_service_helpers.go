package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/policy"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

// ===== ACCESS HELPERS =====

// getBank reads through the bank cache. Paths that write use loadBank.
func (s *questionBankService) getBank(ctx context.Context, id uint) (*models.QuestionBank, error) {
	return bankOrNotFound(s.repo.QuestionBank().GetByID(ctx, nil, id))
}

func (s *questionBankService) loadBank(ctx context.Context, id uint) (*models.QuestionBank, error) {
	return bankOrNotFound(s.repo.QuestionBank().Reload(ctx, nil, id))
}

func bankOrNotFound(bank *models.QuestionBank, err error) (*models.QuestionBank, error) {
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionBankNotFound
		}
		return nil, fmt.Errorf("failed to get question bank: %w", err)
	}
	return bank, nil
}

// authorizeBank loads the bank and fails with a PermissionError unless the
// user holds the right on it
func (s *questionBankService) authorizeBank(ctx context.Context, id uint, userID string, right policy.Right) (*models.QuestionBank, policy.RightSet, error) {
	bank, err := s.getBank(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.checkBankRight(ctx, bank, userID, right)
}

// authorizeBankWrite is authorizeBank against the stored row, for callers
// that act on the bank's lifecycle state
func (s *questionBankService) authorizeBankWrite(ctx context.Context, id uint, userID string, right policy.Right) (*models.QuestionBank, policy.RightSet, error) {
	bank, err := s.loadBank(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.checkBankRight(ctx, bank, userID, right)
}

func (s *questionBankService) checkBankRight(ctx context.Context, bank *models.QuestionBank, userID string, right policy.Right) (*models.QuestionBank, policy.RightSet, error) {
	rights, err := s.capabilities.BankRights(ctx, bank, userID)
	if err != nil {
		return nil, nil, err
	}
	if !rights.Can(right) {
		return nil, nil, NewPermissionError(userID, bank.ID, "question_bank", string(right), "insufficient rights in owning context")
	}

	return bank, rights, nil
}

// authorizeQuizGroup checks that the group belongs to the quiz, draws from
// the bank and that the user manages the quiz's context
func (s *questionBankService) authorizeQuizGroup(ctx context.Context, req *SelectForSubmissionRequest, userID string) error {
	group, err := s.repo.QuizQuestion().GetGroup(ctx, nil, req.QuizGroupID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizGroupNotFound
		}
		return fmt.Errorf("failed to get quiz group: %w", err)
	}
	if !group.DrawsFrom(req.QuizID, req.BankID) {
		return validationError(validator.ValidationErrors{{
			Field:   "quiz_group_id",
			Message: "must belong to the quiz and draw from this question bank",
			Rule:    "bank_group",
		}})
	}

	quiz, err := s.repo.QuizQuestion().GetQuiz(ctx, nil, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	held, err := s.capabilities.ContextCapabilities(ctx, quiz.ContextRef(), userID)
	if err != nil {
		return err
	}
	if !policy.ContextRights(held).Can(policy.Manage) {
		return NewPermissionError(userID, quiz.ID, "quiz", string(policy.Update), "cannot manage the quiz's context")
	}
	return nil
}

func (s *questionBankService) authorizeContext(ctx context.Context, ref models.ContextRef, userID string, right policy.Right) (*models.ContextInfo, policy.CapabilitySet, error) {
	info, err := s.capabilities.ResolveContext(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	held, err := s.capabilities.ContextCapabilities(ctx, ref, userID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.ContextRights(held).Can(right) {
		return nil, nil, NewPermissionError(userID, ref.ID, strings.ToLower(string(ref.Type)), string(right), "insufficient rights in context")
	}

	return info, held, nil
}

func (s *questionBankService) isBookmarked(ctx context.Context, bankID uint, userID string) bool {
	bookmarked, err := s.repo.QuestionBank().IsBookmarked(ctx, nil, bankID, userID)
	if err != nil {
		s.logger.Warn("Failed to check bookmark", "bank_id", bankID, "user_id", userID, "error", err)
		return false
	}
	return bookmarked
}

// ===== RESPONSE HELPERS =====

// normalizeTitle trims the title and falls back to the default built from the
// context name. Defaults longer than the column are cut on a rune boundary.
func (s *questionBankService) normalizeTitle(title string, info *models.ContextInfo) string {
	title = strings.TrimSpace(title)
	if title != "" {
		return title
	}

	title = models.DefaultTitle(info.Name)
	if runes := []rune(title); len(runes) > models.MaxTitleLength {
		title = string(runes[:models.MaxTitleLength])
	}
	return title
}

func (s *questionBankService) buildQuestionBankResponse(ctx context.Context, bank *models.QuestionBank, info *models.ContextInfo, userID string, rights policy.RightSet) *QuestionBankResponse {
	response := &QuestionBankResponse{
		QuestionBank: bank,
		ContextCode:  bank.ContextRef().Code(),
		Permissions:  rights.List(),
	}

	if info == nil {
		resolved, err := s.capabilities.ResolveContext(ctx, bank.ContextRef())
		if err != nil {
			s.logger.Warn("Failed to resolve bank context", "bank_id", bank.ID, "error", err)
		} else {
			info = resolved
		}
	}
	if info != nil {
		response.CachedContextShortName = info.ShortName
	}

	count, err := s.repo.QuestionBank().CountActiveQuestions(ctx, nil, bank.ID)
	if err != nil {
		s.logger.Warn("Failed to count bank questions", "bank_id", bank.ID, "error", err)
	} else {
		response.QuestionCount = count
	}

	response.Bookmarked = s.isBookmarked(ctx, bank.ID, userID)

	return response
}

func pageNumber(filters repositories.QuestionBankFilters) int {
	if filters.Limit <= 0 {
		return 1
	}
	return filters.Offset/filters.Limit + 1
}

// ===== ALIGNMENT HELPERS =====

type alignmentChanges struct {
	outcomeIDs []uint
	removed    int
}

// reconcileAlignments retires alignments missing from mastery and creates or
// revives the rest. Unknown outcome ids are skipped.
func (s *questionBankService) reconcileAlignments(ctx context.Context, txRepo repositories.Repository, bankID uint, mastery map[uint]*float64) (*alignmentChanges, error) {
	existing, err := txRepo.Alignment().ListByBank(ctx, nil, bankID, true)
	if err != nil {
		return nil, err
	}

	byOutcome := make(map[uint]*models.OutcomeAlignment, len(existing))
	var stale []uint
	for _, alignment := range existing {
		if _, keep := mastery[alignment.LearningOutcomeID]; !keep {
			if !alignment.IsDeleted() {
				stale = append(stale, alignment.ID)
			}
			continue
		}
		// One row per outcome survives, preferring an active one; rows come
		// in id order so the oldest active row wins and active duplicates retire
		current, ok := byOutcome[alignment.LearningOutcomeID]
		switch {
		case !ok || (current.IsDeleted() && !alignment.IsDeleted()):
			byOutcome[alignment.LearningOutcomeID] = alignment
		case !alignment.IsDeleted():
			stale = append(stale, alignment.ID)
		}
	}

	changes := &alignmentChanges{removed: len(stale)}
	if len(stale) > 0 {
		if err := txRepo.Alignment().MarkDeleted(ctx, nil, stale); err != nil {
			return nil, err
		}
	}
	if len(mastery) == 0 {
		return changes, nil
	}

	requested := make([]uint, 0, len(mastery))
	for outcomeID := range mastery {
		requested = append(requested, outcomeID)
	}
	outcomes, err := txRepo.Alignment().FindOutcomes(ctx, nil, requested)
	if err != nil {
		return nil, err
	}
	known := make(map[uint]bool, len(outcomes))
	for _, outcome := range outcomes {
		known[outcome.ID] = true
	}

	for _, outcomeID := range sortedIDs(requested) {
		if !known[outcomeID] {
			s.logger.Warn("Skipping alignment to unknown outcome", "bank_id", bankID, "outcome_id", outcomeID)
			continue
		}

		if alignment, ok := byOutcome[outcomeID]; ok {
			alignment.MasteryScore = mastery[outcomeID]
			alignment.WorkflowState = models.StateActive
			if err := txRepo.Alignment().Update(ctx, nil, alignment); err != nil {
				return nil, err
			}
		} else {
			alignment := &models.OutcomeAlignment{
				QuestionBankID:    bankID,
				LearningOutcomeID: outcomeID,
				MasteryScore:      mastery[outcomeID],
				WorkflowState:     models.StateActive,
			}
			if err := txRepo.Alignment().Create(ctx, nil, alignment); err != nil {
				return nil, err
			}
		}
		changes.outcomeIDs = append(changes.outcomeIDs, outcomeID)
	}

	return changes, nil
}

// ===== EVENT HELPERS =====

func bankEventData(bank *models.QuestionBank, userID string) events.QuestionBankEvent {
	return events.QuestionBankEvent{
		BankID:      bank.ID,
		ContextType: string(bank.ContextType),
		ContextID:   bank.ContextID,
		Title:       bank.Title,
		UserID:      userID,
	}
}

// publish never fails the caller; the write has already committed
func (s *questionBankService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}
