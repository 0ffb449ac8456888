package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

// ShuffleFunc has the signature of rand.Shuffle
type ShuffleFunc func(n int, swap func(i, j int))

type questionBankSampler struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	shuffle   ShuffleFunc
}

func NewQuestionBankSampler(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionBankSampler {
	return newQuestionBankSampler(repo, logger, validator, rand.Shuffle)
}

func newQuestionBankSampler(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, shuffle ShuffleFunc) *questionBankSampler {
	return &questionBankSampler{
		repo:      repo,
		logger:    logger,
		validator: validator,
		shuffle:   shuffle,
	}
}

// SelectForSubmission draws up to req.Count active questions that are not in
// req.ExcludeIDs and binds each into the quiz group. Sampling, locking and
// binding share one transaction. Binding is idempotent per (question, quiz,
// group, duplicate index) and the whole batch commits or rolls back together.
// The result is returned in random order.
func (s *questionBankSampler) SelectForSubmission(ctx context.Context, req *SelectForSubmissionRequest) ([]*models.QuizQuestion, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}
	if req.Count <= 0 {
		return []*models.QuizQuestion{}, nil
	}

	bound := []*models.QuizQuestion{}
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		// Holds off a concurrent soft delete of the bank until the batch commits
		bank, err := txRepo.QuestionBank().LockForShare(ctx, nil, req.BankID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionBankNotFound
			}
			return err
		}
		if bank.IsDeleted() {
			return ErrQuestionBankDeleted
		}

		ids, err := txRepo.Question().SampleIDs(ctx, nil, repositories.RandomQuestionFilters{
			BankID:     req.BankID,
			ExcludeIDs: req.ExcludeIDs,
			Count:      req.Count,
		})
		if err != nil {
			return fmt.Errorf("failed to sample questions: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		// Locks are taken in ascending id order so concurrent draws cannot deadlock
		ids = sortedIDs(ids)

		questions, err := txRepo.Question().LockByIDs(ctx, nil, req.BankID, ids)
		if err != nil {
			return err
		}
		if len(questions) != len(ids) {
			return fmt.Errorf("%w: %d of %d sampled questions are no longer active",
				ErrSelectionChanged, len(ids)-len(questions), len(ids))
		}

		for _, question := range questions {
			quizQuestion, err := txRepo.QuizQuestion().FindOrCreate(ctx, nil,
				models.NewQuizQuestion(question, req.QuizID, req.QuizGroupID, req.DuplicateIndex))
			if err != nil {
				return err
			}
			bound = append(bound, quizQuestion)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select questions: %w", err)
	}
	if len(bound) == 0 {
		s.logger.Info("No eligible questions to select", "bank_id", req.BankID, "quiz_id", req.QuizID)
		return bound, nil
	}

	s.shuffle(len(bound), func(i, j int) {
		bound[i], bound[j] = bound[j], bound[i]
	})

	s.logger.Info("Questions selected for submission",
		"bank_id", req.BankID,
		"quiz_id", req.QuizID,
		"quiz_group_id", req.QuizGroupID,
		"requested", req.Count,
		"selected", len(bound))

	return bound, nil
}

func sortedIDs(ids []uint) []uint {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}
