package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/policy"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

// maxAccountDepth bounds the walk up the account tree
const maxAccountDepth = 16

type capabilityService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewCapabilityService(repo repositories.Repository, logger *slog.Logger) CapabilityService {
	return &capabilityService{
		repo:   repo,
		logger: logger,
	}
}

func (s *capabilityService) ResolveContext(ctx context.Context, ref models.ContextRef) (*models.ContextInfo, error) {
	switch ref.Type {
	case models.ContextCourse:
		course, err := s.repo.Context().GetCourse(ctx, nil, ref.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrContextNotFound
			}
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		return course.Info(), nil
	case models.ContextAccount:
		account, err := s.repo.Context().GetAccount(ctx, nil, ref.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrContextNotFound
			}
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		return account.Info(), nil
	default:
		return nil, ErrContextNotFound
	}
}

// ContextCapabilities merges the roles the user holds directly in ref with the
// downward-inheriting roles held in any ancestor account. Site admins hold everything.
func (s *capabilityService) ContextCapabilities(ctx context.Context, ref models.ContextRef, userID string) (policy.CapabilitySet, error) {
	info, err := s.ResolveContext(ctx, ref)
	if err != nil {
		return nil, err
	}

	if s.isSiteAdmin(ctx, userID) {
		return policy.CapabilitiesFor(models.MembershipAccountAdmin), nil
	}

	ancestors, err := s.ancestorAccounts(ctx, info)
	if err != nil {
		return nil, err
	}

	refs := append([]models.ContextRef{info.Ref}, ancestors...)
	memberships, err := s.repo.Context().GetMemberships(ctx, nil, userID, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}

	held := policy.NewCapabilitySet()
	for _, m := range memberships {
		if m.ContextRef() == info.Ref || policy.InheritsDownward(m.Role) {
			held.Add(policy.RoleCapabilities[m.Role]...)
		}
	}

	return held, nil
}

func (s *capabilityService) BankRights(ctx context.Context, bank *models.QuestionBank, userID string) (policy.RightSet, error) {
	held, err := s.ContextCapabilities(ctx, bank.ContextRef(), userID)
	if err != nil {
		return nil, err
	}

	bookmarked, err := s.repo.QuestionBank().IsBookmarked(ctx, nil, bank.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check bookmark: %w", err)
	}

	return policy.BankRights(held, bookmarked), nil
}

func (s *capabilityService) ancestorAccounts(ctx context.Context, info *models.ContextInfo) ([]models.ContextRef, error) {
	var refs []models.ContextRef
	seen := map[models.ContextRef]bool{info.Ref: true}

	parent := info.Parent
	for parent != nil && len(refs) < maxAccountDepth && !seen[*parent] {
		seen[*parent] = true
		refs = append(refs, *parent)

		account, err := s.repo.Context().GetAccount(ctx, nil, parent.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				break
			}
			return nil, fmt.Errorf("failed to get parent account: %w", err)
		}
		parent = account.Info().Parent
	}

	return refs, nil
}

func (s *capabilityService) isSiteAdmin(ctx context.Context, userID string) bool {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			s.logger.Warn("Failed to load user for capability check", "user_id", userID, "error", err)
		}
		return false
	}
	return user.IsSiteAdmin()
}
