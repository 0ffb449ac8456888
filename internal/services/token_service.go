package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/question-bank-service/internal/policy"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/tokens"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

type tokenService struct {
	repo         repositories.Repository
	capabilities CapabilityService
	registry     *tokens.Registry
	signer       *tokens.Signer
	logger       *slog.Logger
	validator    *validator.Validator
}

func NewTokenService(repo repositories.Repository, capabilities CapabilityService, registry *tokens.Registry, signer *tokens.Signer, logger *slog.Logger, validator *validator.Validator) TokenService {
	return &tokenService{
		repo:         repo,
		capabilities: capabilities,
		registry:     registry,
		signer:       signer,
		logger:       logger,
		validator:    validator,
	}
}

// Issue signs a token whose payload is built by the requested workflows for
// the calling user in the optional context
func (s *tokenService) Issue(ctx context.Context, req *IssueTokenRequest, userID string) (*TokenResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	subject := tokens.Subject{User: user, Capabilities: policy.NewCapabilitySet()}
	contextCode := ""
	if ref := req.ContextRef(); ref != nil {
		info, err := s.capabilities.ResolveContext(ctx, *ref)
		if err != nil {
			return nil, err
		}
		held, err := s.capabilities.ContextCapabilities(ctx, *ref, userID)
		if err != nil {
			return nil, err
		}
		subject.Context = info
		subject.Capabilities = held
		contextCode = ref.Code()
	}

	payload, err := s.registry.Payload(req.Workflows, subject)
	if err != nil {
		return nil, err
	}

	signed, expiresAt, err := s.signer.Sign(userID, req.Workflows, contextCode, payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Token issued", "user_id", userID, "workflows", req.Workflows, "context", contextCode)

	return &TokenResponse{
		Token:     signed,
		Workflows: req.Workflows,
		ExpiresAt: expiresAt,
	}, nil
}
