package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/tokens"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

// ServiceDependencies are the collaborators shared by every service
type ServiceDependencies struct {
	Repo           repositories.Repository
	Logger         *slog.Logger
	Validator      *validator.Validator
	EventPublisher events.EventPublisher
	TokenRegistry  *tokens.Registry
	TokenSigner    *tokens.Signer
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	deps ServiceDependencies

	// Service instances
	capabilityService   CapabilityService
	samplerService      QuestionBankSampler
	questionBankService QuestionBankService
	tokenService        TokenService
	exportService       ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceDependencies) ServiceManager {
	if deps.TokenRegistry == nil {
		deps.TokenRegistry = tokens.DefaultRegistry()
	}
	return &serviceManager{deps: deps}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if sm.deps.Repo == nil || sm.deps.Validator == nil || sm.deps.TokenSigner == nil {
		return fmt.Errorf("failed to initialize services: missing dependencies")
	}

	d := sm.deps
	sm.capabilityService = NewCapabilityService(d.Repo, d.Logger)
	sm.samplerService = NewQuestionBankSampler(d.Repo, d.Logger, d.Validator)
	sm.questionBankService = NewQuestionBankService(d.Repo, sm.capabilityService, sm.samplerService, d.EventPublisher, d.Logger, d.Validator)
	sm.tokenService = NewTokenService(d.Repo, sm.capabilityService, d.TokenRegistry, d.TokenSigner, d.Logger, d.Validator)
	sm.exportService = NewExportService(d.Repo, sm.capabilityService, d.Logger)

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully", "workflows", d.TokenRegistry.Names())

	return nil
}

// Service getters
func (sm *serviceManager) QuestionBank() QuestionBankService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.questionBankService
}

func (sm *serviceManager) Sampler() QuestionBankSampler {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.samplerService
}

func (sm *serviceManager) Capability() CapabilityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.capabilityService
}

func (sm *serviceManager) Token() TokenService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.tokenService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	// Check repository health
	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.EventPublisher != nil {
		if err := sm.deps.EventPublisher.Close(); err != nil {
			sm.deps.Logger.Warn("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down successfully")

	return nil
}
