package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/audit"
	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/repositories"
)

// AgePolicyService manages the versioned minimum-age policy.
type AgePolicyService interface {
	// GetActive returns the ACTIVE policy from the cache.
	GetActive(ctx context.Context) (*models.AgePolicy, error)

	GetByVersion(ctx context.Context, version int) (*models.AgePolicy, error)
	ListVersions(ctx context.Context) ([]*models.AgePolicy, error)

	// CreateVersion makes doc the new ACTIVE policy. The actor is taken from
	// the request context.
	CreateVersion(ctx context.Context, doc models.PolicyDocument, description string) (*models.AgePolicy, error)

	// Bootstrap seeds version 1 when no ACTIVE policy exists and warms the cache.
	Bootstrap(ctx context.Context, seed models.PolicyDocument) (*models.AgePolicy, error)
}

type agePolicyService struct {
	repo    repositories.AgePolicyRepository
	cache   *PolicyCache
	audit   AuditService
	auditor *audit.SafetyAuditor
	logger  *zap.Logger
}

// NewAgePolicyService creates a new AgePolicyService.
func NewAgePolicyService(
	repo repositories.AgePolicyRepository,
	cache *PolicyCache,
	auditService AuditService,
	auditor *audit.SafetyAuditor,
	logger *zap.Logger,
) AgePolicyService {
	return &agePolicyService{
		repo:    repo,
		cache:   cache,
		audit:   auditService,
		auditor: auditor,
		logger:  logger.Named("age-policy-service"),
	}
}

var _ AgePolicyService = (*agePolicyService)(nil)

func (s *agePolicyService) GetActive(ctx context.Context) (*models.AgePolicy, error) {
	return s.cache.Get(ctx)
}

func (s *agePolicyService) GetByVersion(ctx context.Context, version int) (*models.AgePolicy, error) {
	return s.repo.GetByVersion(ctx, version)
}

func (s *agePolicyService) ListVersions(ctx context.Context) ([]*models.AgePolicy, error) {
	return s.repo.ListVersions(ctx)
}

func (s *agePolicyService) CreateVersion(ctx context.Context, doc models.PolicyDocument, description string) (*models.AgePolicy, error) {
	created, previous, err := s.repo.CreateVersion(ctx, doc, description, audit.ActorIDFrom(ctx))
	if err != nil {
		return nil, fmt.Errorf("create age policy version: %w", err)
	}

	previousVersion := 0
	if previous != nil {
		previousVersion = previous.Version
	}

	s.cache.Set(created)
	s.cache.Publish(ctx, created.Version)

	s.audit.Record(ctx, models.NewPolicyVersionCreatedEvent(created, previousVersion))
	s.auditor.LogPolicyVersionCreated(ctx, created.Version, previousVersion)

	return created, nil
}

func (s *agePolicyService) Bootstrap(ctx context.Context, seed models.PolicyDocument) (*models.AgePolicy, error) {
	policy, created, err := s.repo.Bootstrap(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("bootstrap age policy: %w", err)
	}

	if created {
		s.logger.Info("Seeded initial age policy", zap.Int("version", policy.Version))
		s.audit.Record(ctx, models.NewPolicyVersionCreatedEvent(policy, 0))
	} else {
		s.logger.Debug("Active age policy already present", zap.Int("version", policy.Version))
	}

	s.cache.Set(policy)
	return policy, nil
}
