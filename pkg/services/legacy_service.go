package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/audit"
	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/repositories"
)

// ClassifyResult reports a legacy classification run.
type ClassifyResult struct {
	Classified int64 `json:"classified"`
	DryRun     bool  `json:"dry_run"`
}

// LegacyService marks messages that predate structured intents as read-only legacy.
type LegacyService interface {
	// Classify marks every unclassified message as legacy. With dryRun it
	// only counts what would change. Repeated runs are no-ops.
	Classify(ctx context.Context, dryRun bool) (ClassifyResult, error)
}

type legacyService struct {
	messages repositories.MessageRepository
	audit    AuditService
	auditor  *audit.SafetyAuditor
	logger   *zap.Logger
}

// NewLegacyService creates a new LegacyService.
func NewLegacyService(
	messages repositories.MessageRepository,
	auditService AuditService,
	auditor *audit.SafetyAuditor,
	logger *zap.Logger,
) LegacyService {
	return &legacyService{
		messages: messages,
		audit:    auditService,
		auditor:  auditor,
		logger:   logger.Named("legacy-service"),
	}
}

var _ LegacyService = (*legacyService)(nil)

func (s *legacyService) Classify(ctx context.Context, dryRun bool) (ClassifyResult, error) {
	if dryRun {
		n, err := s.messages.CountUnclassified(ctx)
		if err != nil {
			return ClassifyResult{}, fmt.Errorf("count unclassified messages: %w", err)
		}
		s.auditor.LogLegacyClassified(ctx, n, true)
		return ClassifyResult{Classified: n, DryRun: true}, nil
	}

	n, err := s.messages.MarkLegacy(ctx)
	if err != nil {
		return ClassifyResult{}, fmt.Errorf("classify legacy messages: %w", err)
	}

	s.audit.Record(ctx, models.NewLegacyClassifiedEvent(audit.ActorIDFrom(ctx), n))
	s.auditor.LogLegacyClassified(ctx, n, false)

	return ClassifyResult{Classified: n}, nil
}
