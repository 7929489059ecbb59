package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/repositories"
)

// AuditService persists safety audit events.
type AuditService interface {
	// Record stores an event. Failures are logged and swallowed: an audit
	// outage must not fail the operation being audited.
	Record(ctx context.Context, event *models.AuditEvent)

	// List returns matching events, newest first.
	List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditEvent, error)
}

type auditService struct {
	repo   repositories.AuditRepository
	logger *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo repositories.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.Named("audit-service"),
	}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) Record(ctx context.Context, event *models.AuditEvent) {
	if event == nil {
		return
	}
	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.Error("Failed to record audit event",
			zap.String("action", string(event.Action)),
			zap.String("target_type", event.TargetType),
			zap.String("target_id", event.TargetID),
			zap.Error(err))
	}
}

func (s *auditService) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditEvent, error) {
	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
