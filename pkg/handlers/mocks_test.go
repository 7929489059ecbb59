package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/intents"
	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/repositories"
	"github.com/youthhire/safety-engine/pkg/services"
)

// mockMessagingService renders with a real renderer and records sends.
type mockMessagingService struct {
	renderer *intents.Renderer
	sent     []services.SendRequest
	sendErr  error
	entries  []services.ConversationEntry
}

func (m *mockMessagingService) Send(ctx context.Context, req services.SendRequest) (*models.ConversationMessage, error) {
	m.sent = append(m.sent, req)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	rendered, err := m.renderer.Render(req.Intent, req.Variables)
	if err != nil {
		return nil, err
	}
	return &models.ConversationMessage{
		ID:             uuid.New(),
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		Intent:         &rendered.Intent,
		RenderedText:   rendered.RenderedText,
		Variables:      rendered.Variables,
		ReplyToID:      req.ReplyToID,
	}, nil
}

func (m *mockMessagingService) Preview(ctx context.Context, intent string, variables map[string]string) (*models.RenderedMessage, error) {
	return m.renderer.Render(intent, variables)
}

func (m *mockMessagingService) ListConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]services.ConversationEntry, error) {
	return m.entries, nil
}

// mockAgePolicyService serves a fixed history.
type mockAgePolicyService struct {
	versions  []*models.AgePolicy // newest first
	created   []models.PolicyDocument
	createErr error
}

func (m *mockAgePolicyService) GetActive(ctx context.Context) (*models.AgePolicy, error) {
	if len(m.versions) == 0 {
		return nil, apperrors.ErrNoActivePolicy
	}
	return m.versions[0], nil
}

func (m *mockAgePolicyService) GetByVersion(ctx context.Context, version int) (*models.AgePolicy, error) {
	for _, p := range m.versions {
		if p.Version == version {
			return p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAgePolicyService) ListVersions(ctx context.Context) ([]*models.AgePolicy, error) {
	return m.versions, nil
}

func (m *mockAgePolicyService) CreateVersion(ctx context.Context, doc models.PolicyDocument, description string) (*models.AgePolicy, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, doc)
	p := &models.AgePolicy{
		ID:          uuid.New(),
		Version:     len(m.versions) + 1,
		Status:      models.PolicyStatusActive,
		PolicyJSON:  doc,
		Description: description,
	}
	m.versions = append([]*models.AgePolicy{p}, m.versions...)
	return p, nil
}

func (m *mockAgePolicyService) Bootstrap(ctx context.Context, seed models.PolicyDocument) (*models.AgePolicy, error) {
	if len(m.versions) > 0 {
		return m.versions[0], nil
	}
	return m.CreateVersion(ctx, seed, "Initial policy")
}

// mockEligibilityService evaluates against a fixed policy.
type mockEligibilityService struct {
	policy *models.AgePolicy
}

func (m *mockEligibilityService) Check(ctx context.Context, subject agegate.Subject, category models.RiskCategory) (agegate.Decision, error) {
	return agegate.Evaluate(subject, category, m.policy)
}

type mockLegacyService struct {
	calls []bool
	count int64
}

func (m *mockLegacyService) Classify(ctx context.Context, dryRun bool) (services.ClassifyResult, error) {
	m.calls = append(m.calls, dryRun)
	return services.ClassifyResult{Classified: m.count, DryRun: dryRun}, nil
}

type mockAuditService struct {
	events  []*models.AuditEvent
	filters []repositories.AuditFilter
}

func (m *mockAuditService) Record(ctx context.Context, event *models.AuditEvent) {
	m.events = append(m.events, event)
}

func (m *mockAuditService) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditEvent, error) {
	m.filters = append(m.filters, filter)
	return m.events, nil
}

var (
	_ services.MessagingService   = (*mockMessagingService)(nil)
	_ services.AgePolicyService   = (*mockAgePolicyService)(nil)
	_ services.EligibilityService = (*mockEligibilityService)(nil)
	_ services.LegacyService      = (*mockLegacyService)(nil)
	_ services.AuditService       = (*mockAuditService)(nil)
)
