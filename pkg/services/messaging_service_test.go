package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/audit"
	"github.com/youthhire/safety-engine/pkg/intents"
	"github.com/youthhire/safety-engine/pkg/models"
)

// mockMessageRepository is an in-memory MessageRepository.
type mockMessageRepository struct {
	mu       sync.Mutex
	messages []*models.ConversationMessage
}

func (m *mockMessageRepository) Create(ctx context.Context, msg *models.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = time.Now().UTC()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ConversationMessage
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMessageRepository) CountUnclassified(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.State() == models.MessageStateUnclassified {
			n++
		}
	}
	return n, nil
}

func (m *mockMessageRepository) MarkLegacy(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(models.ClassifyLegacy(m.messages)), nil
}

// seed stores a message directly, bypassing the service.
func (m *mockMessageRepository) seed(conversationID uuid.UUID, intent *string, text string, legacy bool) *models.ConversationMessage {
	msg := &models.ConversationMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       "employer-1",
		Intent:         intent,
		RenderedText:   text,
		IsLegacy:       legacy,
	}
	m.messages = append(m.messages, msg)
	return msg
}

type messagingFixture struct {
	messages  *mockMessageRepository
	auditRepo *mockAuditRepository
	policies  *mockAgePolicyRepository
	svc       MessagingService
	logs      *observer.ObservedLogs
}

func newMessagingFixture(t *testing.T) *messagingFixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	catalog, err := intents.DefaultCatalog()
	require.NoError(t, err)

	policies := &mockAgePolicyRepository{}
	_, _, err = policies.Bootstrap(context.Background(), models.DefaultPolicyDocument())
	require.NoError(t, err)

	messages := &mockMessageRepository{}
	auditRepo := &mockAuditRepository{}
	eligibility := NewEligibilityService(NewPolicyCache(policies, nil, logger))
	svc := NewMessagingService(
		intents.NewRenderer(catalog, nil),
		eligibility,
		messages,
		NewAuditService(auditRepo, logger),
		audit.NewSafetyAuditor(logger),
		logger,
	)
	return &messagingFixture{messages: messages, auditRepo: auditRepo, policies: policies, svc: svc, logs: logs}
}

func sendRequest(conversationID uuid.UUID, intent string, vars map[string]string) SendRequest {
	return SendRequest{
		ConversationID: conversationID,
		SenderID:       "youth-1",
		Subject:        agegate.InBand(agegate.Band16To17),
		RiskCategory:   models.RiskLow,
		Intent:         intent,
		Variables:      vars,
	}
}

func TestMessagingService_SendStoresRenderedMessage(t *testing.T) {
	f := newMessagingFixture(t)
	conversationID := uuid.New()

	msg, err := f.svc.Send(context.Background(), sendRequest(conversationID, models.IntentRunningLate, map[string]string{"minutes": "10"}))
	require.NoError(t, err)

	assert.Equal(t, "I'm running about 10 minutes late.", msg.RenderedText)
	require.NotNil(t, msg.Intent)
	assert.Equal(t, models.IntentRunningLate, *msg.Intent)
	assert.False(t, msg.IsLegacy)
	require.Len(t, f.messages.messages, 1)
	assert.Equal(t, conversationID, f.messages.messages[0].ConversationID)
}

func TestMessagingService_SendRejectsIneligibleSubject(t *testing.T) {
	f := newMessagingFixture(t)
	req := sendRequest(uuid.New(), models.IntentArrived, nil)
	req.Subject = agegate.InBand(agegate.Band15)
	req.RiskCategory = models.RiskHigh

	_, err := f.svc.Send(context.Background(), req)
	assert.True(t, errors.Is(err, apperrors.ErrNotEligible))
	assert.Empty(t, f.messages.messages)

	denied := f.logs.FilterLoggerName("safety_audit").FilterMessage("Age gate denied action").All()
	assert.Len(t, denied, 1)
}

func TestMessagingService_SendWithoutActivePolicy(t *testing.T) {
	f := newMessagingFixture(t)
	f.policies.getErr = apperrors.ErrNoActivePolicy

	_, err := f.svc.Send(context.Background(), sendRequest(uuid.New(), models.IntentArrived, nil))
	assert.True(t, errors.Is(err, apperrors.ErrNoActivePolicy))
	assert.Empty(t, f.messages.messages)
}

func TestMessagingService_SendBlocksContactInfo(t *testing.T) {
	f := newMessagingFixture(t)
	conversationID := uuid.New()

	_, err := f.svc.Send(context.Background(), sendRequest(conversationID, models.IntentAskJobQuestion,
		map[string]string{"question": "can you text me at 555-123-4567"}))

	var contactErr *apperrors.ContactInfoError
	require.True(t, errors.As(err, &contactErr))
	assert.Equal(t, "question", contactErr.Variable)
	assert.Equal(t, []string{"PHONE"}, contactErr.Kinds())
	assert.Empty(t, f.messages.messages)

	require.Len(t, f.auditRepo.events, 1)
	event := f.auditRepo.events[0]
	assert.Equal(t, models.AuditActionMessageBlocked, event.Action)
	assert.Equal(t, conversationID.String(), event.TargetID)
	assert.Equal(t, []string{"PHONE"}, event.Metadata["kinds"])

	blocked := f.logs.FilterLoggerName("safety_audit").FilterMessage("Contact information blocked").All()
	assert.Len(t, blocked, 1)

	for _, entry := range f.logs.All() {
		for _, field := range entry.Context {
			assert.False(t, strings.Contains(field.String, "555-123-4567"),
				"log %q leaked the phone number in field %s", entry.Message, field.Key)
		}
	}
}

func TestMessagingService_SendBlocksUnsafeMarkup(t *testing.T) {
	f := newMessagingFixture(t)

	_, err := f.svc.Send(context.Background(), sendRequest(uuid.New(), models.IntentAskJobQuestion,
		map[string]string{"question": "<script>alert(1)</script>"}))
	assert.True(t, errors.Is(err, apperrors.ErrUnsafeMarkup))
	assert.Empty(t, f.messages.messages)

	entries := f.logs.FilterLoggerName("safety_audit").FilterMessage("Unsafe markup blocked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestMessagingService_ValidationFailuresAreNotSafetyEvents(t *testing.T) {
	f := newMessagingFixture(t)

	_, err := f.svc.Send(context.Background(), sendRequest(uuid.New(), models.IntentRunningLate, map[string]string{}))
	assert.True(t, errors.Is(err, apperrors.ErrMissingRequiredVariable))

	_, err = f.svc.Send(context.Background(), sendRequest(uuid.New(), models.IntentArrived, map[string]string{"phone": "x"}))
	assert.True(t, errors.Is(err, apperrors.ErrExtraneousVariables))

	assert.Empty(t, f.auditRepo.events)
	assert.Zero(t, f.logs.FilterLoggerName("safety_audit").Len())
	assert.Empty(t, f.messages.messages)
}

func TestMessagingService_ReplyTargets(t *testing.T) {
	f := newMessagingFixture(t)
	conversationID := uuid.New()
	thanks := models.IntentThankYou

	legacy := f.messages.seed(conversationID, nil, "hey text me", true)
	unclassified := f.messages.seed(conversationID, nil, "old message", false)
	structured := f.messages.seed(conversationID, &thanks, "Thank you!", false)
	elsewhere := f.messages.seed(uuid.New(), &thanks, "Thank you!", false)

	tests := []struct {
		name    string
		replyTo uuid.UUID
		wantErr error
	}{
		{"legacy message", legacy.ID, apperrors.ErrLegacyReadOnly},
		{"unclassified message", unclassified.ID, apperrors.ErrLegacyReadOnly},
		{"other conversation", elsewhere.ID, apperrors.ErrNotFound},
		{"missing message", uuid.New(), apperrors.ErrNotFound},
		{"structured message", structured.ID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sendRequest(conversationID, models.IntentArrived, nil)
			replyTo := tt.replyTo
			req.ReplyToID = &replyTo

			msg, err := f.svc.Send(context.Background(), req)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, structured.ID, *msg.ReplyToID)
		})
	}
}

func TestMessagingService_Preview(t *testing.T) {
	f := newMessagingFixture(t)

	rendered, err := f.svc.Preview(context.Background(), models.IntentConfirmAvailability,
		map[string]string{"day": "Saturday", "time": "10am"})
	require.NoError(t, err)
	assert.Equal(t, "I'm available on Saturday at 10am.", rendered.RenderedText)
	assert.Empty(t, f.messages.messages)

	_, err = f.svc.Preview(context.Background(), "CALL_ME", nil)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownIntent))
}

func TestMessagingService_ListConversation(t *testing.T) {
	f := newMessagingFixture(t)
	conversationID := uuid.New()
	arrived := models.IntentArrived

	f.messages.seed(conversationID, nil, "legacy chat", true)
	f.messages.seed(conversationID, &arrived, "I've arrived at the job location.", false)
	f.messages.seed(uuid.New(), &arrived, "elsewhere", false)

	entries, err := f.svc.ListConversation(context.Background(), conversationID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.MessageStateLegacy, entries[0].State)
	assert.False(t, entries[0].CanReply)
	assert.Equal(t, models.MessageStateStructured, entries[1].State)
	assert.True(t, entries[1].CanReply)
}
