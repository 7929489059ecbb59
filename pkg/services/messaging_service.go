package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/audit"
	"github.com/youthhire/safety-engine/pkg/intents"
	"github.com/youthhire/safety-engine/pkg/logging"
	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/repositories"
)

// SendRequest is a structured message submission for a job conversation.
// Subject and RiskCategory describe the youth and the job the conversation
// belongs to; the conversation owner supplies them.
type SendRequest struct {
	ConversationID uuid.UUID
	SenderID       string
	Subject        agegate.Subject
	RiskCategory   models.RiskCategory
	Intent         string
	Variables      map[string]string
	ReplyToID      *uuid.UUID
}

// ConversationEntry is a stored message annotated for display.
type ConversationEntry struct {
	*models.ConversationMessage
	State    models.MessageState `json:"state"`
	CanReply bool                `json:"can_reply"`
}

// MessagingService sends and lists structured conversation messages.
type MessagingService interface {
	// Send gates, validates, renders and persists a message. Nothing is
	// stored when any step rejects the submission.
	Send(ctx context.Context, req SendRequest) (*models.ConversationMessage, error)

	// Preview renders without persisting.
	Preview(ctx context.Context, intent string, variables map[string]string) (*models.RenderedMessage, error)

	ListConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]ConversationEntry, error)
}

type messagingService struct {
	renderer    *intents.Renderer
	eligibility EligibilityService
	messages    repositories.MessageRepository
	audit       AuditService
	auditor     *audit.SafetyAuditor
	logger      *zap.Logger
}

// NewMessagingService creates a new MessagingService.
func NewMessagingService(
	renderer *intents.Renderer,
	eligibility EligibilityService,
	messages repositories.MessageRepository,
	auditService AuditService,
	auditor *audit.SafetyAuditor,
	logger *zap.Logger,
) MessagingService {
	return &messagingService{
		renderer:    renderer,
		eligibility: eligibility,
		messages:    messages,
		audit:       auditService,
		auditor:     auditor,
		logger:      logger.Named("messaging-service"),
	}
}

var _ MessagingService = (*messagingService)(nil)

func (s *messagingService) Send(ctx context.Context, req SendRequest) (*models.ConversationMessage, error) {
	decision, err := s.eligibility.Check(ctx, req.Subject, req.RiskCategory)
	if err != nil {
		return nil, err
	}
	if !decision.Eligible {
		s.auditor.LogEligibilityDenied(ctx, req.ConversationID, audit.EligibilityDetails{
			RiskCategory:  string(decision.RiskCategory),
			ResolvedAge:   decision.ResolvedAge,
			MinAge:        decision.MinAge,
			PolicyVersion: decision.PolicyVersion,
		})
		return nil, fmt.Errorf("%w: %s requires age %d", apperrors.ErrNotEligible, decision.RiskCategory, decision.MinAge)
	}

	if req.ReplyToID != nil {
		if err := s.checkReplyTarget(ctx, req.ConversationID, *req.ReplyToID); err != nil {
			return nil, err
		}
	}

	rendered, err := s.renderer.Render(req.Intent, req.Variables)
	if err != nil {
		s.auditRejection(ctx, req, err)
		return nil, err
	}

	msg := &models.ConversationMessage{
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		Intent:         &rendered.Intent,
		RenderedText:   rendered.RenderedText,
		Variables:      rendered.Variables,
		ReplyToID:      req.ReplyToID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	s.logger.Debug("Message sent",
		zap.String("conversation_id", msg.ConversationID.String()),
		zap.String("message_id", msg.ID.String()),
		zap.String("intent", rendered.Intent))

	return msg, nil
}

func (s *messagingService) checkReplyTarget(ctx context.Context, conversationID, replyToID uuid.UUID) error {
	parent, err := s.messages.GetByID(ctx, replyToID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("reply target %s: %w", replyToID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("load reply target: %w", err)
	}
	if parent.ConversationID != conversationID {
		return fmt.Errorf("reply target %s: %w", replyToID, apperrors.ErrNotFound)
	}
	if !parent.CanReplyTo() {
		return fmt.Errorf("%w: message %s", apperrors.ErrLegacyReadOnly, replyToID)
	}
	return nil
}

// auditRejection records blocked submissions. Plain validation failures are
// not safety events and are only logged at debug.
func (s *messagingService) auditRejection(ctx context.Context, req SendRequest, err error) {
	var contactErr *apperrors.ContactInfoError
	if errors.As(err, &contactErr) {
		kinds := contactErr.Kinds()
		s.auditor.LogContactInfoBlocked(ctx, req.ConversationID, audit.BlockedMessageDetails{
			Intent:   req.Intent,
			Variable: contactErr.Variable,
			Kinds:    kinds,
		})
		s.audit.Record(ctx, models.NewMessageBlockedEvent(req.SenderID, req.ConversationID, req.Intent, contactErr.Variable, kinds))
		s.logger.Debug("Blocked message value",
			zap.String("variable", contactErr.Variable),
			zap.String("value", logging.SanitizeValue(req.Variables[contactErr.Variable], s.renderer.Detector())))
		return
	}

	var varErr *apperrors.VariableError
	if errors.As(err, &varErr) && errors.Is(err, apperrors.ErrUnsafeMarkup) {
		s.auditor.LogUnsafeMarkup(ctx, req.ConversationID, audit.BlockedMessageDetails{
			Intent:   req.Intent,
			Variable: varErr.Variable,
		})
		return
	}

	s.logger.Debug("Message rejected",
		zap.String("conversation_id", req.ConversationID.String()),
		zap.String("intent", req.Intent),
		zap.Error(err))
}

func (s *messagingService) Preview(ctx context.Context, intent string, variables map[string]string) (*models.RenderedMessage, error) {
	return s.renderer.Render(intent, variables)
}

func (s *messagingService) ListConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]ConversationEntry, error) {
	msgs, err := s.messages.ListByConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversation messages: %w", err)
	}

	entries := make([]ConversationEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, ConversationEntry{
			ConversationMessage: m,
			State:               m.State(),
			CanReply:            m.CanReplyTo(),
		})
	}
	return entries, nil
}
