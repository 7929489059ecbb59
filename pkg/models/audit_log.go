package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of safety-relevant action being recorded.
type AuditAction string

const (
	AuditActionPolicyVersionCreated     AuditAction = "policy_version_created"
	AuditActionAccountDeleted           AuditAction = "account_deleted"
	AuditActionDataExported             AuditAction = "data_exported"
	AuditActionLegacyMessagesClassified AuditAction = "legacy_messages_classified"
	AuditActionMessageBlocked           AuditAction = "message_blocked"
)

// Audit target types.
const (
	AuditTargetAgePolicy    = "age_policy"
	AuditTargetAccount      = "account"
	AuditTargetConversation = "conversation"
	AuditTargetMessages     = "conversation_messages"
)

// AuditEvent is the structured payload handed to the auditing collaborator.
// Stored in safety_audit_log.
type AuditEvent struct {
	ID         uuid.UUID      `json:"id"`
	Action     AuditAction    `json:"action"`
	ActorID    *string        `json:"actor_id,omitempty"` // nil for system actions
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func newAuditEvent(action AuditAction, actorID *string, targetType, targetID string, metadata map[string]any) *AuditEvent {
	return &AuditEvent{
		ID:         uuid.New(),
		Action:     action,
		ActorID:    actorID,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewPolicyVersionCreatedEvent records a new ACTIVE age policy and the version it replaced.
func NewPolicyVersionCreatedEvent(policy *AgePolicy, previousVersion int) *AuditEvent {
	minAges := make(map[string]int, len(policy.PolicyJSON))
	for cat, rule := range policy.PolicyJSON {
		minAges[string(cat)] = rule.MinAge
	}
	return newAuditEvent(AuditActionPolicyVersionCreated, policy.CreatedBy, AuditTargetAgePolicy, policy.ID.String(), map[string]any{
		"version":          policy.Version,
		"previous_version": previousVersion,
		"description":      policy.Description,
		"min_ages":         minAges,
	})
}

// NewAccountDeletedEvent records an account deletion requested by actorID.
func NewAccountDeletedEvent(actorID, accountID string, reason string) *AuditEvent {
	return newAuditEvent(AuditActionAccountDeleted, &actorID, AuditTargetAccount, accountID, map[string]any{
		"reason": reason,
	})
}

// NewDataExportedEvent records a personal data export.
func NewDataExportedEvent(actorID, accountID string, format string) *AuditEvent {
	return newAuditEvent(AuditActionDataExported, &actorID, AuditTargetAccount, accountID, map[string]any{
		"format": format,
	})
}

// NewLegacyClassifiedEvent records a legacy classification run.
func NewLegacyClassifiedEvent(actorID *string, count int64) *AuditEvent {
	return newAuditEvent(AuditActionLegacyMessagesClassified, actorID, AuditTargetMessages, "*", map[string]any{
		"classified": count,
	})
}

// NewMessageBlockedEvent records a rejected submission. Only the finding kinds
// are kept; the matched text is contact information and is not stored.
func NewMessageBlockedEvent(senderID string, conversationID uuid.UUID, intent, variable string, kinds []string) *AuditEvent {
	return newAuditEvent(AuditActionMessageBlocked, &senderID, AuditTargetConversation, conversationID.String(), map[string]any{
		"intent":   intent,
		"variable": variable,
		"kinds":    kinds,
	})
}
