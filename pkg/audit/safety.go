// Package audit provides safety audit logging for SIEM consumption.
// It logs safety-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SafetyEventType categorizes safety-relevant events for filtering and alerting.
type SafetyEventType string

const (
	// EventContactInfoBlocked is logged when a message is rejected for containing contact details.
	EventContactInfoBlocked SafetyEventType = "contact_info_blocked"
	// EventUnsafeMarkup is logged when libinjection flags a message variable as XSS.
	EventUnsafeMarkup SafetyEventType = "unsafe_markup_blocked"
	// EventEligibilityDenied is logged when the age gate refuses a messaging action.
	EventEligibilityDenied SafetyEventType = "eligibility_denied"
	// EventPolicyVersionCreated is logged when a new age policy becomes ACTIVE.
	EventPolicyVersionCreated SafetyEventType = "policy_version_created"
	// EventLegacyClassified is logged after a legacy classification run.
	EventLegacyClassified SafetyEventType = "legacy_messages_classified"
)

// Severity levels carried in every event.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SafetyEvent represents an auditable safety event with all relevant context
// for SIEM ingestion and analysis.
type SafetyEvent struct {
	Timestamp      time.Time       `json:"timestamp"`
	EventType      SafetyEventType `json:"event_type"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	ActorID        string          `json:"actor_id,omitempty"`
	ClientIP       string          `json:"client_ip,omitempty"`
	Details        any             `json:"details"`
	Severity       string          `json:"severity"`
}

// BlockedMessageDetails describes a rejected message submission.
// The offending value is never included; only what kind of contact info was found.
type BlockedMessageDetails struct {
	Intent   string   `json:"intent"`
	Variable string   `json:"variable"`
	Kinds    []string `json:"kinds,omitempty"`
}

// EligibilityDetails describes an age gate refusal.
type EligibilityDetails struct {
	RiskCategory  string `json:"risk_category"`
	ResolvedAge   int    `json:"resolved_age"`
	MinAge        int    `json:"min_age"`
	PolicyVersion int    `json:"policy_version"`
}

// SafetyAuditor logs safety events for SIEM consumption.
type SafetyAuditor struct {
	logger *zap.Logger
}

// NewSafetyAuditor creates a new auditor logging under the "safety_audit" name.
func NewSafetyAuditor(logger *zap.Logger) *SafetyAuditor {
	return &SafetyAuditor{logger: logger.Named("safety_audit")}
}

func (a *SafetyAuditor) newEvent(ctx context.Context, eventType SafetyEventType, severity string, conversationID *uuid.UUID, details any) (SafetyEvent, string) {
	info := RequestInfoFrom(ctx)
	event := SafetyEvent{
		Timestamp:      time.Now().UTC(),
		EventType:      eventType,
		ConversationID: conversationID,
		ActorID:        info.ActorID,
		ClientIP:       info.ClientIP,
		Details:        details,
		Severity:       severity,
	}
	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)
	return event, string(eventJSON)
}

// LogContactInfoBlocked records a message rejected by the contact-info detector.
// Logged at WARN: most hits are young users sharing a number innocently.
func (a *SafetyAuditor) LogContactInfoBlocked(ctx context.Context, conversationID uuid.UUID, details BlockedMessageDetails) {
	event, eventJSON := a.newEvent(ctx, EventContactInfoBlocked, SeverityWarning, &conversationID, details)

	a.logger.Warn("Contact information blocked",
		zap.String("event_json", eventJSON),
		zap.String("conversation_id", conversationID.String()),
		zap.String("intent", details.Intent),
		zap.String("variable", details.Variable),
		zap.Strings("kinds", details.Kinds),
		zap.String("actor_id", event.ActorID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}

// LogUnsafeMarkup records a message variable flagged as script/HTML injection.
// Logged at ERROR with critical severity for alerting.
func (a *SafetyAuditor) LogUnsafeMarkup(ctx context.Context, conversationID uuid.UUID, details BlockedMessageDetails) {
	event, eventJSON := a.newEvent(ctx, EventUnsafeMarkup, SeverityCritical, &conversationID, details)

	a.logger.Error("Unsafe markup blocked",
		zap.String("event_json", eventJSON),
		zap.String("conversation_id", conversationID.String()),
		zap.String("intent", details.Intent),
		zap.String("variable", details.Variable),
		zap.String("actor_id", event.ActorID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}

// LogEligibilityDenied records an action refused because the youth is below the policy minimum.
func (a *SafetyAuditor) LogEligibilityDenied(ctx context.Context, conversationID uuid.UUID, details EligibilityDetails) {
	event, eventJSON := a.newEvent(ctx, EventEligibilityDenied, SeverityWarning, &conversationID, details)

	a.logger.Warn("Age gate denied action",
		zap.String("event_json", eventJSON),
		zap.String("conversation_id", conversationID.String()),
		zap.String("risk_category", details.RiskCategory),
		zap.Int("resolved_age", details.ResolvedAge),
		zap.Int("min_age", details.MinAge),
		zap.Int("policy_version", details.PolicyVersion),
		zap.String("actor_id", event.ActorID),
		zap.String("severity", event.Severity),
	)
}

// LogPolicyVersionCreated records an age policy change.
func (a *SafetyAuditor) LogPolicyVersionCreated(ctx context.Context, version, previousVersion int) {
	event, eventJSON := a.newEvent(ctx, EventPolicyVersionCreated, SeverityInfo, nil, map[string]int{
		"version":          version,
		"previous_version": previousVersion,
	})

	a.logger.Info("Age policy version created",
		zap.String("event_json", eventJSON),
		zap.Int("version", version),
		zap.Int("previous_version", previousVersion),
		zap.String("actor_id", event.ActorID),
		zap.String("severity", event.Severity),
	)
}

// LogLegacyClassified records a legacy classification run.
func (a *SafetyAuditor) LogLegacyClassified(ctx context.Context, count int64, dryRun bool) {
	event, eventJSON := a.newEvent(ctx, EventLegacyClassified, SeverityInfo, nil, map[string]any{
		"classified": count,
		"dry_run":    dryRun,
	})

	a.logger.Info("Legacy messages classified",
		zap.String("event_json", eventJSON),
		zap.Int64("classified", count),
		zap.Bool("dry_run", dryRun),
		zap.String("actor_id", event.ActorID),
		zap.String("severity", event.Severity),
	)
}
