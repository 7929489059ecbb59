package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func TestNewSafetyAuditor_UsesNamedLogger(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSafetyAuditor(logger)

	auditor.LogPolicyVersionCreated(context.Background(), 2, 1)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "safety_audit", logs[0].LoggerName)
}

func TestLogContactInfoBlocked(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		wantActor string
		wantIP    string
	}{
		{
			name:      "with request info",
			ctx:       WithRequestInfo(context.Background(), RequestInfo{ActorID: "youth-123", ClientIP: "10.0.0.5"}),
			wantActor: "youth-123",
			wantIP:    "10.0.0.5",
		},
		{
			name: "without request info",
			ctx:  context.Background(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, recorded := setupTestLogger(t)
			auditor := NewSafetyAuditor(logger)
			conversationID := uuid.New()

			auditor.LogContactInfoBlocked(tt.ctx, conversationID, BlockedMessageDetails{
				Intent:   "ASK_JOB_QUESTION",
				Variable: "question",
				Kinds:    []string{"PHONE"},
			})

			logs := recorded.All()
			require.Len(t, logs, 1, "Expected exactly one log entry")

			entry := logs[0]
			assert.Equal(t, zapcore.WarnLevel, entry.Level)
			assert.Equal(t, "Contact information blocked", entry.Message)

			fields := entry.ContextMap()
			assert.Equal(t, conversationID.String(), fields["conversation_id"])
			assert.Equal(t, "question", fields["variable"])
			assert.Equal(t, tt.wantActor, fields["actor_id"])
			assert.Equal(t, tt.wantIP, fields["client_ip"])
			assert.Equal(t, SeverityWarning, fields["severity"])

			eventJSON, ok := fields["event_json"].(string)
			require.True(t, ok, "event_json should be a string")

			var event SafetyEvent
			require.NoError(t, json.Unmarshal([]byte(eventJSON), &event))
			assert.Equal(t, EventContactInfoBlocked, event.EventType)
			require.NotNil(t, event.ConversationID)
			assert.Equal(t, conversationID, *event.ConversationID)
			assert.Equal(t, tt.wantActor, event.ActorID)

			details, ok := event.Details.(map[string]any)
			require.True(t, ok, "Details should be a map")
			assert.Equal(t, "ASK_JOB_QUESTION", details["intent"])
			assert.Equal(t, []any{"PHONE"}, details["kinds"])
		})
	}
}

func TestLogUnsafeMarkup_IsCritical(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSafetyAuditor(logger)

	auditor.LogUnsafeMarkup(context.Background(), uuid.New(), BlockedMessageDetails{Intent: "THANK_YOU", Variable: "note"})

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	assert.Equal(t, SeverityCritical, logs[0].ContextMap()["severity"])
}

func TestLogEligibilityDenied(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSafetyAuditor(logger)

	auditor.LogEligibilityDenied(context.Background(), uuid.New(), EligibilityDetails{
		RiskCategory:  "HIGH_RISK",
		ResolvedAge:   17,
		MinAge:        18,
		PolicyVersion: 3,
	})

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "HIGH_RISK", fields["risk_category"])
	assert.Equal(t, int64(17), fields["resolved_age"])
	assert.Equal(t, int64(18), fields["min_age"])
}

func TestLogLegacyClassified(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSafetyAuditor(logger)
	ctx := WithRequestInfo(context.Background(), RequestInfo{ActorID: "admin-1"})

	auditor.LogLegacyClassified(ctx, 12, false)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.InfoLevel, logs[0].Level)
	fields := logs[0].ContextMap()
	assert.Equal(t, int64(12), fields["classified"])
	assert.Equal(t, false, fields["dry_run"])
	assert.Equal(t, "admin-1", fields["actor_id"])
}

func TestActorIDFrom(t *testing.T) {
	assert.Nil(t, ActorIDFrom(context.Background()))

	ctx := WithRequestInfo(context.Background(), RequestInfo{ActorID: "admin-7"})
	actor := ActorIDFrom(ctx)
	require.NotNil(t, actor)
	assert.Equal(t, "admin-7", *actor)
}
