package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/middleware"
	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/services"
)

func setupMessagesTest(t *testing.T) (http.Handler, *mockMessagingService) {
	t.Helper()
	messaging := &mockMessagingService{renderer: newTestRenderer(t)}
	mux := http.NewServeMux()
	NewMessagesHandler(messaging, zap.NewNop()).RegisterRoutes(mux)
	return middleware.RequestIdentity(mux), messaging
}

func TestMessagesHandler_Send(t *testing.T) {
	handler, messaging := setupMessagesTest(t)
	conversationID := uuid.New()

	body := `{
		"intent": "RUNNING_LATE",
		"variables": {"minutes": 10},
		"subject": {"age_band": "16-17"},
		"risk_category": "LOW_RISK"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conversationID.String()+"/messages", bytes.NewBufferString(body))
	req.Header.Set(middleware.ActorHeader, "youth-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, messaging.sent, 1)
	sent := messaging.sent[0]
	assert.Equal(t, conversationID, sent.ConversationID)
	assert.Equal(t, "youth-1", sent.SenderID)
	assert.Equal(t, agegate.Band16To17, sent.Subject.Band)
	assert.Equal(t, models.RiskLow, sent.RiskCategory)
	assert.Equal(t, map[string]string{"minutes": "10"}, sent.Variables)

	var resp struct {
		Data models.ConversationMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "I'm running about 10 minutes late.", resp.Data.RenderedText)
}

func TestMessagesHandler_SendRequiresActor(t *testing.T) {
	handler, messaging := setupMessagesTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+uuid.NewString()+"/messages",
		bytes.NewBufferString(`{"intent":"ARRIVED","risk_category":"LOW_RISK","subject":{"age":16}}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, messaging.sent)
}

func TestMessagesHandler_SendErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		sendErr    error
		wantStatus int
		wantError  string
	}{
		{"bad conversation id", "/api/conversations/nope/messages", `{}`, nil, http.StatusBadRequest, "invalid_conversation_id"},
		{"missing intent", "", `{"risk_category":"LOW_RISK"}`, nil, http.StatusBadRequest, "invalid_request"},
		{"missing risk category", "", `{"intent":"ARRIVED"}`, nil, http.StatusBadRequest, "invalid_request"},
		{"not eligible", "", `{"intent":"ARRIVED","risk_category":"HIGH_RISK","subject":{"age_band":"15"}}`, apperrors.ErrNotEligible, http.StatusForbidden, "not_eligible"},
		{"legacy reply", "", `{"intent":"ARRIVED","risk_category":"LOW_RISK","subject":{"age":16}}`, apperrors.ErrLegacyReadOnly, http.StatusForbidden, "legacy_read_only"},
		{"no policy", "", `{"intent":"ARRIVED","risk_category":"LOW_RISK","subject":{"age":16}}`, apperrors.ErrNoActivePolicy, http.StatusServiceUnavailable, "no_active_policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, messaging := setupMessagesTest(t)
			messaging.sendErr = tt.sendErr

			path := tt.path
			if path == "" {
				path = "/api/conversations/" + uuid.NewString() + "/messages"
			}
			req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(tt.body))
			req.Header.Set(middleware.ActorHeader, "youth-1")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ValidationErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestMessagesHandler_List(t *testing.T) {
	handler, messaging := setupMessagesTest(t)
	conversationID := uuid.New()
	arrived := models.IntentArrived

	legacy := &models.ConversationMessage{ID: uuid.New(), ConversationID: conversationID, RenderedText: "old", IsLegacy: true}
	structured := &models.ConversationMessage{ID: uuid.New(), ConversationID: conversationID, Intent: &arrived, RenderedText: "I've arrived at the job location."}
	messaging.entries = []services.ConversationEntry{
		{ConversationMessage: legacy, State: legacy.State(), CanReply: legacy.CanReplyTo()},
		{ConversationMessage: structured, State: structured.State(), CanReply: structured.CanReplyTo()},
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/"+conversationID.String()+"/messages?limit=50", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Messages []struct {
				ID       uuid.UUID `json:"id"`
				IsLegacy bool      `json:"is_legacy"`
				State    string    `json:"state"`
				CanReply bool      `json:"can_reply"`
			} `json:"messages"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data.Messages, 2)
	assert.Equal(t, legacy.ID, resp.Data.Messages[0].ID)
	assert.True(t, resp.Data.Messages[0].IsLegacy)
	assert.Equal(t, "LEGACY", resp.Data.Messages[0].State)
	assert.False(t, resp.Data.Messages[0].CanReply)
	assert.True(t, resp.Data.Messages[1].CanReply)
}
