package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/audit"
	"github.com/youthhire/safety-engine/pkg/intents"
	"github.com/youthhire/safety-engine/pkg/middleware"
	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/services"
)

// MessagesHandler handles conversation message requests.
type MessagesHandler struct {
	messaging services.MessagingService
	logger    *zap.Logger
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(messaging services.MessagingService, logger *zap.Logger) *MessagesHandler {
	return &MessagesHandler{
		messaging: messaging,
		logger:    logger,
	}
}

// RegisterRoutes registers the messages handler's routes on the given mux.
func (h *MessagesHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/conversations/{cid}/messages"

	mux.HandleFunc("GET "+base, h.List)
	mux.Handle("POST "+base, middleware.RequireActor(http.HandlerFunc(h.Send)))
}

// sendMessageRequest is the body of POST /api/conversations/{cid}/messages.
// Subject and RiskCategory come from the conversation's job, resolved by the
// calling service; the sender is the asserted actor.
type sendMessageRequest struct {
	Intent       string              `json:"intent"`
	Variables    map[string]any      `json:"variables"`
	ReplyToID    *uuid.UUID          `json:"reply_to_id,omitempty"`
	Subject      agegate.Subject     `json:"subject"`
	RiskCategory models.RiskCategory `json:"risk_category"`
}

type listMessagesResponse struct {
	Messages []services.ConversationEntry `json:"messages"`
}

// List handles GET /api/conversations/{cid}/messages
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := ParseConversationID(w, r, h.logger)
	if !ok {
		return
	}
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	entries, err := h.messaging.ListConversation(r.Context(), conversationID, limit)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: listMessagesResponse{Messages: entries}}); err != nil {
		h.logger.Error("Failed to write messages response", zap.Error(err))
	}
}

// Send handles POST /api/conversations/{cid}/messages
func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := ParseConversationID(w, r, h.logger)
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.Intent == "" {
		writeBadRequest(w, "intent is required", h.logger)
		return
	}
	if req.RiskCategory == "" {
		writeBadRequest(w, "risk_category is required", h.logger)
		return
	}

	variables, err := intents.SubmissionFromJSON(req.Variables)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	msg, err := h.messaging.Send(r.Context(), services.SendRequest{
		ConversationID: conversationID,
		SenderID:       audit.RequestInfoFrom(r.Context()).ActorID,
		Subject:        req.Subject,
		RiskCategory:   req.RiskCategory,
		Intent:         req.Intent,
		Variables:      variables,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: msg}); err != nil {
		h.logger.Error("Failed to write message response", zap.Error(err))
	}
}
