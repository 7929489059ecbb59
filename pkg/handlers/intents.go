package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/intents"
	"github.com/youthhire/safety-engine/pkg/services"
)

// IntentsHandler serves the intent catalog and message previews.
type IntentsHandler struct {
	catalog   *intents.Catalog
	messaging services.MessagingService
	logger    *zap.Logger
}

// NewIntentsHandler creates a new intents handler.
func NewIntentsHandler(catalog *intents.Catalog, messaging services.MessagingService, logger *zap.Logger) *IntentsHandler {
	return &IntentsHandler{
		catalog:   catalog,
		messaging: messaging,
		logger:    logger,
	}
}

// RegisterRoutes registers the intents handler's routes on the given mux.
func (h *IntentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/intents", h.List)
	mux.HandleFunc("POST /api/intents/{intent}/preview", h.Preview)
}

type previewRequest struct {
	Variables map[string]any `json:"variables"`
}

// List handles GET /api/intents. Templates are not included.
func (h *IntentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.catalog.All()}); err != nil {
		h.logger.Error("Failed to write intents response", zap.Error(err))
	}
}

// Preview handles POST /api/intents/{intent}/preview.
// The message is rendered and validated exactly as it would be when sent, but not stored.
func (h *IntentsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	variables, ok := decodeVariables(w, r, h.logger)
	if !ok {
		return
	}

	rendered, err := h.messaging.Preview(r.Context(), r.PathValue("intent"), variables)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rendered}); err != nil {
		h.logger.Error("Failed to write preview response", zap.Error(err))
	}
}

// decodeVariables reads {"variables": {...}} from the body, keeping numbers
// in their submitted textual form.
func decodeVariables(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (map[string]string, bool) {
	var req previewRequest
	if !decodeBody(w, r, &req, logger) {
		return nil, false
	}
	variables, err := intents.SubmissionFromJSON(req.Variables)
	if err != nil {
		WriteServiceError(w, err, logger)
		return nil, false
	}
	return variables, true
}

// maxBodyBytes bounds request bodies; the longest legitimate submission is a few hundred bytes.
const maxBodyBytes = 64 << 10

// decodeBody decodes a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		writeBadRequest(w, "Request body too large or unreadable", logger)
		return false
	}
	if buf.Len() == 0 {
		return true
	}

	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, "Invalid request body", logger)
		return false
	}
	return true
}
