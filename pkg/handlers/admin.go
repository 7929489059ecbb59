package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/middleware"
	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/repositories"
	"github.com/youthhire/safety-engine/pkg/services"
)

// AdminHandler handles operator endpoints: legacy classification and the audit trail.
type AdminHandler struct {
	legacy services.LegacyService
	audit  services.AuditService
	logger *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(legacy services.LegacyService, audit services.AuditService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		legacy: legacy,
		audit:  audit,
		logger: logger,
	}
}

// RegisterRoutes registers the admin handler's routes on the given mux.
// Every route requires an asserted actor.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/admin/messages/classify-legacy", middleware.RequireActor(http.HandlerFunc(h.ClassifyLegacy)))
	mux.Handle("GET /api/admin/audit", middleware.RequireActor(http.HandlerFunc(h.ListAudit)))
}

// ClassifyLegacy handles POST /api/admin/messages/classify-legacy?dry_run=true
func (h *AdminHandler) ClassifyLegacy(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, "dry_run must be true or false", h.logger)
			return
		}
		dryRun = v
	}

	result, err := h.legacy.Classify(r.Context(), dryRun)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write classification response", zap.Error(err))
	}
}

// ListAudit handles GET /api/admin/audit?action=&target_type=&target_id=&limit=
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}
	q := r.URL.Query()

	events, err := h.audit.List(r.Context(), repositories.AuditFilter{
		Action:     models.AuditAction(q.Get("action")),
		TargetType: q.Get("target_type"),
		TargetID:   q.Get("target_id"),
		Limit:      limit,
	})
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if events == nil {
		events = []*models.AuditEvent{}
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: events}); err != nil {
		h.logger.Error("Failed to write audit response", zap.Error(err))
	}
}
