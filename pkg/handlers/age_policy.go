package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/middleware"
	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/services"
)

// AgePolicyHandler handles age policy and eligibility requests.
type AgePolicyHandler struct {
	policies    services.AgePolicyService
	eligibility services.EligibilityService
	logger      *zap.Logger
}

// NewAgePolicyHandler creates a new age policy handler.
func NewAgePolicyHandler(policies services.AgePolicyService, eligibility services.EligibilityService, logger *zap.Logger) *AgePolicyHandler {
	return &AgePolicyHandler{
		policies:    policies,
		eligibility: eligibility,
		logger:      logger,
	}
}

// RegisterRoutes registers the age policy handler's routes on the given mux.
func (h *AgePolicyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/age-policy/active", h.GetActive)
	mux.HandleFunc("GET /api/age-policy/versions", h.ListVersions)
	mux.HandleFunc("GET /api/age-policy/versions/{version}", h.GetVersion)
	mux.Handle("POST /api/age-policy/versions", middleware.RequireActor(http.HandlerFunc(h.CreateVersion)))
	mux.HandleFunc("POST /api/eligibility", h.CheckEligibility)
}

type createPolicyRequest struct {
	Policy      json.RawMessage `json:"policy"`
	Description string          `json:"description"`
}

type eligibilityRequest struct {
	agegate.Subject
	RiskCategory models.RiskCategory `json:"risk_category"`
}

// GetActive handles GET /api/age-policy/active
func (h *AgePolicyHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	policy, err := h.policies.GetActive(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: policy}); err != nil {
		h.logger.Error("Failed to write policy response", zap.Error(err))
	}
}

// ListVersions handles GET /api/age-policy/versions
func (h *AgePolicyHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.policies.ListVersions(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: versions}); err != nil {
		h.logger.Error("Failed to write policy versions response", zap.Error(err))
	}
}

// GetVersion handles GET /api/age-policy/versions/{version}
func (h *AgePolicyHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 1 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_version", "Version must be a positive integer"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	policy, err := h.policies.GetByVersion(r.Context(), version)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: policy}); err != nil {
		h.logger.Error("Failed to write policy response", zap.Error(err))
	}
}

// CreateVersion handles POST /api/age-policy/versions
func (h *AgePolicyHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req createPolicyRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		writeBadRequest(w, "description is required", h.logger)
		return
	}

	doc, err := agegate.ParsePolicyDocument(req.Policy)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	created, err := h.policies.CreateVersion(r.Context(), doc, description)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: created}); err != nil {
		h.logger.Error("Failed to write policy response", zap.Error(err))
	}
}

// CheckEligibility handles POST /api/eligibility
func (h *AgePolicyHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	decision, err := h.eligibility.Check(r.Context(), req.Subject, req.RiskCategory)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: decision}); err != nil {
		h.logger.Error("Failed to write eligibility response", zap.Error(err))
	}
}
