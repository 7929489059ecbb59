package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/logging"
)

// ContactInfoMessage is shown when a message is blocked for containing
// contact details. It never repeats what was matched.
const ContactInfoMessage = "For your safety, messages can't include contact details like phone numbers, " +
	"email addresses or social media handles. Please keep the conversation here."

// ValidationErrorResponse is the body for rejected submissions.
type ValidationErrorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message"`
	Variable  string   `json:"variable,omitempty"`
	Variables []string `json:"variables,omitempty"`
	Kinds     []string `json:"kinds,omitempty"`
}

type errorMapping struct {
	sentinel error
	status   int
	code     string
	message  string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrContactInfoDetected, http.StatusUnprocessableEntity, "contact_info_detected", ContactInfoMessage},
	{apperrors.ErrUnsafeMarkup, http.StatusUnprocessableEntity, "unsafe_markup", "Messages can't contain HTML or scripts"},
	{apperrors.ErrUnknownIntent, http.StatusNotFound, "unknown_intent", "Unknown message type"},
	{apperrors.ErrExtraneousVariables, http.StatusBadRequest, "extraneous_variables", "The message contains fields this message type does not have"},
	{apperrors.ErrMissingRequiredVariable, http.StatusUnprocessableEntity, "missing_required_variable", "A required field is empty"},
	{apperrors.ErrInvalidType, http.StatusUnprocessableEntity, "invalid_type", "A field has the wrong type"},
	{apperrors.ErrInvalidChoice, http.StatusUnprocessableEntity, "invalid_choice", "A field is not one of the allowed options"},
	{apperrors.ErrValueTooLong, http.StatusUnprocessableEntity, "value_too_long", "A field is too long"},
	{apperrors.ErrInvalidPolicyShape, http.StatusBadRequest, "invalid_policy", "Invalid age policy"},
	{apperrors.ErrUnknownRiskCategory, http.StatusBadRequest, "unknown_risk_category", "Unknown risk category"},
	{apperrors.ErrInvalidAgeBand, http.StatusBadRequest, "invalid_age_band", "Invalid age or age band"},
	{apperrors.ErrNotEligible, http.StatusForbidden, "not_eligible", "This job is not available for your age group"},
	{apperrors.ErrLegacyReadOnly, http.StatusForbidden, "legacy_read_only", "This message is from an older conversation and can't be replied to"},
	{apperrors.ErrNoActivePolicy, http.StatusServiceUnavailable, "no_active_policy", "Age policy is not available"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "Not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "The resource was changed concurrently, please retry"},
}

// WriteServiceError translates a service error into an HTTP response.
// Unrecognized errors are logged and reported as 500 without detail.
func WriteServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.sentinel) {
			continue
		}

		body := ValidationErrorResponse{Error: m.code, Message: m.message}
		var (
			varErr     *apperrors.VariableError
			extraErr   *apperrors.ExtraneousVariablesError
			contactErr *apperrors.ContactInfoError
			shapeErr   *apperrors.PolicyShapeError
		)
		switch {
		case errors.As(err, &contactErr):
			body.Variable = contactErr.Variable
			body.Kinds = contactErr.Kinds()
		case errors.As(err, &varErr):
			body.Variable = varErr.Variable
		case errors.As(err, &extraErr):
			body.Variables = extraErr.Names
		case errors.As(err, &shapeErr):
			body.Message = shapeErr.Error()
		}

		if werr := WriteJSON(w, m.status, body); werr != nil {
			logger.Error("Failed to write error response", zap.Error(werr))
		}
		return
	}

	logger.Error("Unhandled service error", zap.String("error", logging.SanitizeError(err)))
	if werr := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error"); werr != nil {
		logger.Error("Failed to write error response", zap.Error(werr))
	}
}

func writeBadRequest(w http.ResponseWriter, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
