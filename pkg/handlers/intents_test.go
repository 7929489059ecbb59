package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/intents"
	"github.com/youthhire/safety-engine/pkg/middleware"
)

func newTestRenderer(t *testing.T) *intents.Renderer {
	t.Helper()
	catalog, err := intents.DefaultCatalog()
	require.NoError(t, err)
	return intents.NewRenderer(catalog, nil)
}

func setupIntentsTest(t *testing.T) http.Handler {
	t.Helper()
	renderer := newTestRenderer(t)
	mux := http.NewServeMux()
	NewIntentsHandler(renderer.Catalog(), &mockMessagingService{renderer: renderer}, zap.NewNop()).RegisterRoutes(mux)
	return middleware.RequestIdentity(mux)
}

func TestIntentsHandler_ListOmitsTemplates(t *testing.T) {
	handler := setupIntentsTest(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/intents", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.NotContains(t, body, "template")
	assert.NotContains(t, body, "{minutes}")

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			Intent    string `json:"intent"`
			Label     string `json:"label"`
			Variables []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"variables"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 10)
	assert.Equal(t, "CONFIRM_AVAILABILITY", resp.Data[0].Intent)
	assert.Equal(t, "day", resp.Data[0].Variables[0].Name)
}

func TestIntentsHandler_Preview(t *testing.T) {
	handler := setupIntentsTest(t)

	tests := []struct {
		name       string
		intent     string
		body       string
		wantStatus int
		wantText   string
		wantError  string
	}{
		{"number as JSON number", "RUNNING_LATE", `{"variables":{"minutes":10}}`, http.StatusOK, "I'm running about 10 minutes late.", ""},
		{"number as string", "RUNNING_LATE", `{"variables":{"minutes":"15"}}`, http.StatusOK, "I'm running about 15 minutes late.", ""},
		{"no variables no body", "ARRIVED", ``, http.StatusOK, "", ""},
		{"unknown intent", "CALL_ME", `{}`, http.StatusNotFound, "", "unknown_intent"},
		{"extraneous", "ARRIVED", `{"variables":{"phone":"x"}}`, http.StatusBadRequest, "", "extraneous_variables"},
		{"missing required", "RUNNING_LATE", `{"variables":{}}`, http.StatusUnprocessableEntity, "", "missing_required_variable"},
		{"boolean value", "RUNNING_LATE", `{"variables":{"minutes":true}}`, http.StatusUnprocessableEntity, "", "invalid_type"},
		{"contact info", "ASK_JOB_QUESTION", `{"variables":{"question":"email me at kid@example.com"}}`, http.StatusUnprocessableEntity, "", "contact_info_detected"},
		{"malformed body", "RUNNING_LATE", `{"variables":`, http.StatusBadRequest, "", "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/intents/"+tt.intent+"/preview", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantError != "" {
				var body ValidationErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantError, body.Error)
				assert.False(t, strings.Contains(rec.Body.String(), "kid@example.com"))
				return
			}
			if tt.wantText != "" {
				var resp struct {
					Data struct {
						RenderedText string `json:"rendered_text"`
					} `json:"data"`
				}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.wantText, resp.Data.RenderedText)
			}
		})
	}
}
