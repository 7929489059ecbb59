package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/youthhire/safety-engine/pkg/audit"
)

// ActorHeader carries the caller identity asserted by the upstream gateway.
const ActorHeader = "X-Actor-ID"

// RequestIdentity stores the asserted actor and client IP in the request
// context for audit records. It does not authenticate.
func RequestIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := audit.RequestInfo{
			ActorID:  strings.TrimSpace(r.Header.Get(ActorHeader)),
			ClientIP: clientIP(r),
		}
		next.ServeHTTP(w, r.WithContext(audit.WithRequestInfo(r.Context(), info)))
	})
}

// RequireActor rejects requests without an asserted actor. Admin routes use
// it so every policy change and classification run is attributable.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if audit.ActorIDFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": ActorHeader + " header is required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
