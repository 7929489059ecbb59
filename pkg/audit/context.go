package audit

import "context"

type contextKey string

const requestInfoKey contextKey = "auditRequestInfo"

// RequestInfo identifies who made a request. The actor ID is asserted by the
// upstream gateway; this service does not authenticate.
type RequestInfo struct {
	ActorID  string
	ClientIP string
}

// WithRequestInfo stores request identity in the context.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// RequestInfoFrom returns the request identity, or the zero value if none was set.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey).(RequestInfo)
	return info
}

// ActorIDFrom returns the actor ID from the context, or nil for system calls.
func ActorIDFrom(ctx context.Context) *string {
	info := RequestInfoFrom(ctx)
	if info.ActorID == "" {
		return nil
	}
	return &info.ActorID
}
