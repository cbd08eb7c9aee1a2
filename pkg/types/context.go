package types

// ContextKey is the type of context keys set by the HTTP boundary.
type ContextKey string

const (
	// ContextKeyRequestID carries the analysis request id.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyUserID carries the caller's user id, when known.
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyRequestSource names the surface that issued the call (cli, server).
	ContextKeyRequestSource ContextKey = "request_source"
)
