package domain

import "context"

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const sessionContextKey contextKey = "session"

// WithSession attaches the resolved session to the request context.
// Handlers must retrieve it through SessionFromContext rather than
// assuming any ambient authentication state.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the session resolved by the authentication
// middleware, or ok=false when the request is unauthenticated.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}
