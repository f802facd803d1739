package auth

import "context"

// Session describes the caller of a cart request. Authenticated sessions carry
// the raw bearer token so downstream commerce calls can forward it.
type Session struct {
	Authenticated bool
	UserID        string
	Token         string
	DeviceID      string
}

type sessionCtxKey struct{}

// WithSession seeds the request context with the resolved session.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

// SessionFromContext returns the session placed by the auth middleware.
// The zero value means guest with no device binding.
func SessionFromContext(ctx context.Context) Session {
	if ctx == nil {
		return Session{}
	}
	if sess, ok := ctx.Value(sessionCtxKey{}).(Session); ok {
		return sess
	}
	return Session{}
}
