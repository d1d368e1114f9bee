package middleware

import "context"

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxRole        contextKey = "actor_role"
	ctxSessionID   contextKey = "session_id"
	ctxCartSession contextKey = "cart_session_id"
)

func stringFrom(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// UserIDFromContext is empty for guests.
func UserIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFrom(ctx, ctxRole)
}

// SessionIDFromContext returns the auth session (JWT id) of the caller.
func SessionIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, ctxSessionID)
}

// CartSessionFromContext returns the X-Cart-Session device id.
func CartSessionFromContext(ctx context.Context) string {
	return stringFrom(ctx, ctxCartSession)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

func WithCartSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartSession, sessionID)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sessionID)
}
