package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/dashboard-guard/session"
	"github.com/upb/dashboard-guard/supabase"
)

// Context key type to avoid collisions
type contextKey string

const (
	// UserKey is the context key for the verified user
	UserKey contextKey = "user"

	// SessionKey is the context key for the session handle
	SessionKey contextKey = "session"
)

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetUserFromContext retrieves the verified user from context
func GetUserFromContext(ctx context.Context) *supabase.User {
	if val := ctx.Value(UserKey); val != nil {
		if user, ok := val.(*supabase.User); ok {
			return user
		}
	}
	return nil
}

// WithUser adds the verified user to the context
func WithUser(ctx context.Context, user *supabase.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetSessionFromContext retrieves the session handle from context
func GetSessionFromContext(ctx context.Context) *session.Session {
	if val := ctx.Value(SessionKey); val != nil {
		if sess, ok := val.(*session.Session); ok {
			return sess
		}
	}
	return nil
}

// WithSession adds the session handle to the context
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}
