package middleware

import (
	"net/http"

	"github.com/upb/dashboard-guard/guard"
	"github.com/upb/dashboard-guard/session"
	"go.uber.org/zap"
)

// GuardMiddleware runs the route access guard in front of a handler
type GuardMiddleware struct {
	guard     *guard.Guard
	sessions  session.Accessor
	navigator guard.Navigator
	logger    *zap.Logger
}

// NewGuardMiddleware creates a new GuardMiddleware
func NewGuardMiddleware(g *guard.Guard, sessions session.Accessor, navigator guard.Navigator, logger *zap.Logger) *GuardMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardMiddleware{
		guard:     g,
		sessions:  sessions,
		navigator: navigator,
		logger:    logger,
	}
}

// Protect redirects navigations the guard rejects and passes the rest through.
// Admitted requests under the protected prefix carry the verified user in their context.
func (m *GuardMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !m.guard.Protects(path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		sess := m.sessions.CurrentSession(r)
		decision := m.guard.Evaluate(ctx, path, sess)

		if !decision.Allowed() {
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("path", path),
				zap.String("state", decision.State.String()),
			}
			if decision.Err != nil {
				fields = append(fields, zap.Error(decision.Err))
			}
			m.logger.Info("navigation redirected to login", fields...)

			m.navigator.Navigate(w, r, decision.Redirect.Path, decision.Redirect.Query)
			return
		}

		m.logger.Debug("navigation allowed",
			zap.String("request_id", requestID),
			zap.String("path", path),
			zap.String("user_id", decision.User.ID.String()))

		ctx = WithSession(ctx, sess)
		ctx = WithUser(ctx, decision.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
