package handlers

import (
	"net/http"
	"time"

	"github.com/upb/dashboard-guard/app"
	"github.com/upb/dashboard-guard/guard"
	"github.com/upb/dashboard-guard/middleware"
	"github.com/upb/dashboard-guard/utils"
)

// LoginPage is the payload of the built-in login page
type LoginPage struct {
	Page    string `json:"page"`
	Message string `json:"message,omitempty"`
}

// DashboardPage is the payload of the built-in dashboard pages
type DashboardPage struct {
	Page string        `json:"page"`
	Path string        `json:"path"`
	User DashboardUser `json:"user"`
}

// DashboardUser is the public view of the verified user
type DashboardUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role,omitempty"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`
}

// LoginHandler renders the login page, echoing the redirect message if any
func LoginHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, LoginPage{
			Page:    "login",
			Message: r.URL.Query().Get(guard.MessageQueryKey),
		})
	}
}

// DashboardHandler renders a dashboard page for the user the guard admitted
func DashboardHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.GetUserFromContext(r.Context())
		if user == nil {
			// Only reachable when mounted outside the guard
			_ = utils.WriteUnauthorized(w, "")
			return
		}

		_ = utils.WriteOK(w, DashboardPage{
			Page: "dashboard",
			Path: r.URL.Path,
			User: DashboardUser{
				ID:               user.ID.String(),
				Email:            user.Email,
				Role:             user.Role,
				EmailConfirmedAt: user.EmailConfirmedAt,
				LastSignInAt:     user.LastSignInAt,
			},
		})
	}
}
