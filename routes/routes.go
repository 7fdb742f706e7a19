package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/dashboard-guard/app"
	"github.com/upb/dashboard-guard/handlers"
	"github.com/upb/dashboard-guard/middleware"
	"github.com/upb/dashboard-guard/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(deps),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// The guard wraps the whole router so every path under the protected
	// prefix is checked, including ones no route matches
	r.Use(deps.GuardMiddleware.Protect)

	// Health check endpoints stay outside every redirect
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handlers.StatusHandler(deps))
	})

	// Pages
	r.Group(func(r chi.Router) {
		if deps.ModuleRedirect != nil {
			r.Use(deps.ModuleRedirect.Handler)
		}

		if deps.Upstream != nil {
			// The web application renders every page, the gateway only guards them
			r.Handle("/*", deps.Upstream)
			return
		}

		r.Get("/login", handlers.LoginHandler(deps))

		prefix := deps.Guard.ProtectedPrefix()
		r.Get(prefix, handlers.DashboardHandler(deps))
		r.Get(prefix+"/*", handlers.DashboardHandler(deps))
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w)
	})

	return r
}

func allowedOrigins(deps *app.Dependencies) []string {
	if deps.Config != nil && len(deps.Config.CORS.AllowedOrigins) > 0 {
		return deps.Config.CORS.AllowedOrigins
	}
	return []string{"http://localhost:*", "https://*"}
}
