package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/dashboard-guard/app"
	"github.com/upb/dashboard-guard/utils"
	"go.uber.org/zap"
)

// Version is the gateway release reported by the status endpoint
var Version = "0.1.0"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse represents the application status response
type StatusResponse struct {
	Version         string `json:"version"`
	Environment     string `json:"environment"`
	ProtectedPrefix string `json:"protected_prefix"`
	LoginPath       string `json:"login_path"`
}

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// ReadinessCheck reports whether the identity provider can be reached
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    map[string]string{},
		}
		status := http.StatusOK

		if deps.Identity == nil {
			response.Status = "not_ready"
			response.Checks["identity"] = "not_initialized"
		} else if err := deps.Identity.Health(ctx); err != nil {
			response.Status = "not_ready"
			response.Checks["identity"] = "unhealthy"
			deps.Logger.Warn("identity health check failed", zap.Error(err))
		} else {
			response.Checks["identity"] = "healthy"
		}

		if response.Status != "ready" {
			status = http.StatusServiceUnavailable
		}

		if err := utils.WriteJSON(w, status, response); err != nil {
			deps.Logger.Error("failed to write readiness response", zap.Error(err))
		}
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, StatusResponse{
			Version:         Version,
			Environment:     deps.Config.Environment,
			ProtectedPrefix: deps.Guard.ProtectedPrefix(),
			LoginPath:       deps.Guard.LoginPath(),
		})
	}
}
