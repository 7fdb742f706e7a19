package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/dashboard-guard/app"
	"github.com/upb/dashboard-guard/config"
	"github.com/upb/dashboard-guard/routes"
	"github.com/upb/dashboard-guard/session"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	// Setup
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")

	// Run tests
	code := m.Run()

	// Teardown
	os.Exit(code)
}

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Observability = config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"}

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()

		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("development console logger", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Observability = config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"}

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()

		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("settings come from config, not the process env", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		cfg := testConfig(t)
		cfg.Observability = config.ObservabilityConfig{LogLevel: "debug", LogFormat: "json"}

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		defer logger.Sync()

		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Observability = config.ObservabilityConfig{LogLevel: "invalid", LogFormat: "json"}

		logger, err := initLogger(cfg)
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Observability = config.ObservabilityConfig{}

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	t.Run("health check returns ok", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("status endpoint returns version info", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/status")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body, "version")
		assert.Equal(t, "test", body["environment"])
		assert.Equal(t, "/dashboard", body["protected_prefix"])
	})

	t.Run("not ready without supabase", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "not_ready", body["status"])
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/nonexistent")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDashboardGuard(t *testing.T) {
	verifiedToken := createTestToken(t)
	unverifiedToken := createTestToken(t)
	revokedToken := createTestToken(t)

	gotrue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/v1/health":
			_, _ = w.Write([]byte(`{"name":"GoTrue"}`))
		case "/auth/v1/user":
			switch r.Header.Get("Authorization") {
			case "Bearer " + verifiedToken:
				_, _ = w.Write([]byte(`{"id":"` + uuid.NewString() + `","email":"user@example.com","email_confirmed_at":"2024-01-01T00:00:00Z"}`))
			case "Bearer " + unverifiedToken:
				_, _ = w.Write([]byte(`{"id":"` + uuid.NewString() + `","email":"user@example.com","email_confirmed_at":null}`))
			default:
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer gotrue.Close()

	cfg := testConfig(t)
	cfg.Supabase.URL = gotrue.URL
	cfg.Supabase.Key = "anon-key"
	ts := newTestServer(t, cfg)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	testCases := []struct {
		name             string
		path             string
		token            string
		expectedStatus   int
		expectedLocation string
	}{
		{"public page is not guarded", "/login", "", http.StatusOK, ""},
		{"no session", "/dashboard/settings", "", http.StatusFound, "/login"},
		{"session expired", "/dashboard", revokedToken, http.StatusFound, "/login?message=Your%20session%20has%20expired.%20Please%20login%20again."},
		{"email not verified", "/dashboard", unverifiedToken, http.StatusFound, "/login?message=Please%20verify%20your%20email%20before%20accessing%20the%20dashboard"},
		{"verified user", "/dashboard", verifiedToken, http.StatusOK, ""},
		{"verified user nested page", "/dashboard/reports/2024", verifiedToken, http.StatusOK, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+tc.path, nil)
			require.NoError(t, err)
			if tc.token != "" {
				req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: tc.token})
			}

			resp, err := client.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
			assert.Equal(t, tc.expectedLocation, resp.Header.Get("Location"))
		})
	}

	t.Run("unrouted paths under the prefix are still guarded", func(t *testing.T) {
		tests := []struct {
			name   string
			method string
			path   string
		}{
			{"prefix without separator", http.MethodGet, "/dashboardx"},
			{"method without a route", http.MethodHead, "/dashboard"},
			{"post to dashboard", http.MethodPost, "/dashboard/settings"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
				require.NoError(t, err)

				resp, err := client.Do(req)
				require.NoError(t, err)
				defer resp.Body.Close()

				assert.Equal(t, http.StatusFound, resp.StatusCode)
				assert.Equal(t, "/login", resp.Header.Get("Location"))
			})
		}
	})

	t.Run("verified user on unrouted prefix path gets not found", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/dashboardx", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: verifiedToken})

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Location"))
	})

	t.Run("readiness with supabase reachable", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestCORSMiddleware(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUpstreamMode(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.Upstream.URL = upstream.URL
	ts := newTestServer(t, cfg)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	t.Run("public page is proxied", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/pricing")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "/pricing", resp.Header.Get("X-Upstream-Path"))
	})

	t.Run("dashboard stays guarded", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/dashboard")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
		assert.Empty(t, resp.Header.Get("X-Upstream-Path"))
	})

	t.Run("probes are served locally", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-Upstream-Path"))
	})
}

// Test helpers

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	deps, err := app.NewDependencies(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(ctx) })

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	t.Cleanup(ts.Close)
	return ts
}

func createTestToken(t *testing.T) string {
	t.Helper()
	claims := &session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "user@example.com",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Supabase: config.SupabaseConfig{
			HTTPTimeout: 2 * time.Second,
			CookieName:  session.DefaultCookieName,
			RedirectOptions: config.RedirectOptions{
				Login:    "/login",
				Callback: "/confirm",
				Exclude:  []string{"/signup", "/reset-password", "/*"},
			},
		},
		Guard: config.GuardConfig{ProtectedPrefix: "/dashboard"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:*", "https://*"},
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}
