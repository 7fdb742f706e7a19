package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/dashboard-guard/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Supabase      SupabaseConfig
	Guard         GuardConfig
	Upstream      UpstreamConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string `validate:"required"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int           `validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `validate:"gte=0"`
	WriteTimeout    time.Duration `validate:"gte=0"`
	ShutdownTimeout time.Duration `validate:"gte=0"`
}

// SupabaseConfig holds the public runtime settings of the Supabase project
type SupabaseConfig struct {
	URL         string `validate:"omitempty,url"`
	Key         string
	HTTPTimeout time.Duration `validate:"gte=0"`
	CookieName  string
	Redirect    bool
	// RedirectOptions apply only when Redirect is enabled
	RedirectOptions RedirectOptions
}

// RedirectOptions configures the Supabase module login redirect
type RedirectOptions struct {
	Login    string `validate:"required,startswith=/"`
	Callback string `validate:"omitempty,startswith=/"`
	Exclude  []string
}

// GuardConfig configures the dashboard access guard
type GuardConfig struct {
	ProtectedPrefix string `validate:"required,startswith=/"`
}

// UpstreamConfig points at the web application served behind the gateway.
// When URL is empty the built-in pages are served instead.
type UpstreamConfig struct {
	URL string `validate:"omitempty,url"`
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `validate:"required"`
	LogFormat string `validate:"omitempty,oneof=json console text"`
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Supabase: SupabaseConfig{
			URL:         getEnv("SUPABASE_URL", ""),
			Key:         getEnv("SUPABASE_KEY", ""),
			HTTPTimeout: getEnvAsDuration("SUPABASE_HTTP_TIMEOUT", 10*time.Second),
			CookieName:  getEnv("SUPABASE_COOKIE_NAME", "sb-access-token"),
			Redirect:    getEnvAsBool("SUPABASE_REDIRECT", false),
			RedirectOptions: RedirectOptions{
				Login:    getEnv("SUPABASE_LOGIN_PATH", "/login"),
				Callback: getEnv("SUPABASE_CALLBACK_PATH", "/confirm"),
				Exclude:  getEnvAsList("SUPABASE_REDIRECT_EXCLUDE", []string{"/signup", "/reset-password", "/*"}),
			},
		},
		Guard: GuardConfig{
			ProtectedPrefix: getEnv("PROTECTED_PREFIX", "/dashboard"),
		},
		Upstream: UpstreamConfig{
			URL: getEnv("UPSTREAM_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		if fields := utils.GetValidationFields(err); len(fields) > 0 {
			return fmt.Errorf("%s: %v", err.Error(), fields)
		}
		return err
	}

	// Supabase credentials are required in production
	if c.IsProduction() {
		if c.Supabase.URL == "" {
			return fmt.Errorf("supabase url is required in production")
		}
		if c.Supabase.Key == "" {
			return fmt.Errorf("supabase key is required in production")
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsConfigured reports whether both the project URL and key are set
func (c *SupabaseConfig) IsConfigured() bool {
	return c.URL != "" && c.Key != ""
}

// LogString returns a safe string for logging (no key)
func (c *SupabaseConfig) LogString() string {
	if c.URL == "" {
		return "url=<unset>"
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return "url=<invalid>"
	}
	return fmt.Sprintf("host=%s key_set=%t", u.Host, c.Key != "")
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 3000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 3000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
