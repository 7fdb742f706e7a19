package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/upb/dashboard-guard/config"
	"github.com/upb/dashboard-guard/guard"
	"github.com/upb/dashboard-guard/middleware"
	"github.com/upb/dashboard-guard/session"
	"github.com/upb/dashboard-guard/supabase"
	"go.uber.org/zap"
)

// IdentityService is the remote identity provider as the gateway uses it
type IdentityService interface {
	guard.IdentityClient
	Health(ctx context.Context) error
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Identity
	Identity IdentityService
	Sessions session.Accessor

	// Access control
	Guard           *guard.Guard
	GuardMiddleware *middleware.GuardMiddleware
	ModuleRedirect  *middleware.ModuleRedirect

	// Upstream is nil when the built-in pages are served
	Upstream http.Handler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initIdentity(cfg)

	if err := deps.initGuard(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize guard: %w", err)
	}

	if err := deps.initUpstream(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize upstream: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initIdentity initializes the Supabase client and the session accessor
func (d *Dependencies) initIdentity(cfg *config.Config) {
	d.Sessions = session.NewCookieAccessor(cfg.Supabase.CookieName)

	if !cfg.Supabase.IsConfigured() {
		d.Logger.Warn("supabase not configured, protected pages will redirect to login")
		// Every lookup fails so guarded navigations land on the session expired message
		d.Identity = &unconfiguredIdentity{}
		return
	}

	d.Identity = supabase.NewClient(supabase.Config{
		URL:         cfg.Supabase.URL,
		AnonKey:     cfg.Supabase.Key,
		HTTPTimeout: cfg.Supabase.HTTPTimeout,
	})
	d.Logger.Info("supabase client initialized",
		zap.String("supabase", cfg.Supabase.LogString()))
}

// initGuard wires the route guard and the module level redirect
func (d *Dependencies) initGuard(cfg *config.Config) error {
	navigator := guard.RedirectNavigator{}

	d.Guard = guard.New(d.Identity, guard.Options{
		ProtectedPrefix: cfg.Guard.ProtectedPrefix,
		LoginPath:       cfg.Supabase.RedirectOptions.Login,
	}, d.Logger)
	d.GuardMiddleware = middleware.NewGuardMiddleware(d.Guard, d.Sessions, navigator, d.Logger)

	redirect, err := middleware.NewModuleRedirect(middleware.RedirectOptions{
		Enabled:  cfg.Supabase.Redirect,
		Login:    cfg.Supabase.RedirectOptions.Login,
		Callback: cfg.Supabase.RedirectOptions.Callback,
		Exclude:  cfg.Supabase.RedirectOptions.Exclude,
	}, d.Sessions, navigator, d.Logger)
	if err != nil {
		return err
	}
	d.ModuleRedirect = redirect

	d.Logger.Info("route guard initialized",
		zap.String("protected_prefix", d.Guard.ProtectedPrefix()),
		zap.String("login_path", d.Guard.LoginPath()),
		zap.Bool("module_redirect", cfg.Supabase.Redirect))
	return nil
}

// initUpstream builds the reverse proxy to the web application if one is configured
func (d *Dependencies) initUpstream(cfg *config.Config) error {
	if cfg.Upstream.URL == "" {
		return nil
	}

	proxy, err := newUpstreamProxy(cfg.Upstream.URL, d.Logger)
	if err != nil {
		return err
	}
	d.Upstream = proxy

	d.Logger.Info("upstream proxy initialized", zap.String("upstream", cfg.Upstream.URL))
	return nil
}

// unconfiguredIdentity fails every call (used when Supabase is not configured)
type unconfiguredIdentity struct{}

func (*unconfiguredIdentity) GetUser(context.Context, string) (*supabase.User, error) {
	return nil, supabase.ErrNotConfigured
}

func (*unconfiguredIdentity) Health(context.Context) error {
	return supabase.ErrNotConfigured
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
