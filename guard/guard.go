// Package guard decides whether a navigation to the protected area of the
// site may proceed or must be sent back to the login page.
//
// A decision is computed fresh for every request. The guard reads the session
// handle and a freshly fetched user record and never writes either.
package guard

import (
	"context"
	"net/url"
	"strings"

	"github.com/upb/dashboard-guard/session"
	"github.com/upb/dashboard-guard/supabase"
	"go.uber.org/zap"
)

const (
	// DefaultProtectedPrefix is the path prefix gated by the guard
	DefaultProtectedPrefix = "/dashboard"

	// DefaultLoginPath is where rejected navigations are sent
	DefaultLoginPath = "/login"

	// MessageQueryKey is the login page query parameter carrying the reason
	MessageQueryKey = "message"

	// MessageSessionExpired is shown when the identity service rejects or cannot confirm the session
	MessageSessionExpired = "Your session has expired. Please login again."

	// MessageVerifyEmail is shown when the user has not confirmed their email address
	MessageVerifyEmail = "Please verify your email before accessing the dashboard"
)

// State is the position of a single navigation in the access check
type State int

const (
	StateUnchecked State = iota
	StateNoSession
	StateChecking
	StateVerified
	StateUnverified
	StateFetchFailed
)

func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateNoSession:
		return "no_session"
	case StateChecking:
		return "checking"
	case StateVerified:
		return "verified"
	case StateUnverified:
		return "unverified"
	case StateFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a check
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeRedirectLogin
)

func (o Outcome) String() string {
	if o == OutcomeRedirectLogin {
		return "redirect_login"
	}
	return "allow"
}

// Redirect describes where a rejected navigation goes
type Redirect struct {
	Path  string
	Query url.Values
}

// Message returns the human readable reason attached to the redirect, if any
func (r *Redirect) Message() string {
	if r == nil {
		return ""
	}
	return r.Query.Get(MessageQueryKey)
}

// Decision is the result of evaluating one navigation
type Decision struct {
	State    State
	Outcome  Outcome
	Redirect *Redirect

	// User is set only when the check passed
	User *supabase.User

	// Err holds the identity service failure behind a StateFetchFailed decision
	Err error
}

// Allowed reports whether navigation may proceed
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// IdentityClient fetches the authoritative user record for an access token
type IdentityClient interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// Options configures the guard
type Options struct {
	ProtectedPrefix string
	LoginPath       string
}

// Guard gates navigations under the protected prefix
type Guard struct {
	client IdentityClient
	prefix string
	login  string
	logger *zap.Logger
}

// New creates a new Guard. Empty options fall back to the defaults.
func New(client IdentityClient, opts Options, logger *zap.Logger) *Guard {
	if opts.ProtectedPrefix == "" {
		opts.ProtectedPrefix = DefaultProtectedPrefix
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Guard{
		client: client,
		prefix: opts.ProtectedPrefix,
		login:  opts.LoginPath,
		logger: logger,
	}
}

// ProtectedPrefix returns the gated path prefix
func (g *Guard) ProtectedPrefix() string {
	return g.prefix
}

// LoginPath returns the redirect destination for rejected navigations
func (g *Guard) LoginPath() string {
	return g.login
}

// Protects reports whether path falls under the protected prefix
func (g *Guard) Protects(path string) bool {
	return strings.HasPrefix(path, g.prefix)
}

// Evaluate decides whether navigation to path may proceed for the given session.
// A nil session means the request is not logged in.
func (g *Guard) Evaluate(ctx context.Context, path string, sess *session.Session) Decision {
	if !g.Protects(path) {
		return Decision{State: StateUnchecked, Outcome: OutcomeAllow}
	}

	if sess == nil {
		return g.redirect(StateNoSession, "")
	}

	// StateChecking: the only suspension point
	user, err := g.client.GetUser(ctx, sess.AccessToken)
	if err != nil {
		g.logger.Debug("identity fetch failed",
			zap.String("path", path),
			zap.String("sub", sess.Subject.String()),
			zap.Error(err))
		d := g.redirect(StateFetchFailed, MessageSessionExpired)
		d.Err = err
		return d
	}

	if !user.IsEmailVerified() {
		return g.redirect(StateUnverified, MessageVerifyEmail)
	}

	return Decision{State: StateVerified, Outcome: OutcomeAllow, User: user}
}

func (g *Guard) redirect(state State, message string) Decision {
	r := &Redirect{Path: g.login}
	if message != "" {
		r.Query = url.Values{MessageQueryKey: {message}}
	}
	return Decision{State: state, Outcome: OutcomeRedirectLogin, Redirect: r}
}
