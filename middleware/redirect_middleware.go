package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/upb/dashboard-guard/guard"
	"github.com/upb/dashboard-guard/session"
	"go.uber.org/zap"
)

// RedirectOptions mirrors the Supabase module redirect settings
type RedirectOptions struct {
	Enabled  bool
	Login    string
	Callback string
	// Exclude holds path patterns that never redirect. '*' matches any
	// run of characters, '/' included, and a pattern must match the whole path.
	Exclude []string
}

// ModuleRedirect sends every anonymous request outside the excluded paths to the login page.
// It is independent of the dashboard guard and is off unless Enabled is set.
type ModuleRedirect struct {
	opts      RedirectOptions
	exclude   []*regexp.Regexp
	sessions  session.Accessor
	navigator guard.Navigator
	logger    *zap.Logger
}

// NewModuleRedirect creates a new ModuleRedirect. It fails on malformed exclusion patterns.
func NewModuleRedirect(opts RedirectOptions, sessions session.Accessor, navigator guard.Navigator, logger *zap.Logger) (*ModuleRedirect, error) {
	if opts.Login == "" {
		opts.Login = guard.DefaultLoginPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	exclude := make([]*regexp.Regexp, 0, len(opts.Exclude))
	for _, pattern := range opts.Exclude {
		re, err := compileExcludePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redirect exclude pattern %q: %w", pattern, err)
		}
		exclude = append(exclude, re)
	}

	return &ModuleRedirect{
		opts:      opts,
		exclude:   exclude,
		sessions:  sessions,
		navigator: navigator,
		logger:    logger,
	}, nil
}

// compileExcludePattern anchors pattern at both ends and turns each '*' into ".*".
// Every other character is literal.
func compileExcludePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}

// Handler is the middleware entry point
func (m *ModuleRedirect) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.opts.Enabled || m.isExcluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if m.sessions.CurrentSession(r) != nil {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Debug("anonymous request redirected to login",
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path))
		m.navigator.Navigate(w, r, m.opts.Login, nil)
	})
}

// isExcluded reports whether p is the login or callback page or matches an exclusion
func (m *ModuleRedirect) isExcluded(p string) bool {
	if p == m.opts.Login || (m.opts.Callback != "" && p == m.opts.Callback) {
		return true
	}
	for _, re := range m.exclude {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}
