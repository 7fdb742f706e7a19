package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultCookieName is the access token cookie written by the Supabase web client
const DefaultCookieName = "sb-access-token"

// ErrMissingClaim is returned when a required claim is missing
var ErrMissingClaim = errors.New("missing required claim")

// Session is a handle to the principal the request claims to be.
// It says nothing about freshness; the identity service decides that.
type Session struct {
	AccessToken string
	Subject     uuid.UUID
	Email       string
	ExpiresAt   time.Time
}

// Accessor resolves the current session for a request. A nil session means
// the request is not logged in.
type Accessor interface {
	CurrentSession(r *http.Request) *Session
}

// Claims are the access token claims issued by Supabase auth
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CookieAccessor reads the access token from the Authorization header or the session cookie
type CookieAccessor struct {
	cookieName string
}

// NewCookieAccessor creates a new CookieAccessor. An empty cookie name selects DefaultCookieName.
func NewCookieAccessor(cookieName string) *CookieAccessor {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &CookieAccessor{cookieName: cookieName}
}

// CurrentSession returns the session handle carried by the request, or nil
func (a *CookieAccessor) CurrentSession(r *http.Request) *Session {
	token := a.extractToken(r)
	if token == "" {
		return nil
	}

	sess, err := FromToken(token)
	if err != nil {
		return nil
	}
	return sess
}

// FromToken decodes an access token into a session handle without verifying
// its signature. Expired tokens still produce a handle.
func FromToken(token string) (*Session, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid sub UUID: %w", err)
	}

	sess := &Session{
		AccessToken: token,
		Subject:     sub,
		Email:       claims.Email,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// extractToken extracts the token from the Authorization header ("Bearer TOKEN") or the session cookie.
// The header takes precedence when both are present.
func (a *CookieAccessor) extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(a.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
