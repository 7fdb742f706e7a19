package supabase

import (
	"time"

	"github.com/google/uuid"
)

// User is the subset of the GoTrue user object the gateway relies on
type User struct {
	ID               uuid.UUID              `json:"id"`
	Aud              string                 `json:"aud"`
	Role             string                 `json:"role"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at"`
	LastSignInAt     *time.Time             `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
}

// IsEmailVerified reports whether the user has a confirmation timestamp
func (u *User) IsEmailVerified() bool {
	return u != nil && u.EmailConfirmedAt != nil
}
