package pinauth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record. It is created once, by the final
// registration step, and never mutated by the auth flow afterwards.
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name            string     `bun:"name,notnull" json:"name,omitempty"`
	Email           string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PinHash         string     `bun:"pin_hash,notnull" json:"-"`
	EmailVerifiedAt *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Profile returns the minimal public projection used in API responses.
func (u *User) Profile() map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":    u.ID.String(),
		"name":  u.Name,
		"email": u.Email,
	}
}

// OtpRegistration is the transient record backing the registration flow,
// keyed by email with at most one active record per email. It is deleted
// in the same transaction that creates the User.
type OtpRegistration struct {
	bun.BaseModel `bun:"table:otp_registrations,alias:otp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	OtpHash       string     `bun:"otp_hash,notnull" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	IsVerified    bool       `bun:"is_verified,notnull,default:false" json:"is_verified,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the record's expiry has passed. Expired
// unverified records are inert: they are treated as absent for
// verification even if the row still exists.
func (o *OtpRegistration) Expired(now time.Time) bool {
	if o == nil {
		return true
	}
	return !o.ExpiresAt.After(now)
}

// VerifyCode compares a plaintext code against the stored hash. The record
// only ever holds the hash; this is the single way to match a code.
func (o *OtpRegistration) VerifyCode(code string) error {
	if o == nil {
		return ErrMismatchedHashAndPassword
	}
	return CompareSecretAndHash(code, o.OtpHash)
}

// HasName reports whether the name step has been completed.
func (o *OtpRegistration) HasName() bool {
	return o != nil && strings.TrimSpace(o.Name) != ""
}

// AccessToken is the persisted half of a bearer token. A token is valid
// only while its row exists, so deleting the row revokes exactly that
// token and leaves the user's other devices untouched.
type AccessToken struct {
	bun.BaseModel `bun:"table:access_tokens,alias:tok"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	LastUsedAt    *time.Time `bun:"last_used_at,nullzero" json:"last_used_at,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
