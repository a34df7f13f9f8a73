package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload carried by access tokens: enough identity to
// render a session without a store lookup.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// AccountID returns the account identifier, preferring the uid claim.
func (c *AccessClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issuedime returns the issued at time
func (c *AccessClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// RefreshClaims is the minimal payload carried by refresh tokens.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// AccountID returns the account identifier, preferring the uid claim.
func (c *RefreshClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}
