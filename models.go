package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the user account model
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acct"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FullName          string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Phone             string     `bun:"phone_number" json:"phone_number,omitempty"`
	Bio               string     `bun:"bio" json:"bio,omitempty"`
	DailyReminderTime string     `bun:"daily_reminder_time" json:"daily_reminder_time,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	IsActive          bool       `bun:"is_active" json:"is_active"`
	LastLoginAt       *time.Time `bun:"last_login_at" json:"last_login_at,omitempty"`
	FailedLogins      int        `bun:"failed_logins" json:"-"`
	LockedUntil       *time.Time `bun:"locked_until,nullzero" json:"-"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// NormalizeIdentity lowercases the email and trims identity fields so every
// uniqueness check sees the same canonical values.
func (a *Account) NormalizeIdentity() *Account {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Username = strings.TrimSpace(a.Username)
	a.FullName = strings.TrimSpace(a.FullName)
	return a
}

// Locked reports whether the lockout window is still active at now.
// An attempt arriving exactly at the expiry instant is still locked; the
// clock must move strictly past LockedUntil to unlock.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && !now.After(*a.LockedUntil)
}

// LockExpired reports whether a lock was set and its window has elapsed.
func (a *Account) LockExpired(now time.Time) bool {
	return a.LockedUntil != nil && now.After(*a.LockedUntil)
}

// ResetToken is the stored form of a password reset credential. The raw
// value handed to the user is never persisted; only its SHA-256 digest is.
type ResetToken struct {
	bun.BaseModel `bun:"table:reset_tokens,alias:rst"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     *uuid.UUID `bun:"account_id,notnull" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:has-one,join:account_id=id" json:"account,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull,unique" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	UsedAt        *time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Used reports whether the token was already redeemed.
func (t *ResetToken) Used() bool {
	return t.UsedAt != nil
}

// Redeemable reports whether the token can still be spent at now.
func (t *ResetToken) Redeemable(now time.Time) bool {
	return !t.Used() && now.Before(t.ExpiresAt)
}

// MarkUsed stamps the token as redeemed.
func (t *ResetToken) MarkUsed(now time.Time) *ResetToken {
	t.UsedAt = &now
	return t
}
