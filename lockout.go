package accounts

import (
	"time"
)

// LockoutState describes where an account sits in the lockout lifecycle.
type LockoutState string

const (
	// LockoutNormal means the account can attempt to authenticate.
	LockoutNormal LockoutState = "normal"
	// LockoutLocked means the lock window is active and logins are rejected.
	LockoutLocked LockoutState = "locked"
)

const (
	// DefaultLockoutThreshold is the number of consecutive failures that
	// trigger a lock.
	DefaultLockoutThreshold = 5
	// DefaultLockoutDuration is how long a triggered lock lasts.
	DefaultLockoutDuration = 15 * time.Minute
)

// LockoutMachine drives the failed-attempt counter and lock window on an
// Account. It mutates the record in memory; persistence is the caller's
// concern so counter updates can ride the store's atomic writes.
type LockoutMachine struct {
	threshold int
	duration  time.Duration
	now       func() time.Time
}

// LockoutOption customizes machine construction.
type LockoutOption func(*LockoutMachine)

// WithLockoutThreshold overrides the failure threshold.
func WithLockoutThreshold(threshold int) LockoutOption {
	return func(m *LockoutMachine) {
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

// WithLockoutDuration overrides the lock window length.
func WithLockoutDuration(duration time.Duration) LockoutOption {
	return func(m *LockoutMachine) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

// WithLockoutClock injects a custom clock (useful for tests).
func WithLockoutClock(clock func() time.Time) LockoutOption {
	return func(m *LockoutMachine) {
		if clock != nil {
			m.now = clock
		}
	}
}

// LockoutOptionsFromConfig maps the configured threshold and window onto
// machine options. Zero or negative values keep the defaults.
func LockoutOptionsFromConfig(cfg Config) []LockoutOption {
	return []LockoutOption{
		WithLockoutThreshold(cfg.GetLockoutThreshold()),
		WithLockoutDuration(cfg.GetLockoutDuration()),
	}
}

// NewLockoutMachine returns a machine with the default threshold and window.
func NewLockoutMachine(opts ...LockoutOption) *LockoutMachine {
	m := &LockoutMachine{
		threshold: DefaultLockoutThreshold,
		duration:  DefaultLockoutDuration,
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Threshold returns the configured failure threshold.
func (m *LockoutMachine) Threshold() int {
	return m.threshold
}

// State derives the current lockout state from the account record.
func (m *LockoutMachine) State(account *Account) LockoutState {
	if account.Locked(m.now()) {
		return LockoutLocked
	}
	return LockoutNormal
}

// RemainingMinutes reports how long until the lock lifts, rounded up.
// While the account is locked the result is always at least 1.
func (m *LockoutMachine) RemainingMinutes(account *Account) int {
	now := m.now()
	if !account.Locked(now) {
		return 0
	}

	remaining := account.LockedUntil.Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// RecordFailure applies a failed verification to the account and returns
// the resulting state. A failure arriving after an expired lock restarts
// the counter at 1 rather than 0, so the stale lock does not grant a free
// attempt.
func (m *LockoutMachine) RecordFailure(account *Account) LockoutState {
	now := m.now()

	if account.LockExpired(now) {
		account.FailedLogins = 1
		account.LockedUntil = nil
		return LockoutNormal
	}

	account.FailedLogins++

	if account.FailedLogins >= m.threshold && !account.Locked(now) {
		until := now.Add(m.duration)
		account.LockedUntil = &until
	}

	return m.State(account)
}

// RecordSuccess clears the counter and lock and stamps the login time.
func (m *LockoutMachine) RecordSuccess(account *Account) {
	now := m.now()
	account.FailedLogins = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now
}
