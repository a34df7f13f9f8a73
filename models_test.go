package accounts

import (
	"testing"
	"time"
)

func TestAccountNormalizeIdentity(t *testing.T) {
	a := &Account{
		FullName: "  Pepe Rone ",
		Email:    " PEPE@Example.COM ",
		Username: " pepe ",
	}

	a.NormalizeIdentity()

	if a.Email != "pepe@example.com" {
		t.Fatalf("expected canonical email, got %q", a.Email)
	}
	if a.Username != "pepe" {
		t.Fatalf("expected trimmed username, got %q", a.Username)
	}
	if a.FullName != "Pepe Rone" {
		t.Fatalf("expected trimmed full name, got %q", a.FullName)
	}
}

func TestAccountLockedBoundaries(t *testing.T) {
	now := time.Now()
	until := now.Add(15 * time.Minute)

	cases := []struct {
		name        string
		lockedUntil *time.Time
		at          time.Time
		locked      bool
		expired     bool
	}{
		{
			name:   "never locked",
			at:     now,
			locked: false,
		},
		{
			name:        "inside the window",
			lockedUntil: &until,
			at:          now,
			locked:      true,
		},
		{
			name:        "exactly at expiry",
			lockedUntil: &until,
			at:          until,
			locked:      true,
		},
		{
			name:        "just past expiry",
			lockedUntil: &until,
			at:          until.Add(time.Nanosecond),
			locked:      false,
			expired:     true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &Account{LockedUntil: tc.lockedUntil}
			if got := a.Locked(tc.at); got != tc.locked {
				t.Fatalf("Locked returned %t, expected %t", got, tc.locked)
			}
			if got := a.LockExpired(tc.at); got != tc.expired {
				t.Fatalf("LockExpired returned %t, expected %t", got, tc.expired)
			}
		})
	}
}

func TestResetTokenLifecycle(t *testing.T) {
	token := &ResetToken{ExpiresAt: time.Now().Add(time.Hour)}

	if token.Used() {
		t.Fatal("fresh token should not be used")
	}
	if !token.Redeemable(time.Now()) {
		t.Fatal("fresh token should be redeemable")
	}

	token.MarkUsed(time.Now())

	if !token.Used() {
		t.Fatal("token should be used after MarkUsed")
	}
	if token.Redeemable(time.Now()) {
		t.Fatal("used token should not be redeemable")
	}
}
