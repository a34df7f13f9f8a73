package accounts

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultResetTokenDuration is how long a reset link stays redeemable.
const DefaultResetTokenDuration = 15 * time.Minute

const resetTokenBytes = 32

// GenerateResetToken returns the raw reset credential handed to the user.
// The raw value never touches the store; persist HashResetToken(raw) only.
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}
	return hex.EncodeToString(buf), nil
}

// HashResetToken produces the one-way digest under which a raw token is
// stored and later looked up.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewResetToken builds the stored record for a raw token issued to the
// given account, expiring after ttl.
func NewResetToken(accountID uuid.UUID, raw string, ttl time.Duration) *ResetToken {
	if ttl <= 0 {
		ttl = DefaultResetTokenDuration
	}

	return &ResetToken{
		AccountID: &accountID,
		TokenHash: HashResetToken(raw),
		ExpiresAt: time.Now().Add(ttl),
	}
}
