package accounts_test

import (
	"encoding/hex"
	"testing"
	"time"

	accounts "github.com/dailyflow/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateResetToken(t *testing.T) {
	raw, err := accounts.GenerateResetToken()
	require.NoError(t, err)

	decoded, err := hex.DecodeString(raw)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)

	other, err := accounts.GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}

func TestHashResetToken(t *testing.T) {
	raw := "d0a7e2f1c3b5a4968877665544332211d0a7e2f1c3b5a4968877665544332211"

	digest := accounts.HashResetToken(raw)
	assert.Len(t, digest, 64)
	assert.NotEqual(t, raw, digest)
	assert.Equal(t, digest, accounts.HashResetToken(raw), "digest must be deterministic")
	assert.NotEqual(t, digest, accounts.HashResetToken(raw+"x"))
}

func TestNewResetToken(t *testing.T) {
	accountID := uuid.New()
	raw, err := accounts.GenerateResetToken()
	require.NoError(t, err)

	token := accounts.NewResetToken(accountID, raw, 15*time.Minute)

	require.NotNil(t, token.AccountID)
	assert.Equal(t, accountID, *token.AccountID)
	assert.Equal(t, accounts.HashResetToken(raw), token.TokenHash)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)
}

func TestNewResetTokenDefaultTTL(t *testing.T) {
	token := accounts.NewResetToken(uuid.New(), "raw-token", 0)
	assert.WithinDuration(t, time.Now().Add(accounts.DefaultResetTokenDuration), token.ExpiresAt, 5*time.Second)
}

func TestResetTokenRedeemable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token accounts.ResetToken
		want  bool
	}{
		{
			name:  "fresh token",
			token: accounts.ResetToken{ExpiresAt: now.Add(10 * time.Minute)},
			want:  true,
		},
		{
			name:  "expired token",
			token: accounts.ResetToken{ExpiresAt: now.Add(-time.Minute)},
			want:  false,
		},
		{
			name:  "expiring this instant",
			token: accounts.ResetToken{ExpiresAt: now},
			want:  false,
		},
		{
			name: "already used",
			token: accounts.ResetToken{
				ExpiresAt: now.Add(10 * time.Minute),
				UsedAt:    &now,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Redeemable(now))
		})
	}
}

func TestResetTokenMarkUsed(t *testing.T) {
	now := time.Now()
	token := &accounts.ResetToken{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, token.Used())
	token.MarkUsed(now)
	assert.True(t, token.Used())
	assert.False(t, token.Redeemable(now))
}
