package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/dailyflow/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSessionObject(t *testing.T) {
	accountID := uuid.New().String()
	now := time.Now()
	expires := now.Add(7 * 24 * time.Hour)

	session := &accounts.SessionObject{
		AccountID:      accountID,
		Email:          "pepe@example.com",
		Username:       "pepe",
		Issuer:         "test-issuer",
		IssuedAt:       &now,
		ExpirationDate: &expires,
	}

	assert.Equal(t, accountID, session.GetAccountID())

	accountUUID, err := session.GetAccountUUID()
	assert.NoError(t, err)
	assert.Equal(t, accountID, accountUUID.String())

	assert.Equal(t, "pepe@example.com", session.GetEmail())
	assert.Equal(t, "pepe", session.GetUsername())
	assert.Equal(t, "test-issuer", session.GetIssuer())
	assert.Equal(t, &now, session.GetIssuedAt())
	assert.Equal(t, &expires, session.GetExpiration())

	assert.True(t, accounts.HasAccountUUID(session))
}

func TestSessionObjectRejectsBadAccountID(t *testing.T) {
	session := &accounts.SessionObject{AccountID: "not-a-uuid"}

	_, err := session.GetAccountUUID()
	assert.Error(t, err)
	assert.False(t, accounts.HasAccountUUID(session))
}
