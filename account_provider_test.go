package accounts_test

import (
	"context"
	"testing"
	"time"

	accounts "github.com/dailyflow/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "hunter2-but-longer"

func activeAccount(t *testing.T) *accounts.Account {
	t.Helper()

	hash, err := accounts.HashPassword(testPassword)
	require.NoError(t, err)

	return &accounts.Account{
		ID:           uuid.New(),
		Email:        "pepe@example.com",
		Username:     "pepe",
		PasswordHash: hash,
		IsActive:     true,
	}
}

func TestVerifyIdentitySuccess(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)
	account := activeAccount(t)

	store.On("GetByIdentifier", ctx, "pepe@example.com").Return(account, nil).Once()
	store.On("TrackSuccessfulLogin", ctx, account).Return(nil).Once()

	provider := accounts.NewAccountProvider(store).WithLogger(testLogger{})

	got, err := provider.VerifyIdentity(ctx, "pepe@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, 0, got.FailedLogins)
	assert.NotNil(t, got.LastLoginAt)

	store.AssertExpectations(t)
}

func TestVerifyIdentityUnknownAccount(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)

	store.On("GetByIdentifier", ctx, "ghost@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()

	provider := accounts.NewAccountProvider(store).WithLogger(testLogger{})

	_, err := provider.VerifyIdentity(ctx, "ghost@example.com", "anything")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
}

func TestVerifyIdentityWrongPassword(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)
	account := activeAccount(t)

	store.On("GetByIdentifier", ctx, "pepe").Return(account, nil).Once()
	store.On("TrackAttemptedLogin", ctx, account).Return(nil).Once()

	provider := accounts.NewAccountProvider(store).WithLogger(testLogger{})

	_, err := provider.VerifyIdentity(ctx, "pepe", "wrong password")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	assert.Equal(t, 1, account.FailedLogins)

	store.AssertExpectations(t)
}

func TestVerifyIdentityErrorDoesNotRevealExistence(t *testing.T) {
	ctx := context.Background()
	account := activeAccount(t)

	missStore := new(MockAccountTracker)
	missStore.On("GetByIdentifier", ctx, "ghost").
		Return(nil, repository.NewRecordNotFound()).Once()

	hitStore := new(MockAccountTracker)
	hitStore.On("GetByIdentifier", ctx, "pepe").Return(account, nil).Once()
	hitStore.On("TrackAttemptedLogin", ctx, account).Return(nil).Once()

	_, missErr := accounts.NewAccountProvider(missStore).
		WithLogger(testLogger{}).
		VerifyIdentity(ctx, "ghost", "whatever")
	_, hitErr := accounts.NewAccountProvider(hitStore).
		WithLogger(testLogger{}).
		VerifyIdentity(ctx, "pepe", "bad password")

	assert.Equal(t, missErr.Error(), hitErr.Error())
}

func TestVerifyIdentityInactiveAccount(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)
	account := activeAccount(t)
	account.IsActive = false

	store.On("GetByIdentifier", ctx, "pepe").Return(account, nil).Once()

	provider := accounts.NewAccountProvider(store).WithLogger(testLogger{})

	_, err := provider.VerifyIdentity(ctx, "pepe", testPassword)
	assert.ErrorIs(t, err, accounts.ErrAccountInactive)
}

func TestVerifyIdentityLocksAfterThreshold(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)
	account := activeAccount(t)
	sink := &capturingSink{}

	store.On("GetByIdentifier", ctx, "pepe").Return(account, nil).Times(5)
	store.On("TrackAttemptedLogin", ctx, account).Return(nil).Times(5)

	provider := accounts.NewAccountProvider(store).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	for i := 0; i < 4; i++ {
		_, err := provider.VerifyIdentity(ctx, "pepe", "bad password")
		assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	}

	_, err := provider.VerifyIdentity(ctx, "pepe", "bad password")
	require.Error(t, err)
	assert.True(t, accounts.IsAccountLocked(err))
	assert.NotNil(t, account.LockedUntil)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, 15, richErr.Metadata["retry_after_minutes"])

	var locked int
	for _, evt := range sink.events {
		if evt.EventType == accounts.ActivityEventAccountLocked {
			locked++
		}
	}
	assert.Equal(t, 1, locked)

	store.AssertExpectations(t)
}

type lockoutConfig struct {
	testConfig
	threshold int
	duration  time.Duration
}

func (c lockoutConfig) GetLockoutThreshold() int          { return c.threshold }
func (c lockoutConfig) GetLockoutDuration() time.Duration { return c.duration }

func TestVerifyIdentityHonorsConfiguredThreshold(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)
	account := activeAccount(t)
	cfg := lockoutConfig{threshold: 3, duration: 30 * time.Minute}

	store.On("GetByIdentifier", ctx, "pepe").Return(account, nil).Times(3)
	store.On("TrackAttemptedLogin", ctx, account).Return(nil).Times(3)

	provider := accounts.NewAccountProviderFromConfig(store, cfg).WithLogger(testLogger{})

	for i := 0; i < 2; i++ {
		_, err := provider.VerifyIdentity(ctx, "pepe", "bad password")
		assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	}

	_, err := provider.VerifyIdentity(ctx, "pepe", "bad password")
	require.Error(t, err)
	assert.True(t, accounts.IsAccountLocked(err))
	assert.NotNil(t, account.LockedUntil)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, 30, richErr.Metadata["retry_after_minutes"])

	store.AssertExpectations(t)
}

func TestVerifyIdentityRejectsWhileLocked(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)
	account := activeAccount(t)
	until := time.Now().Add(10 * time.Minute)
	account.FailedLogins = 5
	account.LockedUntil = &until

	store.On("GetByIdentifier", ctx, "pepe").Return(account, nil).Once()

	provider := accounts.NewAccountProvider(store).WithLogger(testLogger{})

	// Even the correct password is rejected while the window is active.
	_, err := provider.VerifyIdentity(ctx, "pepe", testPassword)
	assert.True(t, accounts.IsAccountLocked(err))
}

func TestVerifyIdentityRecoversAfterLockExpiry(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)
	account := activeAccount(t)
	until := time.Now().Add(-time.Minute)
	account.FailedLogins = 5
	account.LockedUntil = &until

	store.On("GetByIdentifier", ctx, "pepe").Return(account, nil).Once()
	store.On("TrackSuccessfulLogin", ctx, account).Return(nil).Once()

	provider := accounts.NewAccountProvider(store).WithLogger(testLogger{})

	got, err := provider.VerifyIdentity(ctx, "pepe", testPassword)
	require.NoError(t, err)
	assert.Equal(t, 0, got.FailedLogins)
	assert.Nil(t, got.LockedUntil)
}

func TestFindByIdentifier(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountTracker)
	account := activeAccount(t)

	store.On("GetByIdentifier", ctx, "pepe").Return(account, nil).Once()
	store.On("GetByIdentifier", ctx, "ghost").
		Return(nil, repository.NewRecordNotFound()).Once()

	provider := accounts.NewAccountProvider(store).WithLogger(testLogger{})

	got, err := provider.FindByIdentifier(ctx, "pepe")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	_, err = provider.FindByIdentifier(ctx, "ghost")
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}
