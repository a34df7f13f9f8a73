package accounts_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	accounts "github.com/dailyflow/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSignupHandlerCreatesAccount(t *testing.T) {
	original := accounts.BcryptCost()
	defer accounts.SetBcryptCost(original)
	accounts.SetBcryptCost(bcrypt.MinCost)

	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accs := &MockAccounts{}
	tokens := &MockTokenService{}
	mailer := newChanMailer()
	sink := &capturingSink{}

	handler := accounts.NewSignupHandler(repo, tokens).
		WithMailer(mailer).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	created := &accounts.Account{
		ID:       uuid.New(),
		FullName: "Pepe Rone",
		Email:    "pepe@example.com",
		Username: "pepe",
		IsActive: true,
	}

	repo.On("Accounts").Return(accs).Times(3)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).Once()

	accs.On("EmailExists", mock.Anything, "pepe@example.com").Return(false, nil).Once()
	accs.On("UsernameExists", mock.Anything, "pepe").Return(false, nil).Once()
	accs.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(record *accounts.Account) bool {
		if record.PasswordHash == "" || record.PasswordHash == "secret-password" {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte("secret-password")) == nil
	})).Return(created, nil).Once()

	pair := accounts.TokenPair{AccessToken: "access", RefreshToken: "refresh"}
	tokens.On("IssuePair", mock.MatchedBy(func(identity accounts.Identity) bool {
		return identity.ID() == created.ID.String() && identity.Email() == created.Email
	})).Return(pair, nil).Once()

	var resp *accounts.SignupResponse
	err := handler.Execute(ctx, accounts.SignupMessage{
		FullName: "  Pepe Rone  ",
		Email:    "PEPE@Example.com",
		Username: "pepe",
		Password: "secret-password",
		OnResponse: func(r *accounts.SignupResponse) {
			resp = r
		},
	})
	require.NoError(t, err)

	require.NotNil(t, resp)
	assert.Equal(t, created, resp.Account)
	assert.Equal(t, pair, resp.Tokens)

	require.Len(t, sink.events, 1)
	assert.Equal(t, accounts.ActivityEventSignup, sink.events[0].EventType)
	assert.Equal(t, created.ID.String(), sink.events[0].AccountID)

	select {
	case msg := <-mailer.sent:
		assert.Equal(t, "pepe@example.com", msg.recipient)
		assert.Equal(t, accounts.EmailWelcome, msg.kind)
		assert.Equal(t, "Pepe Rone", msg.data["full_name"])
	case <-time.After(2 * time.Second):
		t.Fatal("welcome email was never dispatched")
	}

	repo.AssertExpectations(t)
	accs.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestSignupHandlerRejectsDuplicateIdentity(t *testing.T) {
	original := accounts.BcryptCost()
	defer accounts.SetBcryptCost(original)
	accounts.SetBcryptCost(bcrypt.MinCost)

	tests := []struct {
		name        string
		emailTaken  bool
		userTaken   bool
		accountsFor int
	}{
		{name: "email already registered", emailTaken: true, accountsFor: 1},
		{name: "username already registered", userTaken: true, accountsFor: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &MockRepositoryManager{}
			accs := &MockAccounts{}
			tokens := &MockTokenService{}

			handler := accounts.NewSignupHandler(repo, tokens).WithLogger(testLogger{})

			repo.On("Accounts").Return(accs).Times(tc.accountsFor)
			repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
				Return(nil).Once()

			accs.On("EmailExists", mock.Anything, "pepe@example.com").Return(tc.emailTaken, nil).Once()
			if !tc.emailTaken {
				accs.On("UsernameExists", mock.Anything, "pepe").Return(tc.userTaken, nil).Once()
			}

			err := handler.Execute(context.Background(), accounts.SignupMessage{
				FullName: "Pepe Rone",
				Email:    "pepe@example.com",
				Username: "pepe",
				Password: "secret-password",
			})
			require.Error(t, err)
			assert.True(t, accounts.IsDuplicateIdentity(err))

			repo.AssertExpectations(t)
			accs.AssertExpectations(t)
			tokens.AssertNotCalled(t, "IssuePair", mock.Anything)
		})
	}
}

func TestSignupHandlerRejectsCancelledContext(t *testing.T) {
	repo := &MockRepositoryManager{}
	tokens := &MockTokenService{}

	handler := accounts.NewSignupHandler(repo, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, accounts.SignupMessage{
		FullName: "Pepe Rone",
		Email:    "pepe@example.com",
		Username: "pepe",
		Password: "secret-password",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}
