package accounts_test

import (
	"context"
	"database/sql"

	accounts "github.com/dailyflow/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockAccountTracker implements accounts.AccountTracker
type MockAccountTracker struct {
	mock.Mock
}

func (m *MockAccountTracker) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.Account), args.Error(1)
}

func (m *MockAccountTracker) TrackAttemptedLogin(ctx context.Context, account *accounts.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountTracker) TrackSuccessfulLogin(ctx context.Context, account *accounts.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockTokenService implements accounts.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssuePair(identity accounts.Identity) (accounts.TokenPair, error) {
	args := m.Called(identity)
	return args.Get(0).(accounts.TokenPair), args.Error(1)
}

func (m *MockTokenService) SignAccessToken(identity accounts.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) SignRefreshToken(identity accounts.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(token string) (*accounts.AccessClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.AccessClaims), args.Error(1)
}

func (m *MockTokenService) ValidateRefresh(token string) (*accounts.RefreshClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.RefreshClaims), args.Error(1)
}

// MockActivitySink implements accounts.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event accounts.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type sentEmail struct {
	recipient string
	kind      accounts.EmailKind
	data      map[string]any
}

// chanMailer lets tests wait for the asynchronous email dispatch.
type chanMailer struct {
	sent chan sentEmail
}

func newChanMailer() *chanMailer {
	return &chanMailer{sent: make(chan sentEmail, 1)}
}

func (m *chanMailer) Send(_ context.Context, recipient string, kind accounts.EmailKind, data map[string]any) accounts.DeliveryResult {
	m.sent <- sentEmail{recipient: recipient, kind: kind, data: data}
	return accounts.DeliveryResult{Success: true}
}

// capturingSink collects events without expectations.
type capturingSink struct {
	events []accounts.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt accounts.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

// MockAccounts mocks the methods the handlers exercise; the embedded
// interface covers the rest of the repository surface.
type MockAccounts struct {
	accounts.Accounts
	mock.Mock
}

func (m *MockAccounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.Account), args.Error(1)
}

func (m *MockAccounts) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.Account, criteria ...repository.InsertCriteria) (*accounts.Account, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.Account), args.Error(1)
}

func (m *MockAccounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

// MockResetTokens mocks the reset token store.
type MockResetTokens struct {
	accounts.ResetTokens
	mock.Mock
}

func (m *MockResetTokens) GetByHashTx(ctx context.Context, tx bun.IDB, hash string) (*accounts.ResetToken, error) {
	args := m.Called(ctx, tx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.ResetToken), args.Error(1)
}

func (m *MockResetTokens) MarkUsedTx(ctx context.Context, tx bun.IDB, token *accounts.ResetToken) error {
	args := m.Called(ctx, tx, token)
	return args.Error(0)
}

func (m *MockResetTokens) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.ResetToken, criteria ...repository.InsertCriteria) (*accounts.ResetToken, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.ResetToken), args.Error(1)
}

// MockRepositoryManager mocks the repository manager; RunInTx invokes the
// callback with a zero transaction so the store mocks see the call.
type MockRepositoryManager struct {
	accounts.RepositoryManager
	mock.Mock
}

func (m *MockRepositoryManager) Accounts() accounts.Accounts {
	args := m.Called()
	return args.Get(0).(accounts.Accounts)
}

func (m *MockRepositoryManager) ResetTokens() accounts.ResetTokens {
	args := m.Called()
	return args.Get(0).(accounts.ResetTokens)
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(context.Context, bun.Tx) error) error {
	args := m.Called(ctx, opts, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	var tx bun.Tx
	return fn(ctx, tx)
}
