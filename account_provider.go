package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// AccountTracker is a store we can use to retrieve accounts and persist
// login bookkeeping.
type AccountTracker interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error)
	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

// AccountProvider verifies credentials against the store while driving the
// lockout machine.
type AccountProvider struct {
	store    AccountTracker
	lockout  *LockoutMachine
	logger   Logger
	activity ActivitySink
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountTracker, opts ...LockoutOption) *AccountProvider {
	return &AccountProvider{
		store:    store,
		lockout:  NewLockoutMachine(opts...),
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

// NewAccountProviderFromConfig builds a provider whose lockout machine
// honors the configured failure threshold and lock window.
func NewAccountProviderFromConfig(store AccountTracker, cfg Config) *AccountProvider {
	return NewAccountProvider(store, LockoutOptionsFromConfig(cfg)...)
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

// WithActivitySink sets the sink login outcomes are reported to.
func (p *AccountProvider) WithActivitySink(sink ActivitySink) *AccountProvider {
	p.activity = normalizeActivitySink(sink)
	return p
}

// WithLockoutMachine overrides the lockout machine, useful for injecting a
// test clock.
func (p *AccountProvider) WithLockoutMachine(m *LockoutMachine) *AccountProvider {
	if m != nil {
		p.lockout = m
	}
	return p
}

// Lockout exposes the machine so callers can report remaining wait times.
func (p *AccountProvider) Lockout() *LockoutMachine {
	return p.lockout
}

// VerifyIdentity resolves the account, checks the lock window, compares the
// password, and records the attempt. Lookup misses and password mismatches
// both return ErrInvalidCredentials so responses never reveal whether the
// identity exists.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*Account, error) {
	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	if p.lockout.State(account) == LockoutLocked {
		return nil, p.lockedError(account)
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		state := p.lockout.RecordFailure(account)

		if err2 := p.store.TrackAttemptedLogin(ctx, account); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		p.record(ctx, activityEvent(ActivityEventLoginFailure, account.ID.String(), identifier))

		if state == LockoutLocked {
			p.record(ctx, activityEvent(ActivityEventAccountLocked, account.ID.String(), identifier))
			return nil, p.lockedError(account)
		}

		return nil, ErrInvalidCredentials
	}

	p.lockout.RecordSuccess(account)

	if err := p.store.TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	p.record(ctx, activityEvent(ActivityEventLoginSuccess, account.ID.String(), identifier))

	return account, nil
}

func (p *AccountProvider) record(ctx context.Context, event ActivityEvent) {
	if err := p.activity.Record(ctx, event); err != nil {
		p.logger.Warn("failed to record activity", "event", string(event.EventType), "error", err)
	}
}

// FindByIdentifier resolves an account without touching the lockout state.
func (p *AccountProvider) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (p *AccountProvider) lockedError(account *Account) error {
	minutes := p.lockout.RemainingMinutes(account)
	return errors.New("account is temporarily locked", errors.CategoryAuth).
		WithTextCode(TextCodeAccountLocked).
		WithCode(errors.CodeUnauthorized).
		WithMetadata(map[string]any{
			"retry_after_minutes": minutes,
		})
}

var _ IdentityProvider = (*AccountProvider)(nil)
