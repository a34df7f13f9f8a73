package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetEmail() string
	GetUsername() string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
}

// TokenPair bundles the session credentials issued after signup or login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	SessionFromToken(token string) (Session, error)
	AccountFromSession(ctx context.Context, session Session) (*Account, error)
}

// LoginResult is the outcome of a successful credential verification.
type LoginResult struct {
	Account *Account
	Tokens  TokenPair
}

// LoginPayload holds the values of a login request
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// HTTPAuthenticator is the transport-level surface used by the
// controller: cookie handling plus route protection.
type HTTPAuthenticator interface {
	Login(ctx router.Context, payload LoginPayload) (*LoginResult, error)
	Logout(ctx router.Context)
	SetSessionCookie(ctx router.Context, token string)
	ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc
	MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error
}

// IdentityProvider verifies credentials against the account store while
// driving the lockout machine.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (*Account, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService issues and validates signed session tokens.
type TokenService interface {
	IssuePair(identity Identity) (TokenPair, error)
	SignAccessToken(identity Identity) (string, error)
	SignRefreshToken(identity Identity) (string, error)
	Validate(token string) (*AccessClaims, error)
	ValidateRefresh(token string) (*RefreshClaims, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetRefreshSigningKey() string
	GetTokenExpiration() int
	GetRefreshTokenExpiration() int
	GetBcryptCost() int
	GetLockoutThreshold() int
	GetLockoutDuration() time.Duration
	GetResetTokenDuration() time.Duration
	GetIssuer() string
	GetFrontendURL() string
	GetCookieName() string
	IsProduction() bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
