package accounts

import (
	"context"
	"time"
)

// Auther composes the identity provider and token service into the login
// and session workflows.
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		[]byte(cfg.GetRefreshSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetRefreshTokenExpiration(),
		cfg.GetIssuer(),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the token service.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and issues a fresh token pair. Lockout and
// credential errors from the provider pass through unchanged so the HTTP
// layer can map them.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	account, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return nil, err
	}

	tokens, err := s.tokenService.IssuePair(NewIdentityFromAccount(account))
	if err != nil {
		s.logger.Error("Login token issuance error", "error", err)
		return nil, err
	}

	return &LoginResult{
		Account: account,
		Tokens:  tokens,
	}, nil
}

// AccountFromSession resolves the full account record behind a session.
func (s *Auther) AccountFromSession(ctx context.Context, session Session) (*Account, error) {
	account, err := s.provider.FindByIdentifier(ctx, session.GetAccountID())
	if err != nil {
		s.logger.Error("AccountFromSession find by identifier: %s", err)
		return nil, err
	}

	return account, nil
}

// SessionFromToken validates an access token and converts its claims into
// a session. Validity is cryptographic; nothing is looked up.
func (s Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	return sessionFromAccessClaims(claims)
}

// Refresh validates a refresh token and issues a new token pair for the
// account it references.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokenService.ValidateRefresh(refreshToken)
	if err != nil {
		s.logger.Error("Refresh validation failed", "error", err)
		return nil, err
	}

	account, err := s.provider.FindByIdentifier(ctx, claims.AccountID())
	if err != nil {
		return nil, err
	}

	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	tokens, err := s.tokenService.IssuePair(NewIdentityFromAccount(account))
	if err != nil {
		return nil, err
	}

	return &LoginResult{Account: account, Tokens: tokens}, nil
}

func sessionFromAccessClaims(claims *AccessClaims) (Session, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	session := &SessionObject{
		AccountID: claims.AccountID(),
		Email:     claims.Email,
		Username:  claims.Username,
		Issuer:    claims.RegisteredClaims.Issuer,
	}

	if issued := claims.IssuedTime(); !issued.IsZero() {
		session.IssuedAt = &issued
	}

	if expires := claims.Expires(); !expires.IsZero() {
		session.ExpirationDate = &expires
	}

	if session.AccountID == "" {
		return nil, ErrUnableToDecodeSession
	}

	if session.ExpirationDate != nil && session.ExpirationDate.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	return session, nil
}

var _ Authenticator = (*Auther)(nil)
