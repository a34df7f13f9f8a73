package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenExpirationHours is the access token lifetime when none is
// configured: 7 days.
const DefaultTokenExpirationHours = 24 * 7

// DefaultRefreshExpirationHours is the refresh token lifetime when none is
// configured: 30 days.
const DefaultRefreshExpirationHours = 24 * 30

// TokenServiceImpl implements the TokenService interface. Access and
// refresh tokens use independent signing secrets so a leaked refresh secret
// cannot mint session tokens.
type TokenServiceImpl struct {
	signingKey        []byte
	refreshSigningKey []byte
	tokenExpiration   int
	refreshExpiration int
	issuer            string
	logger            Logger
}

// NewTokenService creates a new TokenService instance. Expirations are in
// hours; zero values fall back to the defaults.
func NewTokenService(signingKey, refreshSigningKey []byte, tokenExpiration, refreshExpiration int, issuer string, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpirationHours
	}
	if refreshExpiration <= 0 {
		refreshExpiration = DefaultRefreshExpirationHours
	}
	return &TokenServiceImpl{
		signingKey:        signingKey,
		refreshSigningKey: refreshSigningKey,
		tokenExpiration:   tokenExpiration,
		refreshExpiration: refreshExpiration,
		issuer:            issuer,
		logger:            logger,
	}
}

// IssuePair signs a fresh access/refresh token pair for the identity.
func (ts *TokenServiceImpl) IssuePair(identity Identity) (TokenPair, error) {
	access, err := ts.SignAccessToken(identity)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := ts.SignRefreshToken(identity)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// SignAccessToken creates a JWT carrying the account id, email, and
// username.
func (ts *TokenServiceImpl) SignAccessToken(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
		UID:      identity.ID(),
		Email:    identity.Email(),
		Username: identity.Username(),
	}

	return ts.sign(claims, ts.signingKey)
}

// SignRefreshToken creates a JWT carrying only the account id, signed with
// the refresh secret.
func (ts *TokenServiceImpl) SignRefreshToken(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.refreshExpiration) * time.Hour)),
		},
		UID: identity.ID(),
	}

	return ts.sign(claims, ts.refreshSigningKey)
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates an access token, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.parse(tokenString, claims, ts.signingKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefresh parses and validates a refresh token.
func (ts *TokenServiceImpl) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.parse(tokenString, claims, ts.refreshSigningKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenServiceImpl) parse(tokenString string, claims jwt.Claims, key []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return ErrUnableToDecodeSession
	}

	return nil
}
