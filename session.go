package accounts

import (
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the deserialized view of a validated access token.
type SessionObject struct {
	AccountID      string     `json:"account_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	Username       string     `json:"username,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetUsername() string {
	return s.Username
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiration() *time.Time {
	return s.ExpirationDate
}
