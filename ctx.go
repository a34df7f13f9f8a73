package accounts

import (
	"context"

	"github.com/goliatone/go-router"
)

// SessionKey is the locals key the protected-route middleware stores
// the authenticated Session under.
const SessionKey = "session"

var accountCtxKey = &contextKey{"account"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithContext sets the Account in the given context
func WithContext(r context.Context, account *Account) context.Context {
	return context.WithValue(r, accountCtxKey, account)
}

// FromContext finds the account from the context.
func FromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok
}

// WithSessionContext sets the Session in the given context
func WithSessionContext(r context.Context, session Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// GetSession extracts the Session from the standard context
func GetSession(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// GetRouterSession extracts the Session from the router context
func GetRouterSession(ctx router.Context, key string) (Session, bool) {
	if key == "" {
		key = SessionKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	session, ok := raw.(Session)
	return session, ok
}
