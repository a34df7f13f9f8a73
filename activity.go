package accounts

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignup               ActivityEventType = "account.signup"
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventAccountLocked        ActivityEventType = "auth.account.locked"
	ActivityEventPasswordResetRequest ActivityEventType = "auth.password.reset.request"
	ActivityEventPasswordResetSuccess ActivityEventType = "auth.password.reset"
	ActivityEventAccountDeactivated   ActivityEventType = "account.deactivated"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  string
	Identifier string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func activityEvent(kind ActivityEventType, accountID, identifier string) ActivityEvent {
	return ActivityEvent{
		EventType:  kind,
		AccountID:  accountID,
		Identifier: identifier,
		OccurredAt: time.Now().UTC(),
	}
}
