package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestPasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (e RequestPasswordResetMessage) Type() string { return "account.password_reset_request" }

// RequestPasswordResetResponse always reports success so callers cannot
// enumerate registered emails. Issued is internal bookkeeping.
type RequestPasswordResetResponse struct {
	Success bool
	Issued  bool
}

// RequestPasswordResetHandler issues a reset token when the email matches
// an account and dispatches it via the mailer. Unknown emails produce the
// exact same outcome.
type RequestPasswordResetHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	tokenTTL time.Duration
	logger   Logger
	activity ActivitySink
}

var _ command.Commander[RequestPasswordResetMessage] = (*RequestPasswordResetHandler)(nil)

// NewRequestPasswordResetHandler creates a handler with sane defaults.
func NewRequestPasswordResetHandler(repo RepositoryManager) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:     repo,
		mailer:   NewLogMailer(defLogger{}),
		tokenTTL: DefaultResetTokenDuration,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

// WithActivitySink sets the sink issued reset requests are reported to.
func (h *RequestPasswordResetHandler) WithActivitySink(sink ActivitySink) *RequestPasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithMailer sets the mailer used to deliver the reset link.
func (h *RequestPasswordResetHandler) WithMailer(mailer Mailer) *RequestPasswordResetHandler {
	if mailer != nil {
		h.mailer = mailer
	}
	return h
}

// WithTokenTTL overrides how long issued tokens stay redeemable.
func (h *RequestPasswordResetHandler) WithTokenTTL(ttl time.Duration) *RequestPasswordResetHandler {
	if ttl > 0 {
		h.tokenTTL = ttl
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestPasswordResetHandler) WithLogger(logger Logger) *RequestPasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	resp := &RequestPasswordResetResponse{Success: true}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var raw string
	var account *Account

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = h.repo.Accounts().GetByIdentifier(ctx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// Same response as the happy path.
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}

		if !account.IsActive {
			return nil
		}

		raw, err = GenerateResetToken()
		if err != nil {
			return err
		}

		token := NewResetToken(account.ID, raw, h.tokenTTL)
		if _, err := h.repo.ResetTokens().CreateTx(ctx, tx, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset token")
		}

		resp.Issued = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if resp.Issued {
		if err := h.activity.Record(ctx, activityEvent(ActivityEventPasswordResetRequest, account.ID.String(), account.Email)); err != nil {
			h.logger.Warn("failed to record reset request activity", "error", err)
		}

		go func(email, name, token string) {
			result := h.mailer.Send(context.WithoutCancel(ctx), email, EmailPasswordReset, map[string]any{
				"full_name": name,
				"token":     token,
			})
			if !result.Success {
				h.logger.Warn("reset email not delivered", "email", email, "message", result.Message)
			}
		}(account.Email, account.FullName, raw)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
