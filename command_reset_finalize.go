package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "account.password_reset_finalize" }

// FinalizePasswordResetHandler redeems a raw reset token and rewrites the
// password. The used marker and the password update commit in the same
// transaction, so a token can be spent at most once.
type FinalizePasswordResetHandler struct {
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
}

var _ command.Commander[FinalizePasswordResetMessage] = (*FinalizePasswordResetHandler)(nil)

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:     repo,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

// WithActivitySink sets the sink successful redemptions are reported to.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var accountID string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.ResetTokens().GetByHashTx(ctx, tx, HashResetToken(event.Token))
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidResetToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve reset token")
		}

		if !token.Redeemable(time.Now()) {
			return ErrInvalidResetToken
		}

		if token.AccountID == nil {
			return goerrors.New("reset token is not associated with an account", goerrors.CategoryInternal)
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.ResetTokens().MarkUsedTx(ctx, tx, token); err != nil {
			if goerrors.IsNotFound(err) {
				// Lost the race against a concurrent redemption.
				return ErrInvalidResetToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark reset token as used")
		}

		if err := h.repo.Accounts().ResetPasswordTx(ctx, tx, *token.AccountID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account password")
		}

		accountID = token.AccountID.String()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	if err := h.activity.Record(ctx, activityEvent(ActivityEventPasswordResetSuccess, accountID, "")); err != nil {
		h.logger.Warn("failed to record password reset activity", "error", err)
	}

	return nil
}
