package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	Username          string `json:"username"`
	Phone             string `json:"phone_number"`
	Bio               string `json:"bio"`
	DailyReminderTime string `json:"daily_reminder_time"`
	Password          string `json:"password"`
	OnResponse        func(resp *SignupResponse)
}

func (e SignupMessage) Type() string { return "account.signup" }

type SignupResponse struct {
	Account *Account
	Tokens  TokenPair
}

// SignupHandler registers a new account: duplicate check, hash, persist,
// token issuance, and a fire-and-forget welcome email.
type SignupHandler struct {
	repo         RepositoryManager
	tokenService TokenService
	mailer       Mailer
	logger       Logger
	activity     ActivitySink
}

var _ command.Commander[SignupMessage] = (*SignupHandler)(nil)

// NewSignupHandler creates a handler with sane defaults.
func NewSignupHandler(repo RepositoryManager, tokenService TokenService) *SignupHandler {
	return &SignupHandler{
		repo:         repo,
		tokenService: tokenService,
		mailer:       NewLogMailer(defLogger{}),
		logger:       defLogger{},
		activity:     noopActivitySink{},
	}
}

// WithActivitySink sets the sink successful registrations are reported to.
func (h *SignupHandler) WithActivitySink(sink ActivitySink) *SignupHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithMailer sets the mailer used for the welcome notification.
func (h *SignupHandler) WithMailer(mailer Mailer) *SignupHandler {
	if mailer != nil {
		h.mailer = mailer
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	account := &Account{
		FullName:          event.FullName,
		Email:             event.Email,
		Username:          event.Username,
		Phone:             event.Phone,
		Bio:               event.Bio,
		DailyReminderTime: event.DailyReminderTime,
	}
	account.NormalizeIdentity()

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if taken, err := h.repo.Accounts().EmailExists(ctx, account.Email); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		} else if taken {
			return duplicateIdentityError("email")
		}

		if taken, err := h.repo.Accounts().UsernameExists(ctx, account.Username); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
		} else if taken {
			return duplicateIdentityError("username")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			// Unique indexes are the backstop for races between the
			// existence checks and the insert.
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account").
				WithTextCode(TextCodeDuplicateIdentity)
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account signup transaction failed")
	}

	tokens, err := h.tokenService.IssuePair(NewIdentityFromAccount(account))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session tokens")
	}

	if err := h.activity.Record(ctx, activityEvent(ActivityEventSignup, account.ID.String(), account.Email)); err != nil {
		h.logger.Warn("failed to record signup activity", "error", err)
	}

	// Welcome email failures never roll back the registration.
	go func(email, name string) {
		result := h.mailer.Send(context.WithoutCancel(ctx), email, EmailWelcome, map[string]any{
			"full_name": name,
		})
		if !result.Success {
			h.logger.Warn("welcome email not delivered", "email", email, "message", result.Message)
		}
	}(account.Email, account.FullName)

	if event.OnResponse != nil {
		event.OnResponse(&SignupResponse{
			Account: account,
			Tokens:  tokens,
		})
	}

	return nil
}

func duplicateIdentityError(field string) error {
	return goerrors.New("email or username is already registered", goerrors.CategoryConflict).
		WithTextCode(TextCodeDuplicateIdentity).
		WithCode(goerrors.CodeConflict).
		WithMetadata(map[string]any{"field": field})
}
