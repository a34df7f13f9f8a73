package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var resetAccountPasswordSQL = `UPDATE "accounts" AS "acct"
SET
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."deleted_at" IS NULL
AND (
	"acct"."id" = ?
) RETURNING *;`

// Accounts is the credential store: account rows plus the atomic
// read-modify-write updates the lockout counters depend on.
type Accounts interface {
	repository.Repository[*Account]

	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	Deactivate(ctx context.Context, id uuid.UUID) error
}

type accountsRepo struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accountsRepo)(nil)
	_ repository.Repository[*Account] = (*accountsRepo)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accountsRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *accountsRepo) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *accountsRepo) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	options := resolveAccountIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &Account{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *accountsRepo) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accountsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accountsRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return a.db.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.email = ?", email).
		Exists(ctx)
}

func (a *accountsRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return a.db.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.username = ?", strings.TrimSpace(username)).
		Exists(ctx)
}

func (a *accountsRepo) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accountsRepo) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, resetAccountPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accountsRepo) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, account)
}

func (a *accountsRepo) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	// NOTE: Updating using the ORM fails to reset the nullable lockout
	// columns, so we issue the statement by hand.
	lastLogin := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acct"
		SET
			"last_login_at" = ?,
			"locked_until" = NULL,
			"failed_logins" = 0
		WHERE
			("acct".id = ?)
			AND "acct"."deleted_at" IS NULL;
	`, lastLogin, account.ID).Exec(ctx)

	return err
}

func (a *accountsRepo) TrackAttemptedLogin(ctx context.Context, account *Account) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, account)
}

// TrackAttemptedLoginTx persists the counter and lock columns the lockout
// machine just computed in a single statement. Concurrent failures race
// last-write-wins; the counter only has to reach the threshold eventually.
func (a *accountsRepo) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acct"
		SET
			"failed_logins" = ?,
			"locked_until" = ?
		WHERE
			("acct".id = ?)
			AND "acct"."deleted_at" IS NULL;
	`, account.FailedLogins, account.LockedUntil, account.ID).Exec(ctx)

	return err
}

// Deactivate tombstones the account: the soft-delete timestamp removes it
// from every default query, including the uniqueness checks, so identity
// fields stay intact instead of being mangled.
func (a *accountsRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "acct"
		SET
			"is_active" = FALSE,
			"deleted_at" = CURRENT_TIMESTAMP
		WHERE
			("acct".id = ?)
			AND "acct"."deleted_at" IS NULL;
	`, id).Exec(ctx)

	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.NormalizeIdentity()

	if record.Username == "" && strings.Contains(record.Email, "@") {
		record.Username = strings.Split(record.Email, "@")[0]
	}

	record.IsActive = true

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  strings.ToLower(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
