package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetTokens stores hashed password reset credentials.
type ResetTokens interface {
	repository.Repository[*ResetToken]

	GetByHash(ctx context.Context, hash string) (*ResetToken, error)
	GetByHashTx(ctx context.Context, tx bun.IDB, hash string) (*ResetToken, error)

	MarkUsedTx(ctx context.Context, tx bun.IDB, token *ResetToken) error
}

type resetTokensRepo struct {
	repository.Repository[*ResetToken]
	db *bun.DB
}

var _ ResetTokens = (*resetTokensRepo)(nil)

func NewResetTokensRepository(db *bun.DB) ResetTokens {
	repo := repository.NewRepository[*ResetToken](db, repository.ModelHandlers[*ResetToken]{
		NewRecord: func() *ResetToken { return &ResetToken{} },
		GetID: func(t *ResetToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *ResetToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token_hash"
		},
	})

	return &resetTokensRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *resetTokensRepo) Create(ctx context.Context, record *ResetToken, criteria ...repository.InsertCriteria) (*ResetToken, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *resetTokensRepo) CreateTx(ctx context.Context, tx bun.IDB, record *ResetToken, criteria ...repository.InsertCriteria) (*ResetToken, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *resetTokensRepo) GetByHash(ctx context.Context, hash string) (*ResetToken, error) {
	return r.GetByHashTx(ctx, r.db, hash)
}

func (r *resetTokensRepo) GetByHashTx(ctx context.Context, tx bun.IDB, hash string) (*ResetToken, error) {
	record := &ResetToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token_hash = ?", hash).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

// MarkUsedTx stamps the token as redeemed. The used_at guard makes the
// update a compare-and-set: a second redemption of the same token matches
// zero rows and fails.
func (r *resetTokensRepo) MarkUsedTx(ctx context.Context, tx bun.IDB, token *ResetToken) error {
	res, err := tx.NewRaw(`
		UPDATE "reset_tokens" AS "rst"
		SET "used_at" = CURRENT_TIMESTAMP
		WHERE
			("rst".id = ?)
			AND "rst"."used_at" IS NULL;
	`, token.ID).Exec(ctx)

	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": token.ID.String(),
			})
	}

	return nil
}
