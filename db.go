package accounts

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// OpenDB opens a sqlite backed bun database. The shim driver picks a
// CGO or pure Go sqlite implementation depending on the build.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.RegisterModel((*Account)(nil))
	db.RegisterModel((*ResetToken)(nil))

	return db, nil
}

// Migrate applies the embedded schema migrations in filename order. The
// statements are idempotent so repeated startups are safe.
func Migrate(ctx context.Context, db *bun.DB) error {
	root := "data/sql/migrations"

	entries, err := fs.ReadDir(GetMigrationsFS(), root)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read migrations")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(GetMigrationsFS(), root+"/"+name)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read migration").
				WithMetadata(map[string]any{"migration": name})
		}
		if _, err := db.ExecContext(ctx, string(raw)); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migration").
				WithMetadata(map[string]any{"migration": name})
		}
	}

	return nil
}
