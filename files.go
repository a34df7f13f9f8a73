package accounts

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/templates
var templatesFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// GetTemplatesFS returns the email template files rooted at data/templates.
func GetTemplatesFS() fs.FS {
	sub, err := fs.Sub(templatesFS, "data/templates")
	if err != nil {
		return templatesFS
	}
	return sub
}
