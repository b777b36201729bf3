package ledger

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the ledger schema, with the sqlite variant under
// data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

func GetMigrationsFS() fs.FS {
	return migrationsFS
}

// GetCoreMigrationsFS returns the ledger schema tree consumed by the
// migrations package.
func GetCoreMigrationsFS() fs.FS {
	return migrationsFS
}
