package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	ledger "github.com/goliatone/go-bridge-ledger"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	var labels []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, label string, _ fs.FS) error {
		calls = append(calls, dialect)
		labels = append(labels, label)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
	if labels[0] != DefaultSourceLabel {
		t.Fatalf("expected default source label, got %q", labels[0])
	}
}

func TestDialectForDriver(t *testing.T) {
	cases := map[string]string{
		"postgres":   DialectPostgres,
		" PG ":       DialectPostgres,
		"sqlite3":    DialectSQLite,
		"SQLite":     DialectSQLite,
		"postgresql": DialectPostgres,
	}
	for driver, want := range cases {
		got, err := DialectForDriver(driver)
		if err != nil {
			t.Fatalf("dialect for %q: %v", driver, err)
		}
		if got != want {
			t.Fatalf("expected %q for %q, got %q", want, driver, got)
		}
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestApply_RequiresClient(t *testing.T) {
	if _, err := Apply(context.Background(), nil, DialectSQLite); err == nil {
		t.Fatalf("expected missing client error")
	}
}

func TestRegister_RequiresRegisterFunc(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected missing register function to fail")
	}
}

func TestLedgerSchemaMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := ledger.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_bridge_ledger.up.sql",
		"data/sql/migrations/00001_bridge_ledger.down.sql",
		"data/sql/migrations/sqlite/00001_bridge_ledger.up.sql",
		"data/sql/migrations/sqlite/00001_bridge_ledger.down.sql",
		"data/sql/migrations/00002_release_outbox.up.sql",
		"data/sql/migrations/00002_release_outbox.down.sql",
		"data/sql/migrations/sqlite/00002_release_outbox.up.sql",
		"data/sql/migrations/sqlite/00002_release_outbox.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteLedgerSchemaMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-bridge-ledger?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := ledger.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_bridge_ledger.up.sql"); err != nil {
		t.Fatalf("apply ledger migration up: %v", err)
	}
	if err := execSQLMigration(ctx, db, sqliteMigrations, "00002_release_outbox.up.sql"); err != nil {
		t.Fatalf("apply release outbox migration up: %v", err)
	}

	for _, tableName := range []string{"ledger_states", "ledger_accounts", "bridge_deposits", "ledger_journal", "ledger_release_outbox"} {
		if count := countSQLiteObjects(t, db, "table", tableName); count != 1 {
			t.Fatalf("expected table %s to exist after up migration", tableName)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO ledger_states (ledger_id, owner, total_supply) VALUES (?, ?, ?)`,
		"wldoge", "0x00000000000000000000000000000000000000a1", "0",
	); err != nil {
		t.Fatalf("insert ledger state: %v", err)
	}
	insertDeposit := `
		INSERT INTO bridge_deposits
			(id, ledger_id, external_tx_id, external_address, recipient, amount, status, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, insertDeposit,
		"dep-1", "wldoge", "ltx-1", "LdogeAddr", "0x00000000000000000000000000000000000000b2", "50", "processed", "2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert deposit: %v", err)
	}
	if _, err := db.ExecContext(ctx, insertDeposit,
		"dep-2", "wldoge", "ltx-1", "LdogeAddr", "0x00000000000000000000000000000000000000b2", "50", "processed", "2026-01-01T00:01:00Z",
	); err == nil {
		t.Fatalf("expected unique external tx id violation")
	}

	insertRelease := `
		INSERT INTO ledger_release_outbox
			(id, ledger_id, withdrawal_id, external_address, amount, requested_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, insertRelease, "rel-1", "wldoge", "w-1", "LdogeDest", "40", "2026-01-01T00:02:00Z"); err != nil {
		t.Fatalf("insert release: %v", err)
	}
	if _, err := db.ExecContext(ctx, insertRelease, "rel-2", "wldoge", "w-1", "LdogeDest", "40", "2026-01-01T00:03:00Z"); err == nil {
		t.Fatalf("expected unique withdrawal id violation")
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00002_release_outbox.down.sql"); err != nil {
		t.Fatalf("apply release outbox migration down: %v", err)
	}
	if count := countSQLiteObjects(t, db, "table", "ledger_release_outbox"); count != 0 {
		t.Fatalf("expected ledger_release_outbox to be dropped after down migration")
	}
	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_bridge_ledger.down.sql"); err != nil {
		t.Fatalf("apply ledger migration down: %v", err)
	}
	if count := countSQLiteObjects(t, db, "table", "bridge_deposits"); count != 0 {
		t.Fatalf("expected bridge_deposits to be dropped after down migration")
	}
}

func countSQLiteObjects(t *testing.T, db *sql.DB, kind string, name string) int {
	t.Helper()
	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type=? AND name=?`,
		kind,
		name,
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master for %s: %v", name, err)
	}
	return count
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
