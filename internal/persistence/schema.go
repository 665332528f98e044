package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; user_version records how many have run.
var migrations = []string{
	`CREATE TABLE status_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		state INTEGER NOT NULL,
		zone_name TEXT NOT NULL DEFAULT '',
		channel_name TEXT NOT NULL DEFAULT '',
		scan_state INTEGER NOT NULL DEFAULT 0,
		priority_state INTEGER NOT NULL DEFAULT 0,
		power_state INTEGER NOT NULL DEFAULT 1,
		monitor INTEGER NOT NULL DEFAULT 0,
		direct INTEGER NOT NULL DEFAULT 0,
		error INTEGER NOT NULL DEFAULT 0,
		error_msg TEXT,
		softkeys_json TEXT
	);
	CREATE INDEX idx_status_events_at ON status_events(at);`,
	`CREATE TABLE command_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		command TEXT NOT NULL,
		ok INTEGER NOT NULL,
		attempts INTEGER NOT NULL
	);`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("journal schema version %d is newer than supported %d", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, i+1)); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("bump schema version to %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
