package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CommandRecord is one journaled command outcome.
type CommandRecord struct {
	ID       int64
	At       time.Time
	Command  string
	OK       bool
	Attempts int
}

type CommandRepo struct {
	db *sql.DB
}

func NewCommandRepo(db *sql.DB) *CommandRepo {
	return &CommandRepo{db: db}
}

func (r *CommandRepo) Append(ctx context.Context, rec CommandRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO command_results(at, command, ok, attempts)
		VALUES(?, ?, ?, ?)
	`, toUnixMillis(rec.At), rec.Command, boolToInt(rec.OK), rec.Attempts)
	if err != nil {
		return fmt.Errorf("insert command result: %w", err)
	}
	return nil
}

func (r *CommandRepo) ListRecent(ctx context.Context, limit int) ([]CommandRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, at, command, ok, attempts
		FROM command_results
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list command results: %w", err)
	}
	defer rows.Close()

	out := make([]CommandRecord, 0)
	for rows.Next() {
		var (
			rec  CommandRecord
			atMs int64
			ok   int
		)
		if err := rows.Scan(&rec.ID, &atMs, &rec.Command, &ok, &rec.Attempts); err != nil {
			return nil, fmt.Errorf("scan command result: %w", err)
		}
		rec.At = fromUnixMillis(atMs)
		rec.OK = ok != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command results: %w", err)
	}
	return out, nil
}

// Prune keeps the newest keep rows. keep <= 0 disables pruning.
func (r *CommandRepo) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM command_results
		WHERE id <= (
			SELECT id FROM command_results ORDER BY id DESC LIMIT 1 OFFSET ?
		)
	`, keep); err != nil {
		return fmt.Errorf("prune command results: %w", err)
	}
	return nil
}
