package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/radioconsole/rcd/internal/domain"
)

// StatusRecord is one journaled status snapshot.
type StatusRecord struct {
	ID     int64
	At     time.Time
	Status domain.RadioStatus
}

// journalSoftkey keeps enum values numeric so rows decode without text parsing.
type journalSoftkey struct {
	Name   string `json:"name"`
	State  int    `json:"state"`
	Button string `json:"button"`
	Code   byte   `json:"code"`
}

// StatusRepo appends and reads back radio status snapshots.
type StatusRepo struct {
	db *sql.DB
}

func NewStatusRepo(db *sql.DB) *StatusRepo {
	return &StatusRepo{db: db}
}

func (r *StatusRepo) Append(ctx context.Context, at time.Time, s domain.RadioStatus) (int64, error) {
	keys := make([]journalSoftkey, 0, len(s.Softkeys))
	for _, k := range s.Softkeys {
		keys = append(keys, journalSoftkey{Name: string(k.Name), State: int(k.State), Button: k.Button.Name, Code: k.Button.Code})
	}
	softkeysJSON, err := marshalJSONNullable(keys)
	if err != nil {
		return 0, fmt.Errorf("marshal softkeys: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO status_events(
			at, state, zone_name, channel_name, scan_state, priority_state, power_state,
			monitor, direct, error, error_msg, softkeys_json
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		toUnixMillis(at),
		int(s.State),
		s.ZoneName,
		s.ChannelName,
		int(s.ScanState),
		int(s.PriorityState),
		int(s.PowerState),
		boolToInt(s.Monitor),
		boolToInt(s.Direct),
		boolToInt(s.Error),
		nullableString(s.ErrorMsg),
		softkeysJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert status event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("status event id: %w", err)
	}

	return id, nil
}

// ListRecent returns up to limit records, newest first.
func (r *StatusRepo) ListRecent(ctx context.Context, limit int) ([]StatusRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, at, state, zone_name, channel_name, scan_state, priority_state, power_state,
			monitor, direct, error, error_msg, softkeys_json
		FROM status_events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	defer rows.Close()

	out := make([]StatusRecord, 0, limit)
	for rows.Next() {
		rec, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status events: %w", err)
	}

	return out, nil
}

func (r *StatusRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM status_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count status events: %w", err)
	}
	return n, nil
}

// Prune keeps the newest keep rows. keep <= 0 disables pruning.
func (r *StatusRepo) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM status_events
		WHERE id <= (
			SELECT id FROM status_events ORDER BY id DESC LIMIT 1 OFFSET ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune status events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruned rows: %w", err)
	}

	return n, nil
}

func scanStatus(scanner interface {
	Scan(dest ...any) error
}) (StatusRecord, error) {
	var (
		rec                          StatusRecord
		atMs                         int64
		state, scan, priority, power int
		monitor, direct, failed      int
		errorMsg, softkeysJSON       sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID, &atMs, &state, &rec.Status.ZoneName, &rec.Status.ChannelName,
		&scan, &priority, &power, &monitor, &direct, &failed, &errorMsg, &softkeysJSON,
	); err != nil {
		return StatusRecord{}, fmt.Errorf("scan status event: %w", err)
	}
	rec.At = fromUnixMillis(atMs)
	rec.Status.State = domain.RadioState(state)
	rec.Status.ScanState = domain.ScanState(scan)
	rec.Status.PriorityState = domain.PriorityState(priority)
	rec.Status.PowerState = domain.PowerState(power)
	rec.Status.Monitor = monitor != 0
	rec.Status.Direct = direct != 0
	rec.Status.Error = failed != 0
	rec.Status.ErrorMsg = errorMsg.String

	if softkeysJSON.Valid {
		var keys []journalSoftkey
		if err := json.Unmarshal([]byte(softkeysJSON.String), &keys); err != nil {
			return StatusRecord{}, fmt.Errorf("decode softkeys of status event %d: %w", rec.ID, err)
		}
		for _, k := range keys {
			name := domain.SoftkeyName(k.Name)
			rec.Status.Softkeys = append(rec.Status.Softkeys, domain.Softkey{
				Name:        name,
				Description: name.Description(),
				State:       domain.SoftkeyState(k.State),
				Button:      domain.Button{Name: k.Button, Code: k.Code},
			})
		}
	}

	return rec, nil
}
