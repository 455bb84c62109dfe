package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/MrEthical07/lockana"
)

// LogEntry is one row of the audit log table.
type LogEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	IP        string    `json:"ip_address,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Emit implements lockana.AuditSink by appending the event to the logs table.
// Failures are logged; the dispatcher has no error path.
func (s *Store) Emit(ctx context.Context, event lockana.AuditEvent) {
	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO logs (username, action, success, ip_address, error_code, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		event.Username, event.Action, event.Success, nullString(event.IP), nullString(event.Error), at.UTC(),
	)
	if err != nil {
		s.logger.Error("sqlstore: write audit log", "action", event.Action, "error", err)
	}
}

// ListLogs returns the newest entries first. limit <= 0 means no limit.
func (s *Store) ListLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	query := `SELECT id, username, action, success, ip_address, error_code, created_at FROM logs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, s.storageError("list logs", err)
	}
	defer rows.Close()

	out := []LogEntry{}
	for rows.Next() {
		var (
			e         LogEntry
			ip, ecode sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Success, &ip, &ecode, &e.CreatedAt); err != nil {
			return nil, s.storageError("scan log", err)
		}
		e.IP = ip.String
		e.ErrorCode = ecode.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("iterate logs", err)
	}
	return out, nil
}

// DeleteLogs empties the log table and returns the number of rows removed.
func (s *Store) DeleteLogs(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM logs`)
	if err != nil {
		return 0, s.storageError("delete logs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.storageError("delete logs", err)
	}
	s.logger.Info("audit logs deleted", "count", n)
	return n, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
