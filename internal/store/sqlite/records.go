package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

func (s *Store) AppendLog(ctx context.Context, batchID, message string, level domain.LogLevel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_logs (id, batch_id, message, level, created_at) VALUES (?,?,?,?,?)`,
		uuid.NewString(), batchID, message, string(level), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert batch log: %w", err)
	}
	return nil
}

func (s *Store) ListLogs(ctx context.Context, batchID string) ([]domain.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, message, level, created_at FROM batch_logs
		WHERE batch_id = ? ORDER BY created_at, rowid`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.LogEntry
	for rows.Next() {
		var (
			l              domain.LogEntry
			level, created string
		)
		if err := rows.Scan(&l.ID, &l.BatchID, &l.Message, &level, &created); err != nil {
			return nil, err
		}
		l.Level = domain.LogLevel(level)
		if l.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *Store) AppendError(ctx context.Context, batchID string, f domain.Finding) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_errors (id, batch_id, row_number, field, message, severity, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		uuid.NewString(), batchID, f.Row, f.Field, f.Message, string(f.Severity), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert batch error: %w", err)
	}
	return nil
}

func (s *Store) ListErrors(ctx context.Context, batchID string) ([]domain.ErrorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, row_number, field, message, severity, created_at FROM batch_errors
		WHERE batch_id = ? ORDER BY row_number, rowid`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch errors: %w", err)
	}
	defer rows.Close()

	var records []domain.ErrorRecord
	for rows.Next() {
		var (
			r                 domain.ErrorRecord
			severity, created string
		)
		if err := rows.Scan(&r.ID, &r.BatchID, &r.Row, &r.Field, &r.Message, &severity, &created); err != nil {
			return nil, err
		}
		r.Severity = domain.Severity(severity)
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
