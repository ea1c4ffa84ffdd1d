package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

func (s *Store) AppendLog(ctx context.Context, batchID, message string, level domain.LogLevel) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO batch_logs (id, batch_id, message, level) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), batchID, message, string(level),
	)
	if err != nil {
		return fmt.Errorf("insert batch log: %w", err)
	}
	return nil
}

func (s *Store) ListLogs(ctx context.Context, batchID string) ([]domain.LogEntry, error) {
	if _, err := uuid.Parse(batchID); err != nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, batch_id::text, message, level, created_at
		FROM batch_logs WHERE batch_id = $1 ORDER BY seq`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.LogEntry
	for rows.Next() {
		var (
			l     domain.LogEntry
			level string
		)
		if err := rows.Scan(&l.ID, &l.BatchID, &l.Message, &level, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch log: %w", err)
		}
		l.Level = domain.LogLevel(level)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *Store) AppendError(ctx context.Context, batchID string, f domain.Finding) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO batch_errors (id, batch_id, row_number, field, message, severity)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), batchID, f.Row, f.Field, f.Message, string(f.Severity),
	)
	if err != nil {
		return fmt.Errorf("insert batch error: %w", err)
	}
	return nil
}

func (s *Store) ListErrors(ctx context.Context, batchID string) ([]domain.ErrorRecord, error) {
	if _, err := uuid.Parse(batchID); err != nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, batch_id::text, row_number, field, message, severity, created_at
		FROM batch_errors WHERE batch_id = $1 ORDER BY row_number, seq`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch errors: %w", err)
	}
	defer rows.Close()

	var records []domain.ErrorRecord
	for rows.Next() {
		var (
			r        domain.ErrorRecord
			severity string
		)
		if err := rows.Scan(&r.ID, &r.BatchID, &r.Row, &r.Field, &r.Message, &severity, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch error: %w", err)
		}
		r.Severity = domain.Severity(severity)
		records = append(records, r)
	}
	return records, rows.Err()
}
