package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

const batchColumns = `id, file_name, client_id, client, declared_format, detected_format,
	state, record_count, finding_count, created_at, updated_at`

func (s *Store) CreateBatch(ctx context.Context, b domain.Batch) (string, error) {
	id := uuid.NewString()
	now := formatTime(s.now())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (`+batchColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		id, b.FileName, b.ClientID, b.Client, b.DeclaredFormat, b.DetectedFormat,
		string(b.State), b.RecordCount, b.FindingCount, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateBatch(ctx context.Context, id string, u domain.BatchUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(s.now())}

	if u.State != nil {
		sets = append(sets, "state = ?")
		args = append(args, string(*u.State))
	}
	if u.DetectedFormat != nil {
		sets = append(sets, "detected_format = ?")
		args = append(args, *u.DetectedFormat)
	}
	if u.RecordCount != nil {
		sets = append(sets, "record_count = ?")
		args = append(args, *u.RecordCount)
	}
	if u.FindingCount != nil {
		sets = append(sets, "finding_count = ?")
		args = append(args, *u.FindingCount)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (domain.Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Batch{}, domain.ErrNotFound
	}
	return b, err
}

func (s *Store) ListBatches(ctx context.Context, f domain.BatchFilter) ([]domain.Batch, int, error) {
	where := ""
	var args []any
	if f.State != "" {
		where = " WHERE state = ?"
		args = append(args, string(f.State))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM batches`+where+`
		ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	return batches, total, rows.Err()
}

func (s *Store) CountBatchesByState(ctx context.Context) (map[domain.BatchState]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM batches GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count batches by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.BatchState]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[domain.BatchState(state)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(sc scanner) (domain.Batch, error) {
	var (
		b                    domain.Batch
		state                string
		createdAt, updatedAt string
	)
	err := sc.Scan(&b.ID, &b.FileName, &b.ClientID, &b.Client, &b.DeclaredFormat, &b.DetectedFormat,
		&state, &b.RecordCount, &b.FindingCount, &createdAt, &updatedAt)
	if err != nil {
		return domain.Batch{}, err
	}
	b.State = domain.BatchState(state)
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Batch{}, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Batch{}, err
	}
	return b, nil
}
