package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

const batchColumns = `id::text, file_name, client_id, client, declared_format, detected_format,
	state, record_count, finding_count, created_at, updated_at`

func (s *Store) CreateBatch(ctx context.Context, b domain.Batch) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO batches (id, file_name, client_id, client, declared_format, detected_format,
			state, record_count, finding_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, b.FileName, b.ClientID, b.Client, b.DeclaredFormat, b.DetectedFormat,
		string(b.State), b.RecordCount, b.FindingCount,
	)
	if err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateBatch(ctx context.Context, id string, u domain.BatchUpdate) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	var p placeholders
	sets := []string{"updated_at = now()"}

	if u.State != nil {
		sets = append(sets, "state = "+p.add(string(*u.State)))
	}
	if u.DetectedFormat != nil {
		sets = append(sets, "detected_format = "+p.add(*u.DetectedFormat))
	}
	if u.RecordCount != nil {
		sets = append(sets, "record_count = "+p.add(*u.RecordCount))
	}
	if u.FindingCount != nil {
		sets = append(sets, "finding_count = "+p.add(*u.FindingCount))
	}

	query := `UPDATE batches SET ` + strings.Join(sets, ", ") + ` WHERE id = ` + p.add(id)
	tag, err := s.pool.Exec(ctx, query, p.args...)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (domain.Batch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Batch{}, domain.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Batch{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Batch{}, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

func (s *Store) ListBatches(ctx context.Context, f domain.BatchFilter) ([]domain.Batch, int, error) {
	var p placeholders
	where := ""
	if f.State != "" {
		where = " WHERE state = " + p.add(string(f.State))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM batches`+where, p.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	query := `SELECT ` + batchColumns + ` FROM batches` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ` + p.add(f.Limit) + ` OFFSET ` + p.add(f.Offset)
	rows, err := s.pool.Query(ctx, query, p.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, total, rows.Err()
}

func (s *Store) CountBatchesByState(ctx context.Context) (map[domain.BatchState]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT state, COUNT(*) FROM batches GROUP BY state`)
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
			return nil, fmt.Errorf("scan batch count: %w", err)
		}
		counts[domain.BatchState(state)] = n
	}
	return counts, rows.Err()
}

func scanBatch(row pgx.Row) (domain.Batch, error) {
	var (
		b     domain.Batch
		state string
	)
	err := row.Scan(&b.ID, &b.FileName, &b.ClientID, &b.Client, &b.DeclaredFormat, &b.DetectedFormat,
		&state, &b.RecordCount, &b.FindingCount, &b.CreatedAt, &b.UpdatedAt)
	b.State = domain.BatchState(state)
	return b, err
}
