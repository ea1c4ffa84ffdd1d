package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

const exceptionColumns = `id::text, batch_id::text, row_number, document, reported_name, validation_state,
	management_state, party_role, notes, correction, detected_at, updated_at`

func (s *Store) CreateException(ctx context.Context, e domain.Exception) (string, error) {
	id := uuid.NewString()
	correction, err := encodeCorrection(e.Correction)
	if err != nil {
		return "", err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO exceptions (id, batch_id, row_number, document, reported_name, validation_state,
			management_state, party_role, notes, correction)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)`,
		id, e.BatchID, e.Row, e.Document, e.ReportedName, string(e.ValidationState),
		string(e.ManagementState), string(e.PartyRole), e.Notes, correction,
	)
	if err != nil {
		return "", fmt.Errorf("insert exception: %w", err)
	}
	return id, nil
}

func (s *Store) GetException(ctx context.Context, id string) (domain.Exception, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Exception{}, domain.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+exceptionColumns+` FROM exceptions WHERE id = $1`, id)
	e, err := scanException(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Exception{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Exception{}, fmt.Errorf("get exception: %w", err)
	}
	return e, nil
}

func (s *Store) ListExceptions(ctx context.Context, f domain.ExceptionFilter) ([]domain.Exception, error) {
	var (
		p     placeholders
		conds []string
	)
	if f.BatchID != "" {
		if _, err := uuid.Parse(f.BatchID); err != nil {
			return nil, nil
		}
		conds = append(conds, "batch_id = "+p.add(f.BatchID))
	}
	if f.ValidationState != "" {
		conds = append(conds, "validation_state = "+p.add(string(f.ValidationState)))
	}
	if f.ManagementState != "" {
		conds = append(conds, "management_state = "+p.add(string(f.ManagementState)))
	}

	query := `SELECT ` + exceptionColumns + ` FROM exceptions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY detected_at DESC, id"

	rows, err := s.pool.Query(ctx, query, p.args...)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	defer rows.Close()

	var out []domain.Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateException(ctx context.Context, id string, u domain.ExceptionUpdate) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	correction, err := encodeCorrection(u.Correction)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE exceptions SET
			management_state = $1,
			notes = COALESCE($2, notes),
			correction = COALESCE($3::jsonb, correction),
			updated_at = now()
		WHERE id = $4 AND ($5 = '' OR management_state = $5)`,
		string(u.ManagementState), u.Notes, correction, id, string(u.ExpectState),
	)
	if err != nil {
		return false, fmt.Errorf("update exception: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanException(row pgx.Row) (domain.Exception, error) {
	var (
		e                            domain.Exception
		validation, management, role string
		correction                   []byte
	)
	err := row.Scan(&e.ID, &e.BatchID, &e.Row, &e.Document, &e.ReportedName, &validation,
		&management, &role, &e.Notes, &correction, &e.DetectedAt, &e.UpdatedAt)
	if err != nil {
		return domain.Exception{}, err
	}
	e.ValidationState = domain.ValidationState(validation)
	e.ManagementState = domain.ManagementState(management)
	e.PartyRole = domain.PartyRole(role)

	if len(correction) > 0 {
		if err := json.Unmarshal(correction, &e.Correction); err != nil {
			return domain.Exception{}, fmt.Errorf("decode correction: %w", err)
		}
	}
	return e, nil
}

// encodeCorrection returns nil for a nil map so COALESCE keeps the stored value.
func encodeCorrection(m map[string]string) (*string, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode correction: %w", err)
	}
	s := string(data)
	return &s, nil
}
