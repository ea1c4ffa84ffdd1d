package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

const exceptionColumns = `id, batch_id, row_number, document, reported_name, validation_state,
	management_state, party_role, notes, correction, detected_at, updated_at`

func (s *Store) CreateException(ctx context.Context, e domain.Exception) (string, error) {
	id := uuid.NewString()
	now := formatTime(s.now())

	correction, err := encodeCorrection(e.Correction)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exceptions (`+exceptionColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, e.BatchID, e.Row, e.Document, e.ReportedName, string(e.ValidationState),
		string(e.ManagementState), string(e.PartyRole), e.Notes, correction, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert exception: %w", err)
	}
	return id, nil
}

func (s *Store) GetException(ctx context.Context, id string) (domain.Exception, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+exceptionColumns+` FROM exceptions WHERE id = ?`, id)
	e, err := scanException(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Exception{}, domain.ErrNotFound
	}
	return e, err
}

func (s *Store) ListExceptions(ctx context.Context, f domain.ExceptionFilter) ([]domain.Exception, error) {
	var (
		conds []string
		args  []any
	)
	if f.BatchID != "" {
		conds = append(conds, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.ValidationState != "" {
		conds = append(conds, "validation_state = ?")
		args = append(args, string(f.ValidationState))
	}
	if f.ManagementState != "" {
		conds = append(conds, "management_state = ?")
		args = append(args, string(f.ManagementState))
	}

	query := `SELECT ` + exceptionColumns + ` FROM exceptions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY detected_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	defer rows.Close()

	var out []domain.Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateException(ctx context.Context, id string, u domain.ExceptionUpdate) (bool, error) {
	correction, err := encodeCorrection(u.Correction)
	if err != nil {
		return false, err
	}
	var notes any
	if u.Notes != nil {
		notes = *u.Notes
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE exceptions SET
			management_state = ?,
			notes = COALESCE(?, notes),
			correction = COALESCE(?, correction),
			updated_at = ?
		WHERE id = ? AND (? = '' OR management_state = ?)`,
		string(u.ManagementState), notes, correction, formatTime(s.now()),
		id, string(u.ExpectState), string(u.ExpectState),
	)
	if err != nil {
		return false, fmt.Errorf("update exception: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update exception: %w", err)
	}
	return n > 0, nil
}

func scanException(sc scanner) (domain.Exception, error) {
	var (
		e                            domain.Exception
		validation, management, role string
		correction                   sql.NullString
		detectedAt, updatedAt        string
	)
	err := sc.Scan(&e.ID, &e.BatchID, &e.Row, &e.Document, &e.ReportedName, &validation,
		&management, &role, &e.Notes, &correction, &detectedAt, &updatedAt)
	if err != nil {
		return domain.Exception{}, err
	}
	e.ValidationState = domain.ValidationState(validation)
	e.ManagementState = domain.ManagementState(management)
	e.PartyRole = domain.PartyRole(role)

	if correction.Valid && correction.String != "" {
		if err := json.Unmarshal([]byte(correction.String), &e.Correction); err != nil {
			return domain.Exception{}, fmt.Errorf("decode correction: %w", err)
		}
	}
	if e.DetectedAt, err = parseTime(detectedAt); err != nil {
		return domain.Exception{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Exception{}, err
	}
	return e, nil
}

// encodeCorrection returns nil for a nil map so the column keeps its value.
func encodeCorrection(m map[string]string) (any, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode correction: %w", err)
	}
	return string(data), nil
}
