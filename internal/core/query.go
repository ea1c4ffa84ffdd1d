package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

// Pagination bounds for batch listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// FieldOther groups findings recorded without a field.
const FieldOther = "OTROS"

var (
	ErrBatchNotFound   = errors.New("batch not found")
	ErrNotDownloadable = errors.New("batch not downloadable")
	ErrInvalidState    = errors.New("invalid batch state")
)

// ListBatches returns one page of batches, newest first. An empty state
// matches every batch.
func (s *Service) ListBatches(ctx context.Context, q BatchQuery) (*BatchPage, error) {
	state := domain.BatchState(strings.TrimSpace(q.State))
	if state != "" && !state.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, q.State)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	batches, total, err := s.store.ListBatches(ctx, domain.BatchFilter{
		State:  state,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if batches == nil {
		batches = []domain.Batch{}
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	return &BatchPage{
		Batches:    batches,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// BatchStats counts batches per state for the dashboard summary.
func (s *Service) BatchStats(ctx context.Context) (*BatchStats, error) {
	counts, err := s.store.CountBatchesByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	stats := &BatchStats{ByState: make(map[domain.BatchState]int, len(domain.BatchStates))}
	for _, state := range domain.BatchStates {
		stats.ByState[state] = counts[state]
		stats.Total += counts[state]
	}
	return stats, nil
}

// BatchDetail returns a batch with its log, its findings and whether its
// template can be downloaded.
func (s *Service) BatchDetail(ctx context.Context, id string) (*BatchDetail, error) {
	batch, err := s.getBatch(ctx, id)
	if err != nil {
		return nil, err
	}

	logs, err := s.store.ListLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	records, err := s.store.ListErrors(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list errors: %w", err)
	}
	if logs == nil {
		logs = []domain.LogEntry{}
	}
	if records == nil {
		records = []domain.ErrorRecord{}
	}

	return &BatchDetail{
		Batch:         batch,
		Logs:          logs,
		Errors:        records,
		ErrorsByField: groupByField(records),
		CanDownload:   batch.Downloadable(),
	}, nil
}

// DownloadableBatch returns the batch if its template may be downloaded.
func (s *Service) DownloadableBatch(ctx context.Context, id string) (domain.Batch, error) {
	batch, err := s.getBatch(ctx, id)
	if err != nil {
		return domain.Batch{}, err
	}
	if !batch.Downloadable() {
		return domain.Batch{}, fmt.Errorf("%w: state %s", ErrNotDownloadable, batch.State)
	}
	return batch, nil
}

func (s *Service) getBatch(ctx context.Context, id string) (domain.Batch, error) {
	batch, err := s.store.GetBatch(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return domain.Batch{}, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

func groupByField(records []domain.ErrorRecord) map[string][]domain.ErrorRecord {
	grouped := make(map[string][]domain.ErrorRecord)
	for _, r := range records {
		field := r.Field
		if field == "" {
			field = FieldOther
		}
		grouped[field] = append(grouped[field], r)
	}
	return grouped
}
