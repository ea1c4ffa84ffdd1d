package core

import (
	"context"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

// Store persists batches and everything recorded against them.
//
// Each call is a single atomic write or read. Nothing ties the writes of one
// upload together: a crash mid-pipeline can leave a batch in Processing with
// part of its findings stored. Lookups of missing records return
// domain.ErrNotFound.
type Store interface {
	CreateBatch(ctx context.Context, b domain.Batch) (string, error)
	UpdateBatch(ctx context.Context, id string, u domain.BatchUpdate) error
	GetBatch(ctx context.Context, id string) (domain.Batch, error)
	ListBatches(ctx context.Context, f domain.BatchFilter) ([]domain.Batch, int, error)
	// CountBatchesByState omits states with no batches.
	CountBatchesByState(ctx context.Context) (map[domain.BatchState]int, error)

	AppendLog(ctx context.Context, batchID, message string, level domain.LogLevel) error
	ListLogs(ctx context.Context, batchID string) ([]domain.LogEntry, error)

	AppendError(ctx context.Context, batchID string, f domain.Finding) error
	ListErrors(ctx context.Context, batchID string) ([]domain.ErrorRecord, error)

	CreateException(ctx context.Context, e domain.Exception) (string, error)
	GetException(ctx context.Context, id string) (domain.Exception, error)
	ListExceptions(ctx context.Context, f domain.ExceptionFilter) ([]domain.Exception, error)

	// UpdateException applies u and reports whether a row changed. When
	// u.ExpectState is set, the row only changes if it is still in that state.
	UpdateException(ctx context.Context, id string, u domain.ExceptionUpdate) (bool, error)
}

// Simulator produces business-rule findings for a parsed batch.
type Simulator interface {
	Simulate(recordCount int) []domain.Finding
}
