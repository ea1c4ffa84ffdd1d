package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu         sync.Mutex
	seq        int
	batches    map[string]domain.Batch
	logs       map[string][]domain.LogEntry
	errs       map[string][]domain.ErrorRecord
	exceptions map[string]domain.Exception
	order      []string

	// failUpdateAt makes the nth UpdateBatch call (1-based) fail.
	failUpdateAt int
	updateCalls  int
	failCreate   bool
	failLogs     bool
	failCount    bool
}

func newMemStore() *memStore {
	return &memStore{
		batches:    make(map[string]domain.Batch),
		logs:       make(map[string][]domain.LogEntry),
		errs:       make(map[string][]domain.ErrorRecord),
		exceptions: make(map[string]domain.Exception),
	}
}

var errStoreDown = errors.New("store unavailable")

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%04d", prefix, m.seq)
}

func (m *memStore) CreateBatch(_ context.Context, b domain.Batch) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return "", errStoreDown
	}
	b.ID = m.nextID("batch")
	b.CreatedAt = time.Now().UTC().Add(time.Duration(m.seq) * time.Millisecond)
	b.UpdatedAt = b.CreatedAt
	m.batches[b.ID] = b
	m.order = append(m.order, b.ID)
	return b.ID, nil
}

func (m *memStore) UpdateBatch(_ context.Context, id string, u domain.BatchUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.failUpdateAt > 0 && m.updateCalls == m.failUpdateAt {
		return errStoreDown
	}
	b, ok := m.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	if u.State != nil {
		b.State = *u.State
	}
	if u.DetectedFormat != nil {
		b.DetectedFormat = *u.DetectedFormat
	}
	if u.RecordCount != nil {
		b.RecordCount = *u.RecordCount
	}
	if u.FindingCount != nil {
		b.FindingCount = *u.FindingCount
	}
	b.UpdatedAt = time.Now().UTC()
	m.batches[id] = b
	return nil
}

func (m *memStore) GetBatch(_ context.Context, id string) (domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return domain.Batch{}, domain.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListBatches(_ context.Context, f domain.BatchFilter) ([]domain.Batch, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.Batch
	for i := len(m.order) - 1; i >= 0; i-- {
		b := m.batches[m.order[i]]
		if f.State == "" || b.State == f.State {
			matched = append(matched, b)
		}
	}
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := min(f.Offset+f.Limit, total)
	return matched[f.Offset:end], total, nil
}

func (m *memStore) CountBatchesByState(context.Context) (map[domain.BatchState]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCount {
		return nil, errStoreDown
	}
	counts := make(map[domain.BatchState]int)
	for _, b := range m.batches {
		counts[b.State]++
	}
	return counts, nil
}

func (m *memStore) AppendLog(_ context.Context, batchID, message string, level domain.LogLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLogs {
		return errStoreDown
	}
	m.logs[batchID] = append(m.logs[batchID], domain.LogEntry{
		ID:        m.nextID("log"),
		BatchID:   batchID,
		Message:   message,
		Level:     level,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memStore) ListLogs(_ context.Context, batchID string) ([]domain.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LogEntry(nil), m.logs[batchID]...), nil
}

func (m *memStore) AppendError(_ context.Context, batchID string, f domain.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[batchID] = append(m.errs[batchID], domain.ErrorRecord{
		ID:        m.nextID("err"),
		BatchID:   batchID,
		Row:       f.Row,
		Field:     f.Field,
		Message:   f.Message,
		Severity:  f.Severity,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memStore) ListErrors(_ context.Context, batchID string) ([]domain.ErrorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ErrorRecord(nil), m.errs[batchID]...), nil
}

func (m *memStore) CreateException(_ context.Context, e domain.Exception) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextID("exc")
	e.DetectedAt = time.Now().UTC()
	e.UpdatedAt = e.DetectedAt
	m.exceptions[e.ID] = e
	return e.ID, nil
}

func (m *memStore) GetException(_ context.Context, id string) (domain.Exception, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exceptions[id]
	if !ok {
		return domain.Exception{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memStore) ListExceptions(_ context.Context, f domain.ExceptionFilter) ([]domain.Exception, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Exception
	for _, e := range m.exceptions {
		if f.BatchID != "" && e.BatchID != f.BatchID {
			continue
		}
		if f.ValidationState != "" && e.ValidationState != f.ValidationState {
			continue
		}
		if f.ManagementState != "" && e.ManagementState != f.ManagementState {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateException(_ context.Context, id string, u domain.ExceptionUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exceptions[id]
	if !ok {
		return false, nil
	}
	if u.ExpectState != "" && e.ManagementState != u.ExpectState {
		return false, nil
	}
	e.ManagementState = u.ManagementState
	if u.Notes != nil {
		e.Notes = *u.Notes
	}
	if u.Correction != nil {
		e.Correction = maps.Clone(u.Correction)
	}
	e.UpdatedAt = time.Now().UTC()
	m.exceptions[id] = e
	return true, nil
}

// setException overwrites the management state of an exception.
func (m *memStore) setException(id string, state domain.ManagementState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.exceptions[id]
	e.ManagementState = state
	m.exceptions[id] = e
}

// fixedSimulator returns the same findings for every batch.
type fixedSimulator struct {
	findings []domain.Finding
	calls    int
}

func (f *fixedSimulator) Simulate(recordCount int) []domain.Finding {
	f.calls++
	if recordCount <= 0 {
		return nil
	}
	return f.findings
}

type panicSimulator struct{}

func (panicSimulator) Simulate(int) []domain.Finding {
	panic("simulator exploded")
}
