package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/invoicebatch/internal/core"
	"github.com/JonMunkholm/invoicebatch/internal/domain"
	"github.com/JonMunkholm/invoicebatch/internal/rules"
)

var _ core.Store = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Deterministic, strictly increasing clock.
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestBatchLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateBatch(ctx, domain.Batch{
		FileName:       "facturas.csv",
		ClientID:       "1",
		Client:         "Comiagro",
		DeclaredFormat: "auto_detect",
		State:          domain.StateReceived,
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	state := domain.StateCompletedWithWarnings
	format := "CSV/Excel (CSV)"
	records, findings := 100, 4
	if err := s.UpdateBatch(ctx, id, domain.BatchUpdate{
		State: &state, DetectedFormat: &format, RecordCount: &records, FindingCount: &findings,
	}); err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}

	got, err := s.GetBatch(ctx, id)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.State != state || got.DetectedFormat != format || got.RecordCount != 100 || got.FindingCount != 4 {
		t.Errorf("GetBatch() = %+v", got)
	}
	if got.Client != "Comiagro" || got.DeclaredFormat != "auto_detect" {
		t.Errorf("client/declared = %q/%q", got.Client, got.DeclaredFormat)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestBatchNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetBatch(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetBatch() error = %v, want ErrNotFound", err)
	}
	state := domain.StateError
	if err := s.UpdateBatch(ctx, "missing", domain.BatchUpdate{State: &state}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateBatch() error = %v, want ErrNotFound", err)
	}
}

func TestListBatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 7; i++ {
		state := domain.StateCompleted
		if i%2 == 0 {
			state = domain.StateError
		}
		id, err := s.CreateBatch(ctx, domain.Batch{FileName: fmt.Sprintf("f%d.csv", i), State: state})
		if err != nil {
			t.Fatalf("CreateBatch: %v", err)
		}
		ids = append(ids, id)
	}

	page, total, err := s.ListBatches(ctx, domain.BatchFilter{Limit: 3})
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if total != 7 || len(page) != 3 {
		t.Errorf("total/len = %d/%d, want 7/3", total, len(page))
	}
	if page[0].ID != ids[6] {
		t.Errorf("first = %s, want newest %s", page[0].ID, ids[6])
	}

	page, total, err = s.ListBatches(ctx, domain.BatchFilter{State: domain.StateError, Offset: 2, Limit: 10})
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if total != 4 || len(page) != 2 {
		t.Errorf("filtered total/len = %d/%d, want 4/2", total, len(page))
	}
	for _, b := range page {
		if b.State != domain.StateError {
			t.Errorf("batch %s state = %s, want Error", b.ID, b.State)
		}
	}
}

func TestCountBatchesByState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	counts, err := s.CountBatchesByState(ctx)
	if err != nil {
		t.Fatalf("CountBatchesByState: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("empty store counts = %v, want none", counts)
	}

	for _, state := range []domain.BatchState{
		domain.StateCompleted, domain.StateError, domain.StateCompleted, domain.StateProcessing,
	} {
		if _, err := s.CreateBatch(ctx, domain.Batch{FileName: "f.csv", State: state}); err != nil {
			t.Fatalf("CreateBatch: %v", err)
		}
	}

	counts, err = s.CountBatchesByState(ctx)
	if err != nil {
		t.Fatalf("CountBatchesByState: %v", err)
	}
	want := map[domain.BatchState]int{
		domain.StateCompleted:  2,
		domain.StateError:      1,
		domain.StateProcessing: 1,
	}
	if len(counts) != len(want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
	for state, n := range want {
		if counts[state] != n {
			t.Errorf("counts[%s] = %d, want %d", state, counts[state], n)
		}
	}
}

func TestLogsAndErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _ := s.CreateBatch(ctx, domain.Batch{FileName: "a.txt", State: domain.StateProcessing})

	for _, msg := range []string{"file received", "format detected: TEXT_DELIMITED", "processing completed"} {
		if err := s.AppendLog(ctx, id, msg, domain.LevelInfo); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}
	logs, err := s.ListLogs(ctx, id)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(logs) != 3 || logs[0].Message != "file received" || logs[2].Message != "processing completed" {
		t.Errorf("ListLogs() order = %+v", logs)
	}

	findings := []domain.Finding{
		{Row: 12, Field: "IVA", Message: "invalid VAT value", Severity: domain.SeverityError},
		{Row: 3, Field: "FECHA", Message: "invalid date format", Severity: domain.SeverityWarning},
	}
	for _, f := range findings {
		if err := s.AppendError(ctx, id, f); err != nil {
			t.Fatalf("AppendError: %v", err)
		}
	}
	records, err := s.ListErrors(ctx, id)
	if err != nil {
		t.Fatalf("ListErrors: %v", err)
	}
	if len(records) != 2 || records[0].Row != 3 || records[1].Severity != domain.SeverityError {
		t.Errorf("ListErrors() = %+v, want ordered by row", records)
	}
}

func TestForeignKeys(t *testing.T) {
	s := openTestStore(t)

	err := s.AppendLog(context.Background(), "no-such-batch", "orphan", domain.LevelInfo)
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "foreign key") {
		t.Errorf("AppendLog() on missing batch error = %v, want foreign key violation", err)
	}
}

func TestExceptions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batchID, _ := s.CreateBatch(ctx, domain.Batch{FileName: "a.xml", State: domain.StateCompletedWithWarnings})
	id, err := s.CreateException(ctx, domain.Exception{
		BatchID:         batchID,
		Row:             7,
		Document:        "860034313-7",
		ReportedName:    "Inversiones La Sabana SA",
		ValidationState: domain.ValidationNotFound,
		ManagementState: domain.ManagementPending,
		PartyRole:       domain.RoleSeller,
	})
	if err != nil {
		t.Fatalf("CreateException: %v", err)
	}
	other, _ := s.CreateException(ctx, domain.Exception{
		BatchID: batchID, Row: 9, Document: "800197268-4",
		ValidationState: domain.ValidationInconsistent, ManagementState: domain.ManagementPending,
		PartyRole: domain.RoleBuyer,
	})

	got, err := s.GetException(ctx, id)
	if err != nil {
		t.Fatalf("GetException: %v", err)
	}
	if got.Document != "860034313-7" || got.PartyRole != domain.RoleSeller || got.Correction != nil {
		t.Errorf("GetException() = %+v", got)
	}

	notes := "NIT corrected by client"
	changed, err := s.UpdateException(ctx, id, domain.ExceptionUpdate{
		ManagementState: domain.ManagementCorrected,
		Notes:           &notes,
		Correction:      map[string]string{"nit": "860034313-7"},
		ExpectState:     domain.ManagementPending,
	})
	if err != nil || !changed {
		t.Fatalf("UpdateException() = %v, %v; want true, nil", changed, err)
	}

	got, _ = s.GetException(ctx, id)
	if got.ManagementState != domain.ManagementCorrected || got.Notes != notes || got.Correction["nit"] != "860034313-7" {
		t.Errorf("after update = %+v", got)
	}

	// Stale expectation leaves the row alone.
	changed, err = s.UpdateException(ctx, id, domain.ExceptionUpdate{
		ManagementState: domain.ManagementIgnored,
		ExpectState:     domain.ManagementPending,
	})
	if err != nil || changed {
		t.Errorf("conditional UpdateException() = %v, %v; want false, nil", changed, err)
	}
	got, _ = s.GetException(ctx, id)
	if got.Notes != notes || got.Correction == nil {
		t.Errorf("unchanged exception lost notes or correction: %+v", got)
	}

	list, err := s.ListExceptions(ctx, domain.ExceptionFilter{BatchID: batchID, ManagementState: domain.ManagementPending})
	if err != nil {
		t.Fatalf("ListExceptions: %v", err)
	}
	if len(list) != 1 || list[0].ID != other {
		t.Errorf("ListExceptions(Pending) = %+v, want only %s", list, other)
	}

	list, _ = s.ListExceptions(ctx, domain.ExceptionFilter{ValidationState: domain.ValidationNotFound})
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("ListExceptions(Not_Found) = %+v, want only %s", list, id)
	}

	if _, err := s.GetException(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetException() error = %v, want ErrNotFound", err)
	}
	if changed, _ := s.UpdateException(ctx, "missing", domain.ExceptionUpdate{ManagementState: domain.ManagementIgnored}); changed {
		t.Error("UpdateException(missing) reported a change")
	}
}

func TestServiceEndToEnd(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	svc, err := core.NewService(s, rules.NewSeeded(7), core.Options{TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	var b strings.Builder
	b.WriteString("NOMBRE USUARIO,NIT USUARIO,FACT NRO,FECHA,PRODUCTO,CANTIDAD,VALOR UNITARIO,TOTAL\n")
	for i := 1; i <= 100; i++ {
		fmt.Fprintf(&b, "Cliente %d,900%06d-1,FV-%d,2024-02-01,Producto,1,500,500\n", i, i, i)
	}
	body := b.String()

	res, err := svc.Upload(ctx, core.UploadRequest{
		FileName: "lote.csv", ClientID: "2", Size: int64(len(body)), Body: strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.RecordCount != 100 || res.State != domain.StateCompletedWithWarnings {
		t.Errorf("Upload() records/state = %d/%s", res.RecordCount, res.State)
	}

	detail, err := svc.BatchDetail(ctx, res.BatchID)
	if err != nil {
		t.Fatalf("BatchDetail: %v", err)
	}
	if len(detail.Errors) != res.FindingCount || !detail.CanDownload {
		t.Errorf("detail errors/canDownload = %d/%v", len(detail.Errors), detail.CanDownload)
	}
	if detail.Batch.Client != "Olímpica" {
		t.Errorf("Client = %q, want Olímpica", detail.Batch.Client)
	}

	list, err := svc.ListExceptions(ctx, domain.ExceptionFilter{BatchID: res.BatchID})
	if err != nil {
		t.Fatalf("ListExceptions: %v", err)
	}
	if list.Stats.Total != res.ExceptionCount {
		t.Errorf("exceptions = %d, want %d", list.Stats.Total, res.ExceptionCount)
	}
	for _, e := range list.Exceptions {
		if _, err := svc.ApplyExceptionAction(ctx, e.ID, core.ActionIgnore, core.ActionInput{}); err != nil {
			t.Errorf("ApplyExceptionAction(%s): %v", e.ID, err)
		}
	}
}
