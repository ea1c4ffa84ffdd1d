package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
	"github.com/JonMunkholm/invoicebatch/internal/ingest"
	"github.com/JonMunkholm/invoicebatch/internal/logging"
)

// DefaultMaxFileSize is the upload limit when none is configured (50MB).
const DefaultMaxFileSize int64 = 50 << 20

// DefaultWarningThreshold is the finding ratio up to which a batch completes
// with warnings instead of failing.
const DefaultWarningThreshold = 0.10

// Request-level errors. These are returned before any batch is created.
var (
	ErrNoFile            = errors.New("no file provided")
	ErrFileTooLarge      = errors.New("file too large")
	ErrInvalidFormatHint = errors.New("invalid format hint")
)

// Options configures a Service.
type Options struct {
	MaxFileSize      int64
	TempDir          string
	WarningThreshold float64
	MaxConcurrent    int
	MaxWaitTime      time.Duration

	// Clients maps client identifiers to display labels.
	Clients map[string]string
}

// Service runs the ingestion pipeline and answers batch and exception queries.
type Service struct {
	store     Store
	simulator Simulator
	limiter   *UploadLimiter
	opts      Options
}

// NewService creates a Service. Zero options fall back to defaults.
func NewService(store Store, simulator Simulator, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if simulator == nil {
		return nil, errors.New("simulator is required")
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.WarningThreshold <= 0 {
		opts.WarningThreshold = DefaultWarningThreshold
	}
	if opts.Clients == nil {
		opts.Clients = DefaultClients()
	}

	return &Service{
		store:     store,
		simulator: simulator,
		limiter:   NewUploadLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		opts:      opts,
	}, nil
}

// MaxFileSize returns the configured upload limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.opts.MaxFileSize
}

// UploadLimiterStatus returns the current upload concurrency state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// Ping checks the store when it supports health checks.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// WaitForUploads blocks until in-flight uploads finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Upload ingests one file and returns the batch it produced.
//
// An error is returned only for request-level problems, before a batch exists
// or when the batch cannot be created. Content problems and failures after
// the batch exists are reported through UploadResult.State.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.Body == nil || strings.TrimSpace(req.FileName) == "" {
		return nil, ErrNoFile
	}

	hint, err := ingest.ParseHint(req.FormatHint)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormatHint, req.FormatHint)
	}

	if req.Size > s.opts.MaxFileSize {
		return nil, s.tooLarge(req.Size)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	// The pipeline runs to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	path, err := s.spool(req.Body, req.FileName)
	if err != nil {
		return nil, err
	}
	defer s.removeTemp(ctx, path)

	batch := domain.Batch{
		FileName:       req.FileName,
		ClientID:       req.ClientID,
		Client:         ClientLabel(s.opts.Clients, req.ClientID),
		DeclaredFormat: string(hint),
		State:          domain.StateReceived,
	}
	id, err := s.store.CreateBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	ctx = logging.ContextWithBatchID(ctx, id)
	logger := logging.WithFields(ctx,
		"file", req.FileName,
		"format_hint", string(hint),
	)

	result := &UploadResult{
		BatchID:        id,
		FileName:       req.FileName,
		Client:         batch.Client,
		DeclaredFormat: string(hint),
		State:          domain.StateReceived,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.process(ctx, id, path, hint, result, logger); err != nil {
		s.failBatch(ctx, id, err, result, logger)
	}

	return result, nil
}

// process runs everything after batch creation. Panics are returned as errors.
func (s *Service) process(ctx context.Context, id, path string, hint ingest.Hint, result *UploadResult, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	s.appendLog(ctx, id, fmt.Sprintf("file received: %s (declared format: %s)", result.FileName, hint), domain.LevelInfo, logger)

	if err := s.setState(ctx, id, domain.StateProcessing); err != nil {
		return err
	}
	result.State = domain.StateProcessing

	format, pinned := hint.Format()
	if !pinned {
		format = ingest.Classify(path, result.FileName)
		s.appendLog(ctx, id, "format detected: "+format.String(), domain.LevelInfo, logger)
	}

	parsed := ingest.Parse(path, result.FileName, format)
	result.Format = parsed.FormatLabel
	result.StructuralErrors = parsed.StructuralErrors
	result.Warnings = parsed.Warnings

	for _, w := range parsed.Warnings {
		s.appendLog(ctx, id, "warning: "+w, domain.LevelWarning, logger)
	}

	var state domain.BatchState
	switch {
	case !parsed.Success:
		for _, msg := range parsed.StructuralErrors {
			f := domain.Finding{Field: domain.FieldFile, Message: msg, Severity: domain.SeverityError}
			if err := s.store.AppendError(ctx, id, f); err != nil {
				return fmt.Errorf("append error: %w", err)
			}
		}
		state = domain.StateError
		result.RecordCount = 0
		result.FindingCount = len(parsed.StructuralErrors)

	case parsed.RecordCount > 0:
		findings := s.simulator.Simulate(parsed.RecordCount)
		exceptions, err := s.recordFindings(ctx, id, findings)
		if err != nil {
			return err
		}
		state = DecideState(len(findings), parsed.RecordCount, s.opts.WarningThreshold)
		result.RecordCount = parsed.RecordCount
		result.FindingCount = len(findings)
		result.ExceptionCount = exceptions

	default:
		state = domain.StateCompleted
	}

	update := domain.BatchUpdate{
		State:          &state,
		DetectedFormat: &result.Format,
		RecordCount:    &result.RecordCount,
		FindingCount:   &result.FindingCount,
	}
	if err := s.store.UpdateBatch(ctx, id, update); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	result.State = state

	msg := fmt.Sprintf("processing completed: state=%s records=%d findings=%d",
		state, result.RecordCount, result.FindingCount)
	s.appendLog(ctx, id, msg, levelForState(state), logger)

	logger.Info("batch processed",
		"format", result.Format,
		"state", state,
		"records", result.RecordCount,
		"findings", result.FindingCount,
	)
	return nil
}

// recordFindings stores each finding and the exceptions they require.
func (s *Service) recordFindings(ctx context.Context, batchID string, findings []domain.Finding) (int, error) {
	exceptions := 0
	for _, f := range findings {
		if err := s.store.AppendError(ctx, batchID, f); err != nil {
			return exceptions, fmt.Errorf("append error: %w", err)
		}
		if !f.RequiresException || f.Exception == nil {
			continue
		}

		exc := domain.Exception{
			BatchID:         batchID,
			Row:             f.Row,
			Document:        f.Exception.Document,
			ReportedName:    f.Exception.ReportedName,
			ValidationState: f.Exception.ValidationState,
			ManagementState: domain.ManagementPending,
			PartyRole:       f.Exception.PartyRole,
		}
		if _, err := s.store.CreateException(ctx, exc); err != nil {
			return exceptions, fmt.Errorf("create exception: %w", err)
		}
		exceptions++
	}
	return exceptions, nil
}

// failBatch forces the batch to Error after an unexpected failure.
// Store errors here are logged and otherwise ignored.
func (s *Service) failBatch(ctx context.Context, id string, cause error, result *UploadResult, logger *slog.Logger) {
	logger.Error("batch processing failed", "error", cause)

	state := domain.StateError
	findings := 1
	if err := s.store.UpdateBatch(ctx, id, domain.BatchUpdate{State: &state, FindingCount: &findings}); err != nil {
		logger.Error("failed to mark batch as failed", "error", err)
	}
	s.appendLog(ctx, id, "processing error: "+cause.Error(), domain.LevelError, logger)

	result.State = state
	result.FindingCount = findings
}

func (s *Service) setState(ctx context.Context, id string, state domain.BatchState) error {
	if err := s.store.UpdateBatch(ctx, id, domain.BatchUpdate{State: &state}); err != nil {
		return fmt.Errorf("set state %s: %w", state, err)
	}
	return nil
}

// appendLog writes a batch log line. Failures are logged, not returned.
func (s *Service) appendLog(ctx context.Context, id, message string, level domain.LogLevel, logger *slog.Logger) {
	if err := s.store.AppendLog(ctx, id, message, level); err != nil {
		logger.Warn("failed to append batch log", "error", err, "message", message)
	}
}

func (s *Service) tooLarge(size int64) error {
	return fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", ErrFileTooLarge, size, s.opts.MaxFileSize)
}

func levelForState(state domain.BatchState) domain.LogLevel {
	switch state {
	case domain.StateError:
		return domain.LevelError
	case domain.StateCompletedWithWarnings:
		return domain.LevelWarning
	default:
		return domain.LevelInfo
	}
}
