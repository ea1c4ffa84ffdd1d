package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
	"github.com/JonMunkholm/invoicebatch/internal/logging"
)

var (
	ErrExceptionNotFound = errors.New("exception not found")
	ErrInvalidAction     = errors.New("invalid exception action")
	ErrExceptionResolved = errors.New("exception already resolved")
	ErrInvalidFilter     = errors.New("invalid exception filter")
)

// Action is a manual resolution step applied to an exception.
type Action string

const (
	ActionCorrect Action = "correct"
	ActionCreate  Action = "create"
	ActionIgnore  Action = "ignore"
	ActionRetry   Action = "retry"
)

var actionAliases = map[string]Action{
	"correct":    ActionCorrect,
	"corregir":   ActionCorrect,
	"create":     ActionCreate,
	"crear":      ActionCreate,
	"ignore":     ActionIgnore,
	"ignorar":    ActionIgnore,
	"retry":      ActionRetry,
	"reintentar": ActionRetry,
}

// ParseAction accepts the English action names and their Spanish aliases.
func ParseAction(s string) (Action, error) {
	if a, ok := actionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Target is the management state the action moves an exception to.
func (a Action) Target() domain.ManagementState {
	switch a {
	case ActionCorrect:
		return domain.ManagementCorrected
	case ActionCreate:
		return domain.ManagementInManualCreation
	case ActionIgnore:
		return domain.ManagementIgnored
	case ActionRetry:
		return domain.ManagementRetrying
	}
	return ""
}

// actionable reports whether an exception in state s accepts actions.
func actionable(s domain.ManagementState) bool {
	return s == domain.ManagementPending || s == domain.ManagementRetrying
}

// ApplyExceptionAction moves an exception to the action's target state.
// Only Pending and Retrying exceptions accept actions. The update is
// conditional on the state read here, so two concurrent actions cannot both
// succeed.
func (s *Service) ApplyExceptionAction(ctx context.Context, id string, action Action, in ActionInput) (*ActionResult, error) {
	target := action.Target()
	if target == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	exc, err := s.getException(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actionable(exc.ManagementState) {
		return nil, fmt.Errorf("%w: state %s", ErrExceptionResolved, exc.ManagementState)
	}

	changed, err := s.store.UpdateException(ctx, id, domain.ExceptionUpdate{
		ManagementState: target,
		Notes:           in.Notes,
		Correction:      in.Correction,
		ExpectState:     exc.ManagementState,
	})
	if err != nil {
		return nil, fmt.Errorf("update exception: %w", err)
	}
	if !changed {
		current, err := s.getException(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: state %s", ErrExceptionResolved, current.ManagementState)
	}

	updatedAt := time.Now().UTC()
	if updated, err := s.store.GetException(ctx, id); err == nil {
		updatedAt = updated.UpdatedAt
	}

	logger := logging.WithFields(ctx, "exception_id", id, "batch_id", exc.BatchID)
	msg := fmt.Sprintf("exception %s (row %d, %s): %s -> %s",
		exc.Document, exc.Row, exc.PartyRole, exc.ManagementState, target)
	s.appendLog(ctx, exc.BatchID, msg, domain.LevelInfo, logger)
	logger.Info("exception action applied", "action", action, "from", exc.ManagementState, "to", target)

	return &ActionResult{
		ExceptionID:   id,
		Action:        action,
		PreviousState: exc.ManagementState,
		NewState:      target,
		UpdatedAt:     updatedAt,
	}, nil
}

// ParseExceptionFilter builds a filter from raw query values. Empty values
// match everything.
func ParseExceptionFilter(batchID, validation, management string) (domain.ExceptionFilter, error) {
	f := domain.ExceptionFilter{
		BatchID:         strings.TrimSpace(batchID),
		ValidationState: domain.ValidationState(strings.TrimSpace(validation)),
		ManagementState: domain.ManagementState(strings.TrimSpace(management)),
	}
	if f.ValidationState != "" && !f.ValidationState.Valid() {
		return domain.ExceptionFilter{}, fmt.Errorf("%w: validation_state %q", ErrInvalidFilter, validation)
	}
	if f.ManagementState != "" && !f.ManagementState.Valid() {
		return domain.ExceptionFilter{}, fmt.Errorf("%w: management_state %q", ErrInvalidFilter, management)
	}
	return f, nil
}

// ListExceptions returns the exceptions matching f with summary counts.
func (s *Service) ListExceptions(ctx context.Context, f domain.ExceptionFilter) (*ExceptionList, error) {
	exceptions, err := s.store.ListExceptions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	if exceptions == nil {
		exceptions = []domain.Exception{}
	}

	stats := ExceptionStats{Total: len(exceptions)}
	for _, e := range exceptions {
		switch {
		case e.ManagementState == domain.ManagementPending:
			stats.Pending++
		case e.ManagementState == domain.ManagementRetrying:
			stats.Retrying++
		case e.ManagementState.Resolved():
			stats.Resolved++
		}
	}

	return &ExceptionList{Exceptions: exceptions, Stats: stats}, nil
}

func (s *Service) getException(ctx context.Context, id string) (domain.Exception, error) {
	exc, err := s.store.GetException(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Exception{}, fmt.Errorf("%w: %s", ErrExceptionNotFound, id)
	}
	if err != nil {
		return domain.Exception{}, fmt.Errorf("get exception: %w", err)
	}
	return exc, nil
}
