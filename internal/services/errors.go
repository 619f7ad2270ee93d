package services

import (
	"errors"
	"fmt"

	"sympep-tracker/internal/metrics"
)

// Error kinds. Each one is a violation of the proposal process, not a
// transient fault, so callers should not retry.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("proposal not found")
	ErrAlreadyAssigned   = errors.New("proposal number already assigned")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrMissingResolution = errors.New("resolution link required")
	ErrConflict          = errors.New("concurrent update conflict")
)

// ProposalError ties an error kind to the proposal reference it concerns.
type ProposalError struct {
	Kind error
	Ref  string
	Msg  string
}

func (e *ProposalError) Error() string {
	if e == nil {
		return ""
	}
	prefix := e.Kind.Error()
	if e.Ref != "" {
		prefix = fmt.Sprintf("proposal %s: %s", e.Ref, prefix)
	}
	if e.Msg == "" {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *ProposalError) Unwrap() error { return e.Kind }

func newError(kind error, ref string, format string, args ...any) error {
	return &ProposalError{Kind: kind, Ref: ref, Msg: fmt.Sprintf(format, args...)}
}

func validationf(ref string, format string, args ...any) error {
	return newError(ErrValidation, ref, format, args...)
}

// errorReason returns a metrics label for err.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyAssigned):
		return "already_assigned"
	case errors.Is(err, ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, ErrMissingResolution):
		return "missing_resolution"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

// observe counts failed operations; use as `defer observe("assign", &err)`.
func observe(operation string, errp *error) {
	if errp == nil || *errp == nil {
		return
	}
	metrics.RejectedOperations.WithLabelValues(operation, errorReason(*errp)).Inc()
}
