package service

import "fmt"

// The engine distinguishes three failure families. ValidationError covers bad
// input shapes, PreconditionError covers state-machine rules (wrong status,
// missing rate, double payment), and ConsistencyError covers calculator bugs
// that must abort the operation rather than persist a broken schedule.

// ValidationError rejects malformed input before anything is persisted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PreconditionError rejects an operation whose state requirements do not hold.
// No partial state is left behind.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

func preconditionf(format string, args ...any) error {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// ConsistencyError signals an internal invariant violation (residual balance,
// schedule length mismatch). The operation is aborted.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string { return e.Msg }

func consistencyf(format string, args ...any) error {
	return &ConsistencyError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func notFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}
