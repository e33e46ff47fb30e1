package qdispatch

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	ErrInvalidQubitCount = errors.New("invalid qubit count")
	ErrCapacityExceeded  = errors.New("qubit count exceeds capacity")
	ErrIndexOutOfRange   = errors.New("qubit index out of range")
	ErrUnnormalizedState = errors.New("state is not normalized")
	ErrInvalidShots      = errors.New("shots must be at least 1")
	ErrNonUnitaryGate    = errors.New("gate is not unitary")
	ErrInvalidCircuit    = errors.New("invalid circuit")

	ErrQueueClosed        = errors.New("queue closed")
	ErrInvalidTask        = errors.New("invalid task")
	ErrDuplicateTask      = errors.New("task id already outstanding")
	ErrDuplicateResult    = errors.New("result already stored for task")
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
	ErrNoHandler          = errors.New("no handler registered for task kind")
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrDimensionMismatch  = errors.New("dimension mismatch")

	// ErrHandlerFailure wraps every failure recorded on a Result. It never
	// leaves the worker as a returned error.
	ErrHandlerFailure = errors.New("handler failure")
)

/*
PanicError carries a value recovered from a panicking handler together with
the stack of the goroutine that panicked.
*/
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: string(buf[:n])}
}
