package deeply

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument indicates a constructor or run function received an absent input.
	ErrInvalidArgument = errors.New("deeply: invalid argument")
	// ErrAlreadyParented indicates a task was handed to a composite while already owned by another.
	ErrAlreadyParented = fmt.Errorf("%w: task already has a parent", ErrInvalidArgument)
	// ErrVerificationFailed matches every verification failure, leaf or aggregated.
	ErrVerificationFailed = errors.New("deeply: verification failed")
	// ErrExecutionFailed matches every execution failure, leaf or aggregated.
	ErrExecutionFailed = errors.New("deeply: execution failed")
	// ErrCancelled matches every cancellation observed by a task or composite.
	ErrCancelled = errors.New("deeply: cancelled")
)

// TaskError reports the failure of a single task's own hook.
type TaskError struct {
	Task  string
	Phase Phase
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("deeply: %s of %s failed: %v", e.Phase, e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Is matches the failure sentinel of the phase the error occurred in.
func (e *TaskError) Is(target error) bool {
	return target == e.Phase.failure()
}

// CompositeError aggregates the failures of a composite's children in launch order.
type CompositeError struct {
	Task  string
	Phase Phase
	Errs  []error
}

func (e *CompositeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "deeply: %s of %s failed: %d child task(s) failed", e.Phase, e.Task, len(e.Errs))
	for _, err := range e.Errs {
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *CompositeError) Unwrap() []error {
	return e.Errs
}

// Is matches the failure sentinel of the phase the error occurred in.
func (e *CompositeError) Is(target error) bool {
	return target == e.Phase.failure()
}

// CancelledError reports that a task observed cancellation. Cause is the
// context error or the first cancelled child's error; Errs holds every child
// failure that was collected before the composite gave up.
type CancelledError struct {
	Task  string
	Phase Phase
	Cause error
	Errs  []error
}

func (e *CancelledError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("deeply: %s of %s cancelled", e.Phase, e.Task)
	}
	return fmt.Sprintf("deeply: %s of %s cancelled: %v", e.Phase, e.Task, e.Cause)
}

// Unwrap exposes the cause followed by the collected child failures.
func (e *CancelledError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errs)+1)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return append(errs, e.Errs...)
}

func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

// TaskPanicError wraps a panic recovered from a task hook.
type TaskPanicError struct {
	Task  string
	Value any
}

func (e TaskPanicError) Error() string {
	return fmt.Sprintf("deeply: panic in task %s: %v", e.Task, e.Value)
}

// IsCancelled reports whether err stems from cancellation, either a
// CancelledError or a bare context error returned by a hook.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// classify normalises a hook result into the error taxonomy. Errors already
// produced by this package pass through untouched.
func classify(path string, phase Phase, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *TaskError, *CompositeError, *CancelledError:
		return err
	}
	if IsCancelled(err) {
		return &CancelledError{Task: path, Phase: phase, Cause: err}
	}
	return &TaskError{Task: path, Phase: phase, Err: err}
}
