// Package errors provides structured error handling for the hooks packages.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindTimer indicates a platform timer scheduling failure.
	KindTimer
	// KindState indicates misuse of a controllable state.
	KindState
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates an invalid configuration value.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimer:
		return "timer"
	case KindState:
		return "state"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

var (
	// ErrSchedulerClosed is returned by schedulers that no longer accept timers.
	ErrSchedulerClosed = errors.New("scheduler closed")
	// ErrDelayTooLong is returned when a single platform timer is asked to
	// exceed the platform's maximum delay.
	ErrDelayTooLong = errors.New("delay exceeds platform maximum")
	// ErrLoopClosed is returned when work is submitted to a closed UI loop.
	ErrLoopClosed = errors.New("loop closed")
)

// HookError represents a structured error reported by a hook.
type HookError struct {
	// Op is the operation that failed (e.g., "timeout.Timer.rearm").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "loop.Run").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// TimerSchedulingError is returned when the platform refuses to schedule a
// timer. The timer that attempted the registration is left idle.
type TimerSchedulingError struct {
	// Delay is the duration that was being scheduled.
	Delay time.Duration
	// Err is the scheduler's error.
	Err error
}

func (e *TimerSchedulingError) Error() string {
	return fmt.Sprintf("failed to schedule timer for %v: %v", e.Delay, e.Err)
}

func (e *TimerSchedulingError) Unwrap() error {
	return e.Err
}

// InvalidModeTransitionError is returned when an owner tries to switch a
// controllable state between controlled and uncontrolled use.
type InvalidModeTransitionError struct {
	From string
	To   string
}

func (e *InvalidModeTransitionError) Error() string {
	return fmt.Sprintf("controllable state cannot change from %s to %s after creation", e.From, e.To)
}

// ErrorHandler receives errors reported by the hooks packages.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *HookError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
