// Package device structured error types
package device

import (
	"errors"
	"fmt"
)

// ErrorKind represents categories of device errors
type ErrorKind int

const (
	// Memory errors
	KindMemory ErrorKind = iota
	// Invalid argument errors
	KindInvalidArg
	// Execution errors
	KindExecution
	// Device errors
	KindDevice
	// Event or stream not ready
	KindNotReady
)

// Error represents a structured device error with context
type Error struct {
	Kind    ErrorKind
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device %s error in %s: %s (caused by: %v)",
			e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("device %s error in %s: %s", e.Kind, e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error kind as a string
func (k ErrorKind) String() string {
	switch k {
	case KindMemory:
		return "Memory"
	case KindInvalidArg:
		return "InvalidArgument"
	case KindExecution:
		return "Execution"
	case KindDevice:
		return "Device"
	case KindNotReady:
		return "NotReady"
	default:
		return "Unknown"
	}
}

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &Error{Kind: KindMemory, Op: op, Message: message, Err: err}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{Kind: KindInvalidArg, Op: op, Message: message}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{Kind: KindExecution, Op: op, Message: message, Err: err}
}

// NewDeviceError creates a device error
func NewDeviceError(op string, message string) error {
	return &Error{Kind: KindDevice, Op: op, Message: message}
}

var (
	// ErrOutOfMemory indicates memory allocation failure
	ErrOutOfMemory = NewMemoryError("Malloc", "out of memory", nil)

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("Malloc", "size must be positive")

	// ErrDoubleFree indicates double free attempt
	ErrDoubleFree = NewMemoryError("Free", "double free detected", nil)

	// ErrInvalidDevice indicates invalid device ID
	ErrInvalidDevice = NewInvalidArgError("SetDevice", "invalid device ID")

	// ErrDestroyed is returned for work submitted to a destroyed context
	ErrDestroyed = NewDeviceError("Submit", "context destroyed")

	// ErrEventNotRecorded is returned when timing an event that has not completed
	ErrEventNotRecorded = &Error{Kind: KindNotReady, Op: "EventElapsedTime", Message: "event not recorded"}
)

func isKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	return isKind(err, KindMemory)
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	return isKind(err, KindInvalidArg)
}

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool {
	return isKind(err, KindExecution)
}

// IsDeviceError checks if an error is a device error
func IsDeviceError(err error) bool {
	return isKind(err, KindDevice)
}
