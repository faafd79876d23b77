// Package errors provides the error taxonomy of the execution core.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/wasmfn/wasmfn/domain/entities"
)

var (
	// ErrWorkerClosed is returned when work is submitted to a worker that no longer accepts it.
	ErrWorkerClosed = stdErrors.New("worker closed")

	// ErrClientDisconnected is returned when the transport peer went away.
	ErrClientDisconnected = stdErrors.New("client disconnected")

	// ErrFrameTooLarge is returned when an inbound message does not fit the transport buffer.
	ErrFrameTooLarge = stdErrors.New("message exceeds transport buffer")
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	switch {
	case stdErrors.Is(err, ErrWorkerClosed):
		return &entities.ErrorDetail{Message: err.Error(), Type: "internal", Code: "worker_closed"}
	case stdErrors.Is(err, ErrClientDisconnected), stdErrors.Is(err, ErrFrameTooLarge):
		return &entities.ErrorDetail{Message: err.Error(), Type: "transport"}
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// InitError is returned when an execution context cannot be created.
// It is fatal to the worker being started and to nothing else.
type InitError struct {
	Err   error
	Stage string // "registry", "wasi", "host_module", "compile", "instantiate", "start", "validate"
}

func (e *InitError) Error() string {
	return fmt.Sprintf("guest initialization failed at %s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *InitError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "init", Code: e.Stage}
}

// InvalidPayloadError is returned when a request or a guest response does not
// have the shape the entry point expects.
type InvalidPayloadError struct {
	Err       error
	Function  string
	Direction string // "input" or "output"
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid %s payload for %q: %v", e.Direction, e.Function, e.Err)
}

func (e *InvalidPayloadError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *InvalidPayloadError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "invalid_payload", Code: e.Direction}
}

// GuestExecutionError is returned when the guest reported a failure, trapped, or
// reported a panic through the host during the call.
type GuestExecutionError struct {
	Err      error
	Function string
	Message  string
	Panicked bool
}

func (e *GuestExecutionError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("guest function %q panicked: %s", e.Function, e.Message)
	}
	return fmt.Sprintf("guest function %q failed: %s", e.Function, e.Message)
}

func (e *GuestExecutionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *GuestExecutionError) ToErrorDetail() *entities.ErrorDetail {
	code := "error"
	if e.Panicked {
		code = "panic"
	}
	return &entities.ErrorDetail{Message: e.Error(), Type: "guest_execution", Code: code}
}

// UnsupportedHostCallError is returned to the guest when it names a namespace or
// operation the host does not provide.
type UnsupportedHostCallError struct {
	Namespace string
	Operation string
}

func (e *UnsupportedHostCallError) Error() string {
	return fmt.Sprintf("unsupported host call: %s.%s", e.Namespace, e.Operation)
}

// ToErrorDetail implements DetailedError.
func (e *UnsupportedHostCallError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "unsupported_host_call", Code: e.Namespace + "." + e.Operation}
}

// CapabilityError represents a host call denied by the capability policy.
type CapabilityError struct {
	Namespace string
	Operation string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("missing capability: %s/%s", e.Namespace, e.Operation)
}

// ToErrorDetail implements DetailedError.
func (e *CapabilityError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "capability", Code: e.Namespace + "/" + e.Operation}
}

// StoreError represents a failure of the key-value backend.
type StoreError struct {
	Err       error
	Operation string
	Table     string
}

func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s failed for table %q: %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *StoreError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "store", Code: e.Operation}
}

// TransportError represents a failure at the transport boundary. It only affects
// the connection it happened on.
type TransportError struct {
	Err error
	Op  string // "read", "write", "decode", "encode", "dial"
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *TransportError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "transport", Code: e.Op}
}

// TimeoutError represents a caller giving up on an invocation.
type TimeoutError struct {
	Operation string
	Target    string
	Duration  time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s timeout after %v (target: %s)", e.Operation, e.Duration, e.Target)
	}
	return fmt.Sprintf("%s timeout after %v", e.Operation, e.Duration)
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "timeout", Code: e.Operation, IsTimeout: true}
}
