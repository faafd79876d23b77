package hostfuncs

import (
	"fmt"

	"github.com/wasmfn/wasmfn/domain/entities"
)

// DecodeError is returned when a host call payload does not match the
// argument shape of the operation.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed host call arguments: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements errors.DetailedError.
func (e *DecodeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "invalid_payload", Code: "host_call"}
}

// HandlerPanicError is returned in place of a host handler that panicked.
type HandlerPanicError struct {
	Value    any
	Function string
}

func (e *HandlerPanicError) Error() string {
	var msg string
	switch v := e.Value.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("host function %s panicked: %s", e.Function, msg)
}

// ToErrorDetail implements errors.DetailedError.
func (e *HandlerPanicError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "handler_panic"}
}
