package entities

import "time"

// ResultStatus is the coarse outcome of an invocation.
type ResultStatus string

const (
	// ResultStatusSuccess indicates the guest produced output.
	ResultStatusSuccess ResultStatus = "success"

	// ResultStatusError indicates the invocation failed.
	ResultStatusError ResultStatus = "error"
)

// InvocationResult is the outcome of exactly one Invocation.
// Either Output is set, or Err is non-nil; never both.
type InvocationResult struct {
	// Err is the failure, typically one of the types in domain/errors.
	Err error

	// InvocationID is the ID of the invocation this result answers.
	InvocationID string

	// Output is the decoded guest result.
	Output []byte

	// Duration is how long the invocation took inside its execution context.
	Duration time.Duration
}

// ResultSuccess creates a successful result.
func ResultSuccess(id string, output []byte) InvocationResult {
	return InvocationResult{InvocationID: id, Output: output}
}

// ResultError creates a failed result.
func ResultError(id string, err error) InvocationResult {
	return InvocationResult{InvocationID: id, Err: err}
}

// Succeeded reports whether the invocation produced output.
func (r InvocationResult) Succeeded() bool {
	return r.Err == nil
}

// Status returns the result's status.
func (r InvocationResult) Status() ResultStatus {
	if r.Err != nil {
		return ResultStatusError
	}
	return ResultStatusSuccess
}
