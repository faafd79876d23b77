// Package testutil provides test doubles and assertions shared by the
// execution core's tests.
package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
)

// RequireSucceeded asserts that the invocation succeeded and returns its output.
func RequireSucceeded(t *testing.T, result entities.InvocationResult) []byte {
	t.Helper()
	require.NoError(t, result.Err, "invocation %s failed", result.InvocationID)
	require.True(t, result.Succeeded())
	return result.Output
}

// RequireGuestPanic asserts that the invocation failed because the guest
// reported a panic with the given message.
func RequireGuestPanic(t *testing.T, result entities.InvocationResult, message string) {
	t.Helper()
	var execErr *domainerrors.GuestExecutionError
	require.True(t, errors.As(result.Err, &execErr), "want GuestExecutionError, got %v", result.Err)
	assert.True(t, execErr.Panicked, "guest execution error is not a panic: %v", execErr)
	assert.Equal(t, message, execErr.Message)
	assert.Nil(t, result.Output)
}

// RequireInvalidPayload asserts that the invocation failed to encode its input
// or decode its output.
func RequireInvalidPayload(t *testing.T, result entities.InvocationResult, direction string) {
	t.Helper()
	var payloadErr *domainerrors.InvalidPayloadError
	require.True(t, errors.As(result.Err, &payloadErr), "want InvalidPayloadError, got %v", result.Err)
	assert.Equal(t, direction, payloadErr.Direction)
}
