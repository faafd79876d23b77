package host

import (
	"context"

	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/wireformat"
)

// Call invokes a guest entry point with a typed argument and decodes its typed
// result. Encoding and decoding failures are *errors.InvalidPayloadError with
// direction "input" and "output"; guest failures are *errors.GuestExecutionError.
//
// Usage:
//
//	out, err := host.Call[string, string](ctx, core, "text", "hello")
func Call[Req any, Resp any](ctx context.Context, c *Core, function string, req Req) (Resp, error) {
	var zero Resp

	payload, err := wireformat.Marshal(req)
	if err != nil {
		return zero, &domainerrors.InvalidPayloadError{Function: function, Direction: "input", Err: err}
	}

	raw, err := c.CallRaw(ctx, function, payload)
	if err != nil {
		return zero, err
	}

	var resp Resp
	if err := wireformat.Unmarshal(raw, &resp); err != nil {
		return zero, &domainerrors.InvalidPayloadError{Function: function, Direction: "output", Err: err}
	}
	return resp, nil
}
