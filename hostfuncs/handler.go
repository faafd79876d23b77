package hostfuncs

import (
	"context"

	"github.com/wasmfn/wasmfn/wireformat"
)

// HostFunc is a typed host function.
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// ByteHandler accepts the raw payload of a host call and returns the raw response.
// This is the common interface the guest runtime drives.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewWireHandler wraps a typed HostFunc into a ByteHandler that decodes the
// request from and encodes the response to the shared binary format.
//
// Usage:
//
//	get := hostfuncs.NewWireHandler(func(ctx context.Context, args wireformat.KeyArgs) (*[]byte, error) {
//	    return lookup(ctx, args.Table, args.Key)
//	})
func NewWireHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if err := wireformat.Unmarshal(payload, &req); err != nil {
			return nil, &DecodeError{Err: err}
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}

		return wireformat.Marshal(resp)
	}
}
