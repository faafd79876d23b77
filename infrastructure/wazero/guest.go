package wazero

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wasmfn/wasmfn/domain/ports"
)

var _ ports.Guest = (*Guest)(nil)

// Guest is one instantiated waPC module with its own runtime.
// It is not safe for concurrent use.
type Guest struct {
	runtime   wazero.Runtime
	module    api.Module
	guestCall api.Function
}

// Call implements ports.Guest. Host calls made by the guest run synchronously
// on this goroutine and see ctx.
func (g *Guest) Call(ctx context.Context, function string, payload []byte) ([]byte, error) {
	inv := &invocation{operation: function, request: payload}
	ctx = withInvocation(ctx, inv)

	results, err := g.guestCall.Call(ctx, uint64(len(function)), uint64(len(payload)))
	if err != nil {
		return nil, err
	}
	if inv.fault != nil {
		return nil, inv.fault
	}
	if api.DecodeI32(results[0]) == 1 {
		if inv.response == nil {
			return []byte{}, nil
		}
		return inv.response, nil
	}
	if inv.guestErr != "" {
		return nil, errors.New(inv.guestErr)
	}
	return nil, fmt.Errorf("call to %q failed without an error message", function)
}

// MemorySize is the size in bytes of the guest's memory.
func (g *Guest) MemorySize() uint32 {
	if mem := g.module.Memory(); mem != nil {
		return mem.Size()
	}
	return 0
}

// Close releases the guest's runtime.
func (g *Guest) Close(ctx context.Context) error {
	return g.runtime.Close(ctx)
}
