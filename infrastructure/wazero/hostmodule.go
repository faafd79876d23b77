package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wasmfn/wasmfn/domain/ports"
)

var (
	i32  = api.ValueTypeI32
	none = []api.ValueType{}
)

// hostModule implements the waPC host imports for one guest.
type hostModule struct {
	host       ports.HostCallHandler
	logger     *zap.Logger
	maxPayload uint32
}

// instantiate registers the host module with the runtime.
func (h *hostModule) instantiate(ctx context.Context, rt wazero.Runtime, name string) error {
	b := rt.NewHostModuleBuilder(name)

	export := func(name string, fn api.GoModuleFunc, params, results []api.ValueType) {
		b.NewFunctionBuilder().WithGoModuleFunction(fn, params, results).Export(name)
	}

	export("__host_call", h.hostCall, []api.ValueType{i32, i32, i32, i32, i32, i32, i32, i32}, []api.ValueType{i32})
	export("__host_response", h.hostResponse, []api.ValueType{i32}, none)
	export("__host_response_len", h.hostResponseLen, none, []api.ValueType{i32})
	export("__host_error", h.hostError, []api.ValueType{i32}, none)
	export("__host_error_len", h.hostErrorLen, none, []api.ValueType{i32})
	export("__guest_request", h.guestRequest, []api.ValueType{i32, i32}, none)
	export("__guest_response", h.guestResponse, []api.ValueType{i32, i32}, none)
	export("__guest_error", h.guestError, []api.ValueType{i32, i32}, none)
	export("__console_log", h.consoleLog, []api.ValueType{i32, i32}, none)

	_, err := b.Instantiate(ctx)
	return err
}

// hostCall is __host_call(bd_ptr, bd_len, ns_ptr, ns_len, op_ptr, op_len, ptr, len) -> i32.
// It returns 1 when the host produced a response and 0 when it failed.
func (h *hostModule) hostCall(ctx context.Context, mod api.Module, stack []uint64) {
	inv, ok := invocationFrom(ctx)
	if !ok {
		stack[0] = api.EncodeI32(0)
		return
	}
	inv.hostResp, inv.hostErr = nil, ""

	binding, err1 := readString(mod, stack[0], stack[1], h.maxPayload)
	namespace, err2 := readString(mod, stack[2], stack[3], h.maxPayload)
	operation, err3 := readString(mod, stack[4], stack[5], h.maxPayload)
	payload, err4 := readBytes(mod, stack[6], stack[7], h.maxPayload)
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			inv.hostErr = err.Error()
			stack[0] = api.EncodeI32(0)
			return
		}
	}

	resp, err := h.host(ctx, binding, namespace, operation, payload)
	if err != nil {
		inv.hostErr = err.Error()
		stack[0] = api.EncodeI32(0)
		return
	}
	inv.hostResp = resp
	stack[0] = api.EncodeI32(1)
}

// hostResponse is __host_response(ptr): copies the last host response into guest memory.
func (h *hostModule) hostResponse(ctx context.Context, mod api.Module, stack []uint64) {
	inv, ok := invocationFrom(ctx)
	if !ok || inv.hostResp == nil {
		return
	}
	if !mod.Memory().Write(api.DecodeU32(stack[0]), inv.hostResp) {
		inv.fault = fmt.Errorf("__host_response: out of bounds write of %d bytes", len(inv.hostResp))
	}
}

func (h *hostModule) hostResponseLen(ctx context.Context, _ api.Module, stack []uint64) {
	var n int
	if inv, ok := invocationFrom(ctx); ok {
		n = len(inv.hostResp)
	}
	stack[0] = api.EncodeI32(int32(n)) //nolint:gosec // bounded by guest memory size
}

// hostError is __host_error(ptr): copies the last host error text into guest memory.
func (h *hostModule) hostError(ctx context.Context, mod api.Module, stack []uint64) {
	inv, ok := invocationFrom(ctx)
	if !ok || inv.hostErr == "" {
		return
	}
	if !mod.Memory().WriteString(api.DecodeU32(stack[0]), inv.hostErr) {
		inv.fault = fmt.Errorf("__host_error: out of bounds write of %d bytes", len(inv.hostErr))
	}
}

func (h *hostModule) hostErrorLen(ctx context.Context, _ api.Module, stack []uint64) {
	var n int
	if inv, ok := invocationFrom(ctx); ok {
		n = len(inv.hostErr)
	}
	stack[0] = api.EncodeI32(int32(n)) //nolint:gosec // bounded by guest memory size
}

// guestRequest is __guest_request(op_ptr, ptr): hands the guest the operation
// name and the payload of the current call.
func (h *hostModule) guestRequest(ctx context.Context, mod api.Module, stack []uint64) {
	inv, ok := invocationFrom(ctx)
	if !ok {
		return
	}
	mem := mod.Memory()
	if !mem.WriteString(api.DecodeU32(stack[0]), inv.operation) {
		inv.fault = fmt.Errorf("__guest_request: out of bounds write of operation")
		return
	}
	if !mem.Write(api.DecodeU32(stack[1]), inv.request) {
		inv.fault = fmt.Errorf("__guest_request: out of bounds write of %d byte payload", len(inv.request))
	}
}

// guestResponse is __guest_response(ptr, len): the guest's successful result.
func (h *hostModule) guestResponse(ctx context.Context, mod api.Module, stack []uint64) {
	inv, ok := invocationFrom(ctx)
	if !ok {
		return
	}
	resp, err := readBytes(mod, stack[0], stack[1], 0)
	if err != nil {
		inv.fault = fmt.Errorf("__guest_response: %w", err)
		return
	}
	inv.response = resp
}

// guestError is __guest_error(ptr, len): the guest's failure message.
func (h *hostModule) guestError(ctx context.Context, mod api.Module, stack []uint64) {
	inv, ok := invocationFrom(ctx)
	if !ok {
		return
	}
	msg, err := readString(mod, stack[0], stack[1], 0)
	if err != nil {
		inv.fault = fmt.Errorf("__guest_error: %w", err)
		return
	}
	inv.guestErr = msg
}

func (h *hostModule) consoleLog(_ context.Context, mod api.Module, stack []uint64) {
	msg, err := readString(mod, stack[0], stack[1], h.maxPayload)
	if err != nil {
		h.logger.Warn("unreadable guest console message", zap.Error(err))
		return
	}
	h.logger.Info(msg, zap.String("source", "guest"))
}

// readBytes copies len bytes at ptr out of guest memory. A zero limit means unbounded.
func readBytes(mod api.Module, ptr, length uint64, limit uint32) ([]byte, error) {
	p, n := api.DecodeU32(ptr), api.DecodeU32(length)
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("payload size %d exceeds maximum %d bytes", n, limit)
	}
	view, ok := mod.Memory().Read(p, n)
	if !ok {
		return nil, fmt.Errorf("out of bounds read of %d bytes at %d", n, p)
	}
	// The view aliases guest memory, which the guest may overwrite or grow.
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

func readString(mod api.Module, ptr, length uint64, limit uint32) (string, error) {
	b, err := readBytes(mod, ptr, length, limit)
	return string(b), err
}
