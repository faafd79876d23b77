package hostfuncs

import (
	"context"

	"github.com/wasmfn/wasmfn/domain/entities"
)

// HostContext wraps a standard context.Context with host call specific helpers.
// It gives middleware access to the call being dispatched and allows it to store
// request-scoped values without polluting the standard context.
type HostContext interface {
	context.Context

	// Call returns the host call being dispatched.
	Call() entities.HostCall

	// FunctionName returns "namespace.operation".
	FunctionName() string

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext.
	SetValue(key, value any)

	// GetValue retrieves a request-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values map[any]any
	call   entities.HostCall
}

// NewHostContext creates a new HostContext wrapping the given context.
func NewHostContext(ctx context.Context, call entities.HostCall) HostContext {
	return &hostContext{
		Context: ctx,
		call:    call,
		values:  make(map[any]any),
	}
}

func (c *hostContext) Call() entities.HostCall {
	return c.call
}

func (c *hostContext) FunctionName() string {
	return c.call.Name()
}

func (c *hostContext) SetValue(key, value any) {
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom extracts a HostContext from a context.Context.
// If the context is already a HostContext, it is returned directly.
func HostContextFrom(ctx context.Context, call entities.HostCall) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, call)
}

// callFrom returns the host call carried by ctx, if any.
func callFrom(ctx context.Context) (entities.HostCall, bool) {
	if hc, ok := ctx.(HostContext); ok {
		return hc.Call(), true
	}
	return entities.HostCall{}, false
}
