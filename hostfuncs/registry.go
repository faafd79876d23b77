package hostfuncs

import (
	"context"
	"fmt"
	"sort"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
)

// HandlerRegistry is an immutable table of host functions keyed by namespace
// and operation. Once created via NewRegistry, handlers cannot be added or
// removed, so lookups need no locking.
type HandlerRegistry struct {
	handlers map[string]map[string]ByteHandler
	fallback ByteHandler
	names    []string // "namespace.operation", sorted
}

type registryBuilder struct {
	handlers   map[string]map[string]ByteHandler
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable HandlerRegistry with the given options.
// Returns an error if any (namespace, operation) pair is registered twice or
// either name is empty.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundles(DefaultBundles(store, clock)...),
//	    WithByteHandler("custom", "echo", echoHandler),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{
		handlers: make(map[string]map[string]ByteHandler),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	wrap := func(h ByteHandler) ByteHandler {
		// Apply in reverse so the first middleware is outermost.
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		return h
	}

	var names []string
	wrapped := make(map[string]map[string]ByteHandler, len(b.handlers))
	for ns, ops := range b.handlers {
		wrapped[ns] = make(map[string]ByteHandler, len(ops))
		for op, h := range ops {
			wrapped[ns][op] = wrap(h)
			names = append(names, ns+"."+op)
		}
	}
	sort.Strings(names)

	return &HandlerRegistry{
		handlers: wrapped,
		fallback: wrap(unsupported),
		names:    names,
	}, nil
}

// unsupported answers every call nobody registered for.
func unsupported(ctx context.Context, _ []byte) ([]byte, error) {
	call, _ := callFrom(ctx)
	return nil, &domainerrors.UnsupportedHostCallError{Namespace: call.Namespace, Operation: call.Operation}
}

// unregisteredKey marks a HostContext whose call has no registered handler.
type unregisteredKey struct{}

// Dispatch routes a host call to its handler. It is total: an unknown
// namespace or operation yields *errors.UnsupportedHostCallError, never a panic.
func (r *HandlerRegistry) Dispatch(ctx context.Context, call entities.HostCall) ([]byte, error) {
	hc := NewHostContext(ctx, call)
	handler, ok := r.handlers[call.Namespace][call.Operation]
	if !ok {
		handler = r.fallback
		hc.SetValue(unregisteredKey{}, true)
	}
	return handler(hc, call.Payload)
}

// unregistered reports whether ctx carries a call that fell through to the
// unsupported-call fallback.
func unregistered(ctx context.Context) bool {
	hc, ok := ctx.(HostContext)
	if !ok {
		return false
	}
	v, _ := hc.GetValue(unregisteredKey{})
	marked, _ := v.(bool)
	return marked
}

// Has returns true if a handler is registered for namespace and operation.
func (r *HandlerRegistry) Has(namespace, operation string) bool {
	_, ok := r.handlers[namespace][operation]
	return ok
}

// Names returns a sorted list of all registered "namespace.operation" names.
func (r *HandlerRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

func (b *registryBuilder) addHandler(namespace, operation string, handler ByteHandler) error {
	if namespace == "" || operation == "" {
		return fmt.Errorf("handler namespace and operation cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("nil handler for %s.%s", namespace, operation)
	}
	ops, ok := b.handlers[namespace]
	if !ok {
		ops = make(map[string]ByteHandler)
		b.handlers[namespace] = ops
	}
	if _, exists := ops[operation]; exists {
		return fmt.Errorf("duplicate handler name: %q", namespace+"."+operation)
	}
	ops[operation] = handler
	return nil
}

// WithByteHandler registers a raw ByteHandler.
// Use WithHandler for type-safe registration with automatic wire handling.
func WithByteHandler(namespace, operation string, handler ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(namespace, operation, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithHandler registers a typed host function wrapped with NewWireHandler.
func WithHandler[Req any, Resp any](namespace, operation string, fn HostFunc[Req, Resp]) RegistryOption {
	return WithByteHandler(namespace, operation, NewWireHandler(fn))
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
