package ports

import "context"

// HostCallHandler services one synchronous call from guest code into the host.
// A returned error is reported to the guest as a host-call failure.
type HostCallHandler func(ctx context.Context, binding, namespace, operation string, payload []byte) ([]byte, error)

// Guest is a loaded, instantiated guest module.
// A Guest is not safe for concurrent use; its owner serializes calls.
type Guest interface {
	// Call runs the guest entry point named function with one serialized
	// argument and returns its serialized result. Host calls made by the guest
	// are serviced synchronously on the calling goroutine, using ctx.
	Call(ctx context.Context, function string, payload []byte) ([]byte, error)

	Close(ctx context.Context) error
}

// GuestLoader loads and validates guest bytecode, wiring host as the only
// host-call handler the guest can reach.
type GuestLoader interface {
	Load(ctx context.Context, bytecode []byte, host HostCallHandler) (Guest, error)
}

// GuestLoaderFunc adapts a function to GuestLoader.
type GuestLoaderFunc func(ctx context.Context, bytecode []byte, host HostCallHandler) (Guest, error)

// Load implements GuestLoader.
func (f GuestLoaderFunc) Load(ctx context.Context, bytecode []byte, host HostCallHandler) (Guest, error) {
	return f(ctx, bytecode, host)
}
