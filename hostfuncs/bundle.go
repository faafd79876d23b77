package hostfuncs

import "github.com/wasmfn/wasmfn/domain/ports"

// Namespaces served by the built-in bundles.
const (
	NamespaceInternals = "internals"
	NamespaceDatetime  = "datetime"
	NamespaceDB        = "db"
)

// HostFuncBundle is a pre-configured set of operations of one namespace.
type HostFuncBundle interface {
	Namespace() string

	// Handlers returns a map of operation names to ByteHandler functions.
	Handlers() map[string]ByteHandler
}

type staticBundle struct {
	handlers  map[string]ByteHandler
	namespace string
}

func (b *staticBundle) Namespace() string {
	return b.namespace
}

func (b *staticBundle) Handlers() map[string]ByteHandler {
	return b.handlers
}

// NewBundle creates a bundle from a fixed operation table.
func NewBundle(namespace string, handlers map[string]ByteHandler) HostFuncBundle {
	return &staticBundle{namespace: namespace, handlers: handlers}
}

// DefaultBundles returns every namespace the execution core exposes to guests:
// internals, datetime and db.
func DefaultBundles(store ports.KVStore, clock ports.Clock) []HostFuncBundle {
	return []HostFuncBundle{
		InternalsBundle(),
		DatetimeBundle(clock),
		DBBundle(store),
	}
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		ns := bundle.Namespace()
		for op, handler := range bundle.Handlers() {
			if err := b.addHandler(ns, op, handler); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}

// WithBundles registers several bundles.
func WithBundles(bundles ...HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for _, bundle := range bundles {
			WithBundle(bundle)(b)
		}
	}
}
