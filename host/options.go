package host

import (
	"go.uber.org/zap"

	"github.com/wasmfn/wasmfn/domain/ports"
	"github.com/wasmfn/wasmfn/hostfuncs"
	"github.com/wasmfn/wasmfn/metrics"
)

// Option defines a functional option for configuring a Core.
type Option func(*config)

type config struct {
	loader     ports.GuestLoader
	store      ports.KVStore
	clock      ports.Clock
	policy     ports.Policy
	logger     *zap.Logger
	metrics    *metrics.Metrics
	middleware []hostfuncs.Middleware
	handlers   []hostfuncs.RegistryOption
}

// WithLoader sets how guest bytecode is loaded. Default: the wazero waPC loader.
func WithLoader(loader ports.GuestLoader) Option {
	return func(c *config) {
		c.loader = loader
	}
}

// WithStore sets the backing store of the db namespace. The Core does not
// close a store it was given. Default: a private in-memory store.
func WithStore(store ports.KVStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithClock sets the clock of the datetime namespace.
func WithClock(clock ports.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithPolicy restricts which host calls the guest may make.
// Default: every registered host call is allowed.
func WithPolicy(policy ports.Policy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithLogger sets the logger. Default: log.L().
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics enables invocation and host call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithMiddleware adds host call middleware after the built-in chain.
func WithMiddleware(mw ...hostfuncs.Middleware) Option {
	return func(c *config) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithHandlers registers additional host functions next to the built-in namespaces.
func WithHandlers(opts ...hostfuncs.RegistryOption) Option {
	return func(c *config) {
		c.handlers = append(c.handlers, opts...)
	}
}
