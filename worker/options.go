package worker

import (
	"go.uber.org/zap"

	"github.com/wasmfn/wasmfn/host"
	"github.com/wasmfn/wasmfn/metrics"
)

// Option configures a Worker.
type Option func(*config)

type config struct {
	name     string
	logger   *zap.Logger
	metrics  *metrics.Metrics
	coreOpts []host.Option
}

// WithName sets the name the worker logs under. Default: "worker".
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger of the worker and its Core.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics enables queue and invocation metrics for the worker and its Core.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithCoreOptions passes options to the Core the worker creates.
func WithCoreOptions(opts ...host.Option) Option {
	return func(c *config) {
		c.coreOpts = append(c.coreOpts, opts...)
	}
}
