package wazero

import (
	"io"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// DefaultMaxPayloadSize limits the size of host call payloads read from guest
// memory (1MB). It keeps a guest from making the host copy arbitrary amounts
// of memory by claiming a huge length.
const DefaultMaxPayloadSize = 1 * 1024 * 1024

// HostModuleName is the import module waPC guests link against.
const HostModuleName = "wapc"

// LoaderConfig holds configuration for the Loader.
type LoaderConfig struct {
	// RuntimeConfig configures the wazero runtime. Default: wazero.NewRuntimeConfig().
	RuntimeConfig wazero.RuntimeConfig

	// Logger receives __console_log output and guest stdout/stderr.
	Logger *zap.Logger

	// Stdout and Stderr override where WASI writes go. Default: the logger.
	Stdout io.Writer
	Stderr io.Writer

	// ModuleName is the host module name (default: "wapc").
	ModuleName string

	// MaxPayloadSize bounds host call arguments read from guest memory.
	MaxPayloadSize uint32
}

// LoaderOption configures the Loader.
type LoaderOption func(*LoaderConfig)

func defaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		ModuleName:     HostModuleName,
		MaxPayloadSize: DefaultMaxPayloadSize,
	}
}

// WithRuntimeConfig sets the wazero runtime configuration.
func WithRuntimeConfig(cfg wazero.RuntimeConfig) LoaderOption {
	return func(c *LoaderConfig) {
		c.RuntimeConfig = cfg
	}
}

// WithLogger sets the logger for guest output.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(c *LoaderConfig) {
		c.Logger = logger
	}
}

// WithStdout redirects the guest's WASI stdout.
func WithStdout(w io.Writer) LoaderOption {
	return func(c *LoaderConfig) {
		c.Stdout = w
	}
}

// WithStderr redirects the guest's WASI stderr.
func WithStderr(w io.Writer) LoaderOption {
	return func(c *LoaderConfig) {
		c.Stderr = w
	}
}

// WithModuleName sets the host module name (default: "wapc").
func WithModuleName(name string) LoaderOption {
	return func(c *LoaderConfig) {
		c.ModuleName = name
	}
}

// WithMaxPayloadSize sets the maximum host call payload size.
func WithMaxPayloadSize(size uint32) LoaderOption {
	return func(c *LoaderConfig) {
		c.MaxPayloadSize = size
	}
}
