package config

import (
	"fmt"
	"os"
	"time"

	"github.com/wasmfn/wasmfn/domain/policy"
	"github.com/wasmfn/wasmfn/infrastructure/kvstore"
	"github.com/wasmfn/wasmfn/transport"
)

// Config is the daemon configuration.
type Config struct {
	Guest        GuestConfig     `json:"guest" yaml:"guest" jsonschema:"required"`
	Transport    TransportConfig `json:"transport,omitempty" yaml:"transport"`
	Store        StoreConfig     `json:"store,omitempty" yaml:"store"`
	Log          LogConfig       `json:"log,omitempty" yaml:"log"`
	Metrics      MetricsConfig   `json:"metrics,omitempty" yaml:"metrics"`
	Capabilities []string        `json:"capabilities,omitempty" yaml:"capabilities" validate:"dive,capability" jsonschema:"description=Glob patterns over namespace/operation the guest may call"`
}

// GuestConfig locates the guest module.
type GuestConfig struct {
	Path           string `json:"path" yaml:"path" validate:"required" jsonschema:"required,description=Path to the guest wasm module"`
	MaxPayloadSize int    `json:"max_payload_size,omitempty" yaml:"max_payload_size" validate:"gte=0,lte=4294967295" jsonschema:"maximum=4294967295,description=Largest host call payload in bytes; 0 uses the runtime default"`
}

// TransportConfig configures the unix socket server.
type TransportConfig struct {
	Socket        string   `json:"socket,omitempty" yaml:"socket" validate:"required"`
	BufferSize    int      `json:"buffer_size,omitempty" yaml:"buffer_size" validate:"gte=256"`
	InvokeTimeout Duration `json:"invoke_timeout,omitempty" yaml:"invoke_timeout" validate:"gte=0"`
}

// StoreConfig selects the backend of the db host namespace.
type StoreConfig struct {
	Driver  string   `json:"driver,omitempty" yaml:"driver" validate:"oneof=memory bolt" jsonschema:"enum=memory,enum=bolt"`
	Path    string   `json:"path,omitempty" yaml:"path" validate:"required_if=Driver bolt"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout" validate:"gte=0"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `json:"level,omitempty" yaml:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Development bool   `json:"development,omitempty" yaml:"development"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Address string `json:"address,omitempty" yaml:"address" validate:"omitempty,hostname_port" jsonschema:"description=Listen address of the /metrics endpoint; empty disables it"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() Config {
	return Config{
		Transport: TransportConfig{
			Socket:        "/run/wasmfn/wasmfn.sock",
			BufferSize:    transport.DefaultBufferSize,
			InvokeTimeout: Duration(transport.DefaultInvokeTimeout),
		},
		Store: StoreConfig{
			Driver:  kvstore.DriverMemory,
			Timeout: Duration(time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
		Capabilities: []string{policy.AllowAll},
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := decodeYAML(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
