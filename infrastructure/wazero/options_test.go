package wazero

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tetratelabs/wazero"
)

func TestDefaultLoaderConfig(t *testing.T) {
	cfg := defaultLoaderConfig()

	assert.Equal(t, HostModuleName, cfg.ModuleName)
	assert.Equal(t, uint32(DefaultMaxPayloadSize), cfg.MaxPayloadSize)
	assert.Nil(t, cfg.Logger)
	assert.Nil(t, cfg.RuntimeConfig)
}

func TestLoaderOptions(t *testing.T) {
	var out, errOut bytes.Buffer
	rc := wazero.NewRuntimeConfigInterpreter()

	l := NewLoader(
		WithModuleName("custom_module"),
		WithMaxPayloadSize(2048),
		WithStdout(&out),
		WithStderr(&errOut),
		WithRuntimeConfig(rc),
	)

	assert.Equal(t, "custom_module", l.cfg.ModuleName)
	assert.Equal(t, uint32(2048), l.cfg.MaxPayloadSize)
	assert.Same(t, &out, l.cfg.Stdout)
	assert.Same(t, &errOut, l.cfg.Stderr)
	assert.Equal(t, rc, l.cfg.RuntimeConfig)
}
