package wazero

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/internal/testutil"
)

type recordedCall struct {
	binding, namespace, operation string
	payload                       []byte
}

type recordingHost struct {
	mu    sync.Mutex
	calls []recordedCall
	resp  []byte
	err   error
}

func (h *recordingHost) handle(_ context.Context, binding, namespace, operation string, payload []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, recordedCall{binding, namespace, operation, payload})
	return h.resp, h.err
}

func loadFixture(t *testing.T, host *recordingHost, opts ...LoaderOption) *Guest {
	t.Helper()
	ctx := context.Background()
	opts = append([]LoaderOption{WithLogger(zaptest.NewLogger(t))}, opts...)

	guest, err := NewLoader(opts...).Load(ctx, testutil.WAPCGuest(), host.handle)
	require.NoError(t, err)
	t.Cleanup(func() { _ = guest.Close(ctx) })
	return guest.(*Guest)
}

func TestGuest_Echo(t *testing.T) {
	guest := loadFixture(t, &recordingHost{})

	out, err := guest.Call(context.Background(), testutil.WAPCEchoText, []byte("hello, wasm"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello, wasm"), out)

	out, err = guest.Call(context.Background(), testutil.WAPCEchoText, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, uint32(65536), guest.MemorySize())
}

func TestGuest_HostCall(t *testing.T) {
	host := &recordingHost{resp: []byte("2024-03-01T00:00:00")}
	guest := loadFixture(t, host)

	out, err := guest.Call(context.Background(), testutil.WAPCNow, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("2024-03-01T00:00:00"), out)

	require.Len(t, host.calls, 1)
	assert.Equal(t, "host", host.calls[0].binding)
	assert.Equal(t, "datetime", host.calls[0].namespace)
	assert.Equal(t, "now", host.calls[0].operation)
	assert.Empty(t, host.calls[0].payload)
}

func TestGuest_HostCallFailure(t *testing.T) {
	host := &recordingHost{err: errors.New("clock unavailable")}
	guest := loadFixture(t, host)

	_, err := guest.Call(context.Background(), testutil.WAPCNow, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without an error message")
}

func TestGuest_PanicReportedThroughHost(t *testing.T) {
	host := &recordingHost{resp: []byte{}}
	guest := loadFixture(t, host)

	_, err := guest.Call(context.Background(), testutil.WAPCPanic, nil)
	require.Error(t, err, "the guest traps after reporting")
	assert.Contains(t, err.Error(), "unreachable")

	require.Len(t, host.calls, 1)
	assert.Equal(t, "internals", host.calls[0].namespace)
	assert.Equal(t, "panic", host.calls[0].operation)
	assert.Equal(t, []byte("boom"), host.calls[0].payload)

	// The instance stays usable after a trap.
	out, err := guest.Call(context.Background(), testutil.WAPCEchoText, []byte("still here"))
	require.NoError(t, err)
	assert.Equal(t, []byte("still here"), out)
}

func TestGuest_GuestError(t *testing.T) {
	guest := loadFixture(t, &recordingHost{})

	_, err := guest.Call(context.Background(), testutil.WAPCBroken, nil)
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
}

func TestGuest_MaxPayloadSize(t *testing.T) {
	host := &recordingHost{}
	guest := loadFixture(t, host, WithMaxPayloadSize(2))

	_, err := guest.Call(context.Background(), testutil.WAPCPanic, nil)
	require.Error(t, err)
	assert.Empty(t, host.calls, "oversized payload never reaches the host")
}

func TestLoader_InitErrors(t *testing.T) {
	tests := []struct {
		name      string
		bytecode  []byte
		wantStage string
	}{
		{"not wasm", []byte("definitely not wasm"), StageCompile},
		{"empty module", []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}, StageValidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(WithLogger(zaptest.NewLogger(t))).Load(context.Background(), tt.bytecode, nil)

			var initErr *domainerrors.InitError
			require.True(t, errors.As(err, &initErr), "want InitError, got %v", err)
			assert.Equal(t, tt.wantStage, initErr.Stage)
		})
	}
}

func TestLoader_IndependentInstances(t *testing.T) {
	loader := NewLoader(WithLogger(zaptest.NewLogger(t)))
	ctx := context.Background()

	a, err := loader.Load(ctx, testutil.WAPCGuest(), nil)
	require.NoError(t, err)
	b, err := loader.Load(ctx, testutil.WAPCGuest(), nil)
	require.NoError(t, err)

	require.NoError(t, a.Close(ctx))

	out, err := b.Call(ctx, testutil.WAPCEchoText, []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), out)
	require.NoError(t, b.Close(ctx))
}

func TestLoader_LogsMemorySize(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)

	guest, err := NewLoader(WithLogger(zap.New(core))).Load(ctx, testutil.WAPCGuest(), (&recordingHost{}).handle)
	require.NoError(t, err)
	t.Cleanup(func() { _ = guest.Close(ctx) })

	entries := logs.FilterMessage("guest loaded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(65536), entries[0].ContextMap()["memory_bytes"])
}
