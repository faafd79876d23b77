package transport

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/host"
	"github.com/wasmfn/wasmfn/internal/testutil"
	"github.com/wasmfn/wasmfn/wireformat"
	"github.com/wasmfn/wasmfn/worker"
)

type harness struct {
	path   string
	served chan error
	cancel context.CancelFunc
}

func startServer(t *testing.T, opts ...ServerOption) *harness {
	t.Helper()

	loader := &testutil.FakeLoader{Functions: map[string]testutil.GuestFunc{
		entities.FunctionText: testutil.TextFunc(func(_ context.Context, h testutil.Host, in string) (string, error) {
			if in == "panic" {
				return "", h.Panic("boom")
			}
			return strings.ToUpper(in), nil
		}),
	}}
	w, err := worker.Start(context.Background(), nil,
		worker.WithLogger(zaptest.NewLogger(t)),
		worker.WithCoreOptions(host.WithLoader(loader)))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wasmfn.sock")
	l, err := Listen(path)
	require.NoError(t, err)

	opts = append([]ServerOption{WithServerLogger(zaptest.NewLogger(t))}, opts...)
	srv := NewServer(NewAdapter(w), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{path: path, served: make(chan error, 1), cancel: cancel}
	go func() { h.served <- srv.Serve(ctx, l) }()

	t.Cleanup(func() {
		h.stop(t)
		_ = w.Shutdown(context.Background())
	})
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.served:
		assert.NoError(t, err)
		h.served <- nil
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func dial(t *testing.T, path string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func invoke(t *testing.T, client *Client, req wireformat.InvocationRequest) wireformat.InvocationResponse {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Invoke(ctx, req)
	require.NoError(t, err)
	return resp
}

func TestServer_Invoke(t *testing.T) {
	h := startServer(t)
	client := dial(t, h.path)

	resp := invoke(t, client, wireformat.InvocationRequest{ID: "1", Function: "text", Payload: []byte("hello")})
	assert.False(t, resp.Failed())
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, []byte("HELLO"), resp.Output)

	resp = invoke(t, client, wireformat.InvocationRequest{ID: "2", Function: "text", Payload: []byte("panic")})
	require.True(t, resp.Failed())
	assert.Equal(t, "panic", resp.Error.Code)

	resp = invoke(t, client, wireformat.InvocationRequest{ID: "3", Function: "text", Payload: []byte("again")})
	assert.Equal(t, []byte("AGAIN"), resp.Output)
}

func TestServer_InvalidUTF8(t *testing.T) {
	h := startServer(t)
	client := dial(t, h.path)

	resp := invoke(t, client, wireformat.InvocationRequest{ID: "u", Function: "text", Payload: []byte{0xff}})
	require.True(t, resp.Failed())
	assert.Equal(t, "invalid_payload", resp.Error.Type)
	assert.Equal(t, "input", resp.Error.Code)
}

func TestServer_ConcurrentClients(t *testing.T) {
	h := startServer(t)

	const clients = 5
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		client := dial(t, h.path)
		go func(c *Client) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for j := 0; j < 10; j++ {
				resp, err := c.Invoke(ctx, wireformat.InvocationRequest{Function: "text", Payload: []byte("abc")})
				if err == nil && string(resp.Output) != "ABC" {
					err = resp.Error
				}
				if err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(client)
	}

	for i := 0; i < clients; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestServer_BadMessageKeepsConnection(t *testing.T) {
	h := startServer(t)

	conn, err := net.Dial("unix", h.path)
	require.NoError(t, err)
	defer conn.Close()
	c := NewConn(conn, 0)

	_, err = conn.Write([]byte{0x93, 0x01})
	require.NoError(t, err)

	var resp wireformat.InvocationResponse
	require.NoError(t, c.ReadMessage(&resp))
	require.True(t, resp.Failed())
	assert.Equal(t, "transport", resp.Error.Type)
	assert.Equal(t, "decode", resp.Error.Code)

	require.NoError(t, c.WriteMessage(wireformat.InvocationRequest{ID: "ok", Function: "text", Payload: []byte("fine")}))
	require.NoError(t, c.ReadMessage(&resp))
	assert.Equal(t, []byte("FINE"), resp.Output)
}

func TestServer_FrameTooLargeClosesConnection(t *testing.T) {
	h := startServer(t, WithBufferSize(32))
	client := dial(t, h.path)

	resp := invoke(t, client, wireformat.InvocationRequest{ID: "big", Function: "text", Payload: make([]byte, 64)})
	require.True(t, resp.Failed())
	assert.Equal(t, "transport", resp.Error.Type)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Invoke(ctx, wireformat.InvocationRequest{ID: "after", Payload: []byte("x")})
	assert.ErrorIs(t, err, domainerrors.ErrClientDisconnected)
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	h := startServer(t)
	client := dial(t, h.path)
	invoke(t, client, wireformat.InvocationRequest{Function: "text", Payload: []byte("warm")})

	h.stop(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Invoke(ctx, wireformat.InvocationRequest{Function: "text", Payload: []byte("x")})
	assert.Error(t, err)
}

func TestListen_ReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	l, err := Listen(path)
	require.NoError(t, err)
	defer l.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.ModeSocket, info.Mode()&os.ModeSocket)
	assert.Equal(t, SocketMode, info.Mode().Perm())
}
