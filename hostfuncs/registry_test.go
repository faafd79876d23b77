package hostfuncs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
)

func nopHandler(ctx context.Context, payload []byte) ([]byte, error) {
	return nil, nil
}

func TestNewRegistry_Empty(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Empty(t, reg.Names())
}

func TestNewRegistry_WithByteHandler(t *testing.T) {
	reg, err := NewRegistry(
		WithByteHandler("test", "echo", nopHandler),
	)
	require.NoError(t, err)

	assert.True(t, reg.Has("test", "echo"))
	assert.False(t, reg.Has("test", "nonexistent"))
	assert.False(t, reg.Has("other", "echo"))
	assert.Equal(t, []string{"test.echo"}, reg.Names())
}

func TestNewRegistry_DuplicateHandler(t *testing.T) {
	_, err := NewRegistry(
		WithByteHandler("test", "op", nopHandler),
		WithByteHandler("test", "op", nopHandler), // duplicate
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate handler name")
}

func TestNewRegistry_SameOperationDifferentNamespaces(t *testing.T) {
	reg, err := NewRegistry(
		WithByteHandler("a", "get", nopHandler),
		WithByteHandler("b", "get", nopHandler),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.get", "b.get"}, reg.Names())
}

func TestNewRegistry_InvalidRegistration(t *testing.T) {
	tests := []struct {
		name    string
		opt     RegistryOption
		wantErr string
	}{
		{"empty namespace", WithByteHandler("", "op", nopHandler), "cannot be empty"},
		{"empty operation", WithByteHandler("ns", "", nopHandler), "cannot be empty"},
		{"nil handler", WithByteHandler("ns", "op", nil), "nil handler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.opt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHandlerRegistry_Dispatch(t *testing.T) {
	echoHandler := func(ctx context.Context, payload []byte) ([]byte, error) {
		return append([]byte("echo:"), payload...), nil
	}

	reg, err := NewRegistry(
		WithByteHandler("test", "echo", echoHandler),
	)
	require.NoError(t, err)

	t.Run("found handler", func(t *testing.T) {
		resp, err := reg.Dispatch(context.Background(), entities.HostCall{
			Namespace: "test", Operation: "echo", Payload: []byte("hello"),
		})
		require.NoError(t, err)
		assert.Equal(t, "echo:hello", string(resp))
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := reg.Dispatch(context.Background(), entities.HostCall{Namespace: "test", Operation: "shout"})

		var unsupported *domainerrors.UnsupportedHostCallError
		require.True(t, errors.As(err, &unsupported))
		assert.Equal(t, "test", unsupported.Namespace)
		assert.Equal(t, "shout", unsupported.Operation)
	})

	t.Run("unknown namespace", func(t *testing.T) {
		_, err := reg.Dispatch(context.Background(), entities.HostCall{Namespace: "fs", Operation: "read"})

		var unsupported *domainerrors.UnsupportedHostCallError
		require.True(t, errors.As(err, &unsupported))
		assert.Equal(t, "unsupported host call: fs.read", unsupported.Error())
	})
}

func TestHandlerRegistry_Names_Sorted(t *testing.T) {
	reg, err := NewRegistry(
		WithByteHandler("zebra", "a", nopHandler),
		WithByteHandler("alpha", "z", nopHandler),
		WithByteHandler("alpha", "b", nopHandler),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha.b", "alpha.z", "zebra.a"}, reg.Names())
}

func TestHandlerRegistry_Names_ReturnsCopy(t *testing.T) {
	reg, err := NewRegistry(WithByteHandler("ns", "op", nopHandler))
	require.NoError(t, err)

	names := reg.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"ns.op"}, reg.Names())
}

func TestHandlerRegistry_Dispatch_SetsHostContext(t *testing.T) {
	var captured entities.HostCall
	handler := func(ctx context.Context, payload []byte) ([]byte, error) {
		if hc, ok := ctx.(HostContext); ok {
			captured = hc.Call()
		}
		return nil, nil
	}

	reg, err := NewRegistry(
		WithByteHandler("test", "func", handler),
	)
	require.NoError(t, err)

	_, err = reg.Dispatch(context.Background(), entities.HostCall{
		CallerID: 7, Binding: "wasmfn", Namespace: "test", Operation: "func",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), captured.CallerID)
	assert.Equal(t, "wasmfn", captured.Binding)
	assert.Equal(t, "test.func", captured.Name())
}

func TestWithMiddleware(t *testing.T) {
	var callOrder []string

	middleware1 := func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			callOrder = append(callOrder, "mw1-before")
			resp, err := next(ctx, payload)
			callOrder = append(callOrder, "mw1-after")
			return resp, err
		}
	}

	middleware2 := func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			callOrder = append(callOrder, "mw2-before")
			resp, err := next(ctx, payload)
			callOrder = append(callOrder, "mw2-after")
			return resp, err
		}
	}

	handler := func(ctx context.Context, payload []byte) ([]byte, error) {
		callOrder = append(callOrder, "handler")
		return nil, nil
	}

	reg, err := NewRegistry(
		WithMiddleware(middleware1, middleware2),
		WithByteHandler("test", "op", handler),
	)
	require.NoError(t, err)

	_, err = reg.Dispatch(context.Background(), entities.HostCall{Namespace: "test", Operation: "op"})
	require.NoError(t, err)

	// FIFO order: mw1 wraps mw2 wraps handler
	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	assert.Equal(t, expected, callOrder)
}

func TestWithMiddleware_WrapsFallback(t *testing.T) {
	var seen []string
	tracking := func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			if hc, ok := ctx.(HostContext); ok {
				seen = append(seen, hc.FunctionName())
			}
			return next(ctx, payload)
		}
	}

	reg, err := NewRegistry(WithMiddleware(tracking))
	require.NoError(t, err)

	_, err = reg.Dispatch(context.Background(), entities.HostCall{Namespace: "nope", Operation: "nothing"})
	require.Error(t, err)
	assert.Equal(t, []string{"nope.nothing"}, seen)
}
