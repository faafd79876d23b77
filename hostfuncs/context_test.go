package hostfuncs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmfn/wasmfn/domain/entities"
)

func TestNewHostContext(t *testing.T) {
	hc := NewHostContext(context.Background(), entities.HostCall{Namespace: "db", Operation: "get"})

	require.NotNil(t, hc)
	assert.Equal(t, "db.get", hc.FunctionName())
	assert.Equal(t, "db", hc.Call().Namespace)
}

func TestHostContext_SetGetValue(t *testing.T) {
	hc := NewHostContext(context.Background(), entities.HostCall{Namespace: "test", Operation: "func"})

	_, ok := hc.GetValue("key1")
	assert.False(t, ok)

	hc.SetValue("key1", "value1")
	hc.SetValue("key2", 42)

	val, ok := hc.GetValue("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", val)

	val2, ok := hc.GetValue("key2")
	assert.True(t, ok)
	assert.Equal(t, 42, val2)
}

func TestHostContextFrom(t *testing.T) {
	call := entities.HostCall{Namespace: "a", Operation: "b"}

	t.Run("wraps plain context", func(t *testing.T) {
		hc := HostContextFrom(context.Background(), call)
		assert.Equal(t, "a.b", hc.FunctionName())
	})

	t.Run("returns existing host context", func(t *testing.T) {
		existing := NewHostContext(context.Background(), call)
		existing.SetValue("k", "v")

		hc := HostContextFrom(existing, entities.HostCall{Namespace: "x", Operation: "y"})
		assert.Same(t, existing, hc)
		assert.Equal(t, "a.b", hc.FunctionName())
	})
}

func TestHostContext_PreservesContextValues(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "parent")

	hc := NewHostContext(ctx, entities.HostCall{})
	assert.Equal(t, "parent", hc.Value(ctxKey{}))
}
