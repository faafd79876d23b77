package hostfuncs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/infrastructure/kvstore"
	"github.com/wasmfn/wasmfn/wireformat"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func newDefaultRegistry(t *testing.T) (*HandlerRegistry, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	clock := fixedClock{now: time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.FixedZone("CET", 3600))}

	reg, err := NewRegistry(WithBundles(DefaultBundles(store, clock)...))
	require.NoError(t, err)
	return reg, store
}

func dispatch(t *testing.T, reg *HandlerRegistry, ns, op string, args any) ([]byte, error) {
	t.Helper()
	var payload []byte
	if args != nil {
		var err error
		payload, err = wireformat.Marshal(args)
		require.NoError(t, err)
	}
	return reg.Dispatch(context.Background(), entities.HostCall{Namespace: ns, Operation: op, Payload: payload})
}

func TestDefaultBundles_Names(t *testing.T) {
	reg, _ := newDefaultRegistry(t)

	assert.Equal(t, []string{
		"datetime.now",
		"db.del",
		"db.del_prefix",
		"db.get",
		"db.get_prefix",
		"db.set",
		"db.set_many",
		"internals.panic",
	}, reg.Names())
}

func TestWithBundle_Duplicate(t *testing.T) {
	_, err := NewRegistry(
		WithBundle(InternalsBundle()),
		WithBundle(InternalsBundle()),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internals.panic")
}

func TestInternalsBundle_RecordsPanic(t *testing.T) {
	reg, _ := newDefaultRegistry(t)
	frame := &Frame{}
	ctx := WithFrame(context.Background(), frame)

	resp, err := reg.Dispatch(ctx, entities.HostCall{Namespace: "internals", Operation: "panic", Payload: []byte("boom")})
	require.NoError(t, err)
	assert.Empty(t, resp)

	msg, panicked := frame.Panic()
	assert.True(t, panicked)
	assert.Equal(t, "boom", msg)
}

func TestInternalsBundle_InvalidUTF8StillSucceeds(t *testing.T) {
	reg, _ := newDefaultRegistry(t)
	frame := &Frame{}
	ctx := WithFrame(context.Background(), frame)

	_, err := reg.Dispatch(ctx, entities.HostCall{Namespace: "internals", Operation: "panic", Payload: []byte{'o', 0xff, 'k'}})
	require.NoError(t, err)

	msg, panicked := frame.Panic()
	assert.True(t, panicked)
	assert.Equal(t, "o�k", msg)
}

func TestInternalsBundle_WithoutFrame(t *testing.T) {
	reg, _ := newDefaultRegistry(t)

	_, err := dispatch(t, reg, "internals", "panic", nil)
	assert.NoError(t, err)
}

func TestDatetimeBundle_Now(t *testing.T) {
	reg, _ := newDefaultRegistry(t)

	resp, err := dispatch(t, reg, "datetime", "now", nil)
	require.NoError(t, err)

	var now string
	require.NoError(t, wireformat.Unmarshal(resp, &now))
	assert.Equal(t, "2024-03-01T11:30:00.123456789", now, "converted to UTC, no zone designator")

	parsed, err := time.Parse(wireformat.NaiveTimeLayout, now)
	require.NoError(t, err)
	assert.Equal(t, 11, parsed.Hour())
}

func TestDatetimeBundle_DefaultClock(t *testing.T) {
	reg, err := NewRegistry(WithBundle(DatetimeBundle(nil)))
	require.NoError(t, err)

	resp, err := dispatch(t, reg, "datetime", "now", nil)
	require.NoError(t, err)

	var now string
	require.NoError(t, wireformat.Unmarshal(resp, &now))
	parsed, err := time.Parse(wireformat.NaiveTimeLayout, now)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}

func TestDBBundle_SetThenGet(t *testing.T) {
	reg, _ := newDefaultRegistry(t)
	stored := []byte{0x00, 0x01, 0xfe}

	resp, err := dispatch(t, reg, "db", "set", wireformat.SetArgs{Table: "users", Key: "1", Value: stored})
	require.NoError(t, err)
	assert.Empty(t, resp)

	resp, err = dispatch(t, reg, "db", "get", wireformat.KeyArgs{Table: "users", Key: "1"})
	require.NoError(t, err)

	var got *[]byte
	require.NoError(t, wireformat.Unmarshal(resp, &got))
	require.NotNil(t, got)
	assert.Equal(t, stored, *got)
}

func TestDBBundle_GetMissingIsNone(t *testing.T) {
	reg, _ := newDefaultRegistry(t)

	resp, err := dispatch(t, reg, "db", "get", wireformat.KeyArgs{Table: "users", Key: "nobody"})
	require.NoError(t, err)

	var got *[]byte
	require.NoError(t, wireformat.Unmarshal(resp, &got))
	assert.Nil(t, got)
}

func TestDBBundle_Del(t *testing.T) {
	reg, store := newDefaultRegistry(t)
	require.NoError(t, store.Set(context.Background(), "t", "k", []byte("v")))

	resp, err := dispatch(t, reg, "db", "del", wireformat.KeyArgs{Table: "t", Key: "k"})
	require.NoError(t, err)
	assert.Empty(t, resp)

	_, found, err := store.Get(context.Background(), "t", "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDBBundle_SetManyGetPrefixDelPrefix(t *testing.T) {
	reg, _ := newDefaultRegistry(t)

	_, err := dispatch(t, reg, "db", "set_many", wireformat.SetManyArgs{
		Table: "t",
		Entries: []entities.KVEntry{
			entities.NewKVEntry("b", []byte("2")),
			entities.NewKVEntry("a", []byte("1")),
			entities.NewKVEntry("x", []byte("9")),
		},
	})
	require.NoError(t, err)

	resp, err := dispatch(t, reg, "db", "get_prefix", wireformat.PrefixArgs{Table: "t", Prefix: ""})
	require.NoError(t, err)

	var entries []entities.KVEntry
	require.NoError(t, wireformat.Unmarshal(resp, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)
	assert.Equal(t, "x", entries[2].Key)

	resp, err = dispatch(t, reg, "db", "del_prefix", wireformat.PrefixArgs{Table: "t", Prefix: "x"})
	require.NoError(t, err)

	var deleted uint64
	require.NoError(t, wireformat.Unmarshal(resp, &deleted))
	assert.Equal(t, uint64(1), deleted)
}

func TestDBBundle_GetPrefixEmptyIsEmptyArray(t *testing.T) {
	reg, _ := newDefaultRegistry(t)

	resp, err := dispatch(t, reg, "db", "get_prefix", wireformat.PrefixArgs{Table: "t", Prefix: "none"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90}, resp)
}

func TestDBBundle_MalformedArguments(t *testing.T) {
	reg, _ := newDefaultRegistry(t)

	_, err := dispatch(t, reg, "db", "get", "not a tuple")
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestDBBundle_StoreFailure(t *testing.T) {
	reg, store := newDefaultRegistry(t)
	require.NoError(t, store.Close())

	_, err := dispatch(t, reg, "db", "get", wireformat.KeyArgs{Table: "t", Key: "k"})

	var storeErr *domainerrors.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.ErrorIs(t, err, kvstore.ErrStoreClosed)
}
