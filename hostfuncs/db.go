package hostfuncs

import (
	"context"

	"github.com/wasmfn/wasmfn/domain/entities"
	"github.com/wasmfn/wasmfn/domain/ports"
	"github.com/wasmfn/wasmfn/wireformat"
)

// DBBundle returns the db namespace backed by store. Argument and result
// shapes, all MessagePack:
//
//	get(table, key)                  -> bin | nil
//	set(table, key, bin)             -> empty
//	del(table, key)                  -> empty
//	get_prefix(table, prefix)        -> [[key, bin]...] ordered by key
//	set_many(table, [[key, bin]...]) -> empty
//	del_prefix(table, prefix)        -> uint
//
// A missing key is a normal result. Store failures are returned as host-call
// failures.
func DBBundle(store ports.KVStore) HostFuncBundle {
	db := &dbHandlers{store: store}
	return NewBundle(NamespaceDB, map[string]ByteHandler{
		"get":        NewWireHandler(db.get),
		"set":        NewWireHandler(db.set),
		"del":        NewWireHandler(db.del),
		"get_prefix": NewWireHandler(db.getPrefix),
		"set_many":   NewWireHandler(db.setMany),
		"del_prefix": NewWireHandler(db.delPrefix),
	})
}

type dbHandlers struct {
	store ports.KVStore
}

func (h *dbHandlers) get(ctx context.Context, args wireformat.KeyArgs) (*[]byte, error) {
	value, found, err := h.store.Get(ctx, args.Table, args.Key)
	if err != nil || !found {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return &value, nil
}

func (h *dbHandlers) set(ctx context.Context, args wireformat.SetArgs) (wireformat.Unit, error) {
	return wireformat.Unit{}, h.store.Set(ctx, args.Table, args.Key, args.Value)
}

func (h *dbHandlers) del(ctx context.Context, args wireformat.KeyArgs) (wireformat.Unit, error) {
	return wireformat.Unit{}, h.store.Del(ctx, args.Table, args.Key)
}

func (h *dbHandlers) getPrefix(ctx context.Context, args wireformat.PrefixArgs) ([]entities.KVEntry, error) {
	entries, err := h.store.GetPrefix(ctx, args.Table, args.Prefix)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []entities.KVEntry{}
	}
	return entries, nil
}

func (h *dbHandlers) setMany(ctx context.Context, args wireformat.SetManyArgs) (wireformat.Unit, error) {
	return wireformat.Unit{}, h.store.SetMany(ctx, args.Table, args.Entries)
}

func (h *dbHandlers) delPrefix(ctx context.Context, args wireformat.PrefixArgs) (uint64, error) {
	n, err := h.store.DelPrefix(ctx, args.Table, args.Prefix)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}
