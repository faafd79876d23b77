package kvstore

import (
	"context"
	"errors"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix/v2"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/domain/ports"
)

// ErrStoreClosed is returned by every operation on a closed store.
var ErrStoreClosed = errors.New("store closed")

var _ ports.KVStore = (*MemoryStore)(nil)

// MemoryStore keeps all tables in one immutable radix tree. Readers work on
// a snapshot of the root; writers build a new tree and swap the root, so a
// set_many is visible all at once or not at all.
type MemoryStore struct {
	tree   *iradix.Tree[[]byte]
	mu     sync.RWMutex
	closed bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tree: iradix.New[[]byte]()}
}

func (s *MemoryStore) snapshot(op, table string) (*iradix.Tree[[]byte], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, &domainerrors.StoreError{Operation: op, Table: table, Err: ErrStoreClosed}
	}
	return s.tree, nil
}

func (s *MemoryStore) update(op, table string, fn func(txn *iradix.Txn[[]byte])) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &domainerrors.StoreError{Operation: op, Table: table, Err: ErrStoreClosed}
	}
	txn := s.tree.Txn()
	fn(txn)
	s.tree = txn.Commit()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, table, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, &domainerrors.StoreError{Operation: "get", Table: table, Err: err}
	}
	tree, err := s.snapshot("get", table)
	if err != nil {
		return nil, false, err
	}
	v, ok := tree.Get(EncodeKey(table, key))
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, table, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return &domainerrors.StoreError{Operation: "set", Table: table, Err: err}
	}
	return s.update("set", table, func(txn *iradix.Txn[[]byte]) {
		txn.Insert(EncodeKey(table, key), clone(value))
	})
}

func (s *MemoryStore) Del(ctx context.Context, table, key string) error {
	if err := ctx.Err(); err != nil {
		return &domainerrors.StoreError{Operation: "del", Table: table, Err: err}
	}
	return s.update("del", table, func(txn *iradix.Txn[[]byte]) {
		txn.Delete(EncodeKey(table, key))
	})
}

func (s *MemoryStore) GetPrefix(ctx context.Context, table, prefix string) ([]entities.KVEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domainerrors.StoreError{Operation: "get_prefix", Table: table, Err: err}
	}
	tree, err := s.snapshot("get_prefix", table)
	if err != nil {
		return nil, err
	}

	var (
		entries []entities.KVEntry
		walkErr error
	)
	tree.Root().WalkPrefix(EncodePrefix(table, prefix), func(k []byte, v []byte) bool {
		_, key, err := DecodeKey(k)
		if err != nil {
			walkErr = err
			return true
		}
		entries = append(entries, entities.NewKVEntry(key, clone(v)))
		return false
	})
	if walkErr != nil {
		return nil, &domainerrors.StoreError{Operation: "get_prefix", Table: table, Err: walkErr}
	}
	return entries, nil
}

func (s *MemoryStore) SetMany(ctx context.Context, table string, entries []entities.KVEntry) error {
	if err := ctx.Err(); err != nil {
		return &domainerrors.StoreError{Operation: "set_many", Table: table, Err: err}
	}
	return s.update("set_many", table, func(txn *iradix.Txn[[]byte]) {
		for _, e := range entries {
			txn.Insert(EncodeKey(table, e.Key), clone(e.Value))
		}
	})
}

func (s *MemoryStore) DelPrefix(ctx context.Context, table, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &domainerrors.StoreError{Operation: "del_prefix", Table: table, Err: err}
	}
	var n int
	err := s.update("del_prefix", table, func(txn *iradix.Txn[[]byte]) {
		p := EncodePrefix(table, prefix)
		txn.Root().WalkPrefix(p, func(k []byte, v []byte) bool {
			n++
			return false
		})
		txn.DeletePrefix(p)
	})
	return n, err
}

// Len returns the number of items across all tables.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
