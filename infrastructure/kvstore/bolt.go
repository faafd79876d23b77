package kvstore

import (
	"bytes"
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/domain/ports"
)

var itemsBucket = []byte("items")

var _ ports.KVStore = (*BoltStore)(nil)

// BoltStore persists all tables in a single bbolt bucket keyed by compound key.
// bbolt serializes writers, so the store can be shared by every worker.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database file at path. timeout bounds the wait
// for the file lock held by another process; zero waits forever.
func OpenBolt(path string, timeout time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, &domainerrors.StoreError{Operation: "open", Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(itemsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, &domainerrors.StoreError{Operation: "open", Err: err}
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) view(ctx context.Context, op, table string, fn func(b *bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return &domainerrors.StoreError{Operation: op, Table: table, Err: err}
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(itemsBucket))
	})
	if err != nil {
		return &domainerrors.StoreError{Operation: op, Table: table, Err: err}
	}
	return nil
}

func (s *BoltStore) update(ctx context.Context, op, table string, fn func(b *bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return &domainerrors.StoreError{Operation: op, Table: table, Err: err}
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(itemsBucket))
	})
	if err != nil {
		return &domainerrors.StoreError{Operation: op, Table: table, Err: err}
	}
	return nil
}

func (s *BoltStore) Get(ctx context.Context, table, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := s.view(ctx, "get", table, func(b *bolt.Bucket) error {
		// Seek rather than Get: an empty value must still count as present.
		ck := EncodeKey(table, key)
		if k, v := b.Cursor().Seek(ck); k != nil && bytes.Equal(k, ck) {
			// Values are only valid for the life of the transaction.
			value, found = clone(v), true
		}
		return nil
	})
	return value, found, err
}

func (s *BoltStore) Set(ctx context.Context, table, key string, value []byte) error {
	return s.update(ctx, "set", table, func(b *bolt.Bucket) error {
		return b.Put(EncodeKey(table, key), clone(value))
	})
}

func (s *BoltStore) Del(ctx context.Context, table, key string) error {
	return s.update(ctx, "del", table, func(b *bolt.Bucket) error {
		return b.Delete(EncodeKey(table, key))
	})
}

func (s *BoltStore) GetPrefix(ctx context.Context, table, prefix string) ([]entities.KVEntry, error) {
	var entries []entities.KVEntry
	err := s.view(ctx, "get_prefix", table, func(b *bolt.Bucket) error {
		p := EncodePrefix(table, prefix)
		c := b.Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			_, key, err := DecodeKey(k)
			if err != nil {
				return err
			}
			entries = append(entries, entities.NewKVEntry(key, clone(v)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *BoltStore) SetMany(ctx context.Context, table string, entries []entities.KVEntry) error {
	return s.update(ctx, "set_many", table, func(b *bolt.Bucket) error {
		for _, e := range entries {
			if err := b.Put(EncodeKey(table, e.Key), clone(e.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) DelPrefix(ctx context.Context, table, prefix string) (int, error) {
	var n int
	err := s.update(ctx, "del_prefix", table, func(b *bolt.Bucket) error {
		p := EncodePrefix(table, prefix)
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, clone(k))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return &domainerrors.StoreError{Operation: "close", Err: err}
	}
	return nil
}
