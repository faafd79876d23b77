package ports

import (
	"context"

	"github.com/wasmfn/wasmfn/domain/entities"
)

// KVStore is the backing store of the "db" host namespace.
//
// Implementations may be shared by several workers and must be safe for
// concurrent use. A missing key is not an error: Get reports found=false and
// Del is a no-op.
type KVStore interface {
	Get(ctx context.Context, table, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, table, key string, value []byte) error
	Del(ctx context.Context, table, key string) error

	// GetPrefix returns all entries whose key starts with prefix, ordered by key.
	GetPrefix(ctx context.Context, table, prefix string) ([]entities.KVEntry, error)

	// SetMany writes all entries atomically.
	SetMany(ctx context.Context, table string, entries []entities.KVEntry) error

	// DelPrefix deletes all entries whose key starts with prefix and returns how many were removed.
	DelPrefix(ctx context.Context, table, prefix string) (int, error)

	Close() error
}
