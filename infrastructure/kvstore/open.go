package kvstore

import (
	"fmt"
	"time"

	"github.com/wasmfn/wasmfn/domain/ports"
)

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
)

// Open returns the store selected by driver. path and timeout only apply to
// the bolt driver.
func Open(driver, path string, timeout time.Duration) (ports.KVStore, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverBolt:
		if path == "" {
			return nil, fmt.Errorf("kvstore: bolt driver requires a path")
		}
		return OpenBolt(path, timeout)
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q", driver)
	}
}
