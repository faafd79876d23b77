package hostfuncs

import (
	"context"

	"github.com/wasmfn/wasmfn/domain/ports"
	"github.com/wasmfn/wasmfn/wireformat"
)

// DatetimeBundle returns the datetime namespace:
//
//	now() -> naive UTC timestamp string, e.g. "2024-03-01T12:30:00.123456789"
//
// The request payload is ignored. A nil clock uses the system clock.
func DatetimeBundle(clock ports.Clock) HostFuncBundle {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return NewBundle(NamespaceDatetime, map[string]ByteHandler{
		"now": func(ctx context.Context, _ []byte) ([]byte, error) {
			return wireformat.Marshal(clock.Now().UTC().Format(wireformat.NaiveTimeLayout))
		},
	})
}
