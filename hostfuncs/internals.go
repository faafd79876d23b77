package hostfuncs

import (
	"context"
	"strings"
)

// InternalsBundle returns the internals namespace:
//
//	panic(utf-8 text) -> empty
//
// The payload is raw text, not wire-encoded. Invalid UTF-8 is replaced rather
// than rejected: the report must always succeed.
func InternalsBundle() HostFuncBundle {
	return NewBundle(NamespaceInternals, map[string]ByteHandler{
		"panic": recordPanic,
	})
}

func recordPanic(ctx context.Context, payload []byte) ([]byte, error) {
	if f, ok := FrameFrom(ctx); ok {
		f.RecordPanic(strings.ToValidUTF8(string(payload), "�"))
	}
	return []byte{}, nil
}
