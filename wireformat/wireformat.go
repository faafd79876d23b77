// Package wireformat defines the binary wire format shared by the host, its
// guests and transport clients. Everything is MessagePack. Tuple-shaped
// arguments are encoded as arrays so that they stay bit-compatible with
// guest SDKs that serialize positional tuples.
package wireformat

import (
	"fmt"
	"reflect"

	"github.com/ugorji/go/codec"
)

var handle = newHandle()

func newHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	// WriteExt selects the msgpack format revision with distinct str and bin types.
	h.WriteExt = true
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

// Unit is the empty response of operations that return nothing.
// It is encoded as a zero-length payload.
type Unit struct{}

// Marshal encodes v in the shared binary format.
func Marshal(v interface{}) ([]byte, error) {
	switch v.(type) {
	case Unit, *Unit:
		return []byte{}, nil
	}
	var out []byte
	if err := codec.NewEncoderBytes(&out, handle).Encode(v); err != nil {
		return nil, fmt.Errorf("wireformat: encode %T: %w", v, err)
	}
	return out, nil
}

// Unmarshal decodes data into v, which must be a pointer.
// An empty payload is only accepted when decoding into *Unit.
func Unmarshal(data []byte, v interface{}) error {
	if _, ok := v.(*Unit); ok {
		if len(data) != 0 {
			return fmt.Errorf("wireformat: expected empty payload, got %d bytes", len(data))
		}
		return nil
	}
	if len(data) == 0 {
		return fmt.Errorf("wireformat: decode %T: empty payload", v)
	}
	dec := codec.NewDecoderBytes(data, handle)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("wireformat: decode %T: %w", v, err)
	}
	if n := dec.NumBytesRead(); n != len(data) {
		return fmt.Errorf("wireformat: decode %T: %d trailing bytes", v, len(data)-n)
	}
	return nil
}
