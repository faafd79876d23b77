package kvstore

import (
	"encoding/binary"
	"errors"
)

var errMalformedKey = errors.New("malformed compound key")

// EncodeKey joins table and key into one compound key:
//
//	uvarint(len(table)) || table || key
//
// The length prefix makes the encoding injective for arbitrary table and key
// text, including separators and empty strings.
func EncodeKey(table, key string) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64+len(table)+len(key))
	buf = binary.AppendUvarint(buf, uint64(len(table)))
	buf = append(buf, table...)
	return append(buf, key...)
}

// EncodePrefix returns the compound key prefix shared by every key of table
// that starts with prefix.
func EncodePrefix(table, prefix string) []byte {
	return EncodeKey(table, prefix)
}

// DecodeKey splits a compound key produced by EncodeKey.
func DecodeKey(b []byte) (table, key string, err error) {
	n, size := binary.Uvarint(b)
	if size <= 0 {
		return "", "", errMalformedKey
	}
	rest := b[size:]
	if n > uint64(len(rest)) {
		return "", "", errMalformedKey
	}
	return string(rest[:n]), string(rest[n:]), nil
}
