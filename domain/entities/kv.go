package entities

// KVEntry is a single item of a key-value table.
type KVEntry struct {
	_struct bool   `codec:",toarray"` //nolint:unused // ugorji array encoding marker
	Key     string `json:"key"`
	Value   []byte `json:"value"`
}

// NewKVEntry creates an entry.
func NewKVEntry(key string, value []byte) KVEntry {
	return KVEntry{Key: key, Value: value}
}
