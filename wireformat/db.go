package wireformat

import "github.com/wasmfn/wasmfn/domain/entities"

// KeyArgs is the argument of db.get and db.del: [table, key].
type KeyArgs struct {
	_struct bool   `codec:",toarray"` //nolint:unused // ugorji array encoding marker
	Table   string `json:"table"`
	Key     string `json:"key"`
}

// SetArgs is the argument of db.set: [table, key, value].
type SetArgs struct {
	_struct bool   `codec:",toarray"` //nolint:unused // ugorji array encoding marker
	Table   string `json:"table"`
	Key     string `json:"key"`
	Value   []byte `json:"value"`
}

// PrefixArgs is the argument of db.get_prefix and db.del_prefix: [table, prefix].
type PrefixArgs struct {
	_struct bool   `codec:",toarray"` //nolint:unused // ugorji array encoding marker
	Table   string `json:"table"`
	Prefix  string `json:"prefix"`
}

// SetManyArgs is the argument of db.set_many: [table, [[key, value]...]].
type SetManyArgs struct {
	_struct bool               `codec:",toarray"` //nolint:unused // ugorji array encoding marker
	Table   string             `json:"table"`
	Entries []entities.KVEntry `json:"entries"`
}

// NaiveTimeLayout is the layout of datetime.now: UTC without a zone designator.
const NaiveTimeLayout = "2006-01-02T15:04:05.999999999"
