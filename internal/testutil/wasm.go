package testutil

// Function names understood by WAPCGuest. The guest routes on the length of
// the operation name.
const (
	WAPCPanic    = "panic"  // reports "boom" through internals.panic, then traps
	WAPCNow      = "now"    // returns the response of datetime.now
	WAPCBroken   = "broken" // fails with the guest error "boom"
	WAPCEchoText = "text"   // any other name echoes its payload
)

const (
	opI32Const    = 0x41
	opI32Eq       = 0x46
	opI32Eqz      = 0x45
	opIf          = 0x04
	opEnd         = 0x0b
	opReturn      = 0x0f
	opCall        = 0x10
	opDrop        = 0x1a
	opUnreachable = 0x00
	opLocalGet    = 0x20

	blockVoid = 0x40
	valI32    = 0x7f
	funcType  = 0x60
)

// Function indices: imports first, then the single defined function.
const (
	fnGuestRequest = iota
	fnGuestResponse
	fnHostCall
	fnHostResponse
	fnHostResponseLen
	fnGuestError
	fnGuestCall
)

// Guest memory layout: constant strings at 0, request buffers above.
const (
	memHost      = 0  // "host"
	memInternals = 4  // "internals"
	memPanic     = 13 // "panic"
	memBoom      = 18 // "boom"
	memDatetime  = 22 // "datetime"
	memNow       = 30 // "now"

	memOperation = 256
	memRequest   = 1024
	memResponse  = 2048
)

// WAPCGuest returns a minimal waPC guest module, assembled by hand, that
// exercises the host protocol without a guest toolchain.
func WAPCGuest() []byte {
	types := vec(
		fn([]byte{valI32, valI32}, nil),
		fn([]byte{valI32, valI32}, []byte{valI32}),
		fn([]byte{valI32, valI32, valI32, valI32, valI32, valI32, valI32, valI32}, []byte{valI32}),
		fn([]byte{valI32}, nil),
		fn(nil, []byte{valI32}),
	)

	imports := vec(
		imp("__guest_request", 0),
		imp("__guest_response", 0),
		imp("__host_call", 2),
		imp("__host_response", 3),
		imp("__host_response_len", 4),
		imp("__guest_error", 0),
	)

	exports := vec(
		cat(name("memory"), []byte{0x02, 0x00}),
		cat(name("__guest_call"), []byte{0x00, fnGuestCall}),
	)

	body := cat(
		// "panic": internals.panic("boom"), then trap.
		ifOpLen(len(WAPCPanic),
			i32(memHost), i32(4), i32(memInternals), i32(9), i32(memPanic), i32(5), i32(memBoom), i32(4),
			call(fnHostCall), []byte{opDrop, opUnreachable},
		),
		// "now": forward datetime.now, or fail if the host call failed.
		ifOpLen(len(WAPCNow),
			i32(memHost), i32(4), i32(memDatetime), i32(8), i32(memNow), i32(3), i32(0), i32(0),
			call(fnHostCall), []byte{opI32Eqz, opIf, blockVoid}, i32(0), []byte{opReturn, opEnd},
			i32(memResponse), call(fnHostResponse),
			i32(memResponse), call(fnHostResponseLen), call(fnGuestResponse),
			i32(1), []byte{opReturn},
		),
		// "broken": guest error "boom".
		ifOpLen(len(WAPCBroken),
			i32(memBoom), i32(4), call(fnGuestError),
			i32(0), []byte{opReturn},
		),
		// Anything else: echo the payload.
		i32(memOperation), i32(memRequest), call(fnGuestRequest),
		i32(memRequest), []byte{opLocalGet, 1}, call(fnGuestResponse),
		i32(1),
		[]byte{opEnd},
	)
	code := vec(cat(uleb(uint32(len(body)+1)), []byte{0x00}, body)) // no locals

	data := vec(cat(
		[]byte{0x00}, i32(0), []byte{opEnd},
		name("hostinternalspanicboomdatetimenow"),
	))

	return cat(
		[]byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00},
		section(1, types),
		section(2, imports),
		section(3, vec([]byte{1})),
		section(5, vec([]byte{0x00, 0x01})),
		section(7, exports),
		section(10, code),
		section(11, data),
	)
}

func ifOpLen(n int, then ...[]byte) []byte {
	head := cat([]byte{opLocalGet, 0}, i32(int32(n)), []byte{opI32Eq, opIf, blockVoid})
	return cat(head, cat(then...), []byte{opEnd})
}

func call(idx byte) []byte {
	return []byte{opCall, idx}
}

func i32(v int32) []byte {
	return append([]byte{opI32Const}, sleb(v)...)
}

func fn(params, results []byte) []byte {
	return cat([]byte{funcType}, uleb(uint32(len(params))), params, uleb(uint32(len(results))), results)
}

func imp(field string, typeIdx byte) []byte {
	return cat(name("wapc"), name(field), []byte{0x00, typeIdx})
}

func section(id byte, content []byte) []byte {
	return cat([]byte{id}, uleb(uint32(len(content))), content)
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint32(len(items))), cat(items...))
}

func name(s string) []byte {
	return cat(uleb(uint32(len(s))), []byte(s))
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
