package entities

// FunctionText is the entry point name of text functions: one UTF-8 string in,
// one UTF-8 string out.
const FunctionText = "text"

// Invocation is one request to run a named guest entry point.
type Invocation struct {
	// ID identifies the invocation in logs and on the wire.
	ID string

	// Function is the guest entry point name, e.g. "text".
	Function string

	// Payload is the opaque request body. For text functions it must be UTF-8.
	Payload []byte
}
