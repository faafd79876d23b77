package entities

// HostCall is a single guest-initiated call into the host. It only lives for
// the duration of one synchronous dispatch.
type HostCall struct {
	// CallerID identifies the execution context that owns the guest.
	CallerID uint64

	// Binding is the guest-supplied binding descriptor. It is not used for routing.
	Binding string

	Namespace string
	Operation string
	Payload   []byte
}

// Name returns "namespace.operation".
func (c HostCall) Name() string {
	return c.Namespace + "." + c.Operation
}
