package wazero

import "context"

// invocation is the state of one __guest_call and the host calls it makes.
// It travels in the context passed to the guest function, so host functions
// find it without any shared mutable state on the Guest.
type invocation struct {
	fault     error
	operation string
	request   []byte
	response  []byte
	guestErr  string
	hostResp  []byte
	hostErr   string
}

type contextKey struct {
	name string
}

var invocationKey = &contextKey{name: "wapc_invocation"}

func withInvocation(ctx context.Context, inv *invocation) context.Context {
	return context.WithValue(ctx, invocationKey, inv)
}

func invocationFrom(ctx context.Context) (*invocation, bool) {
	inv, ok := ctx.Value(invocationKey).(*invocation)
	return inv, ok
}
