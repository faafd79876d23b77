package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wasmfn/wasmfn/domain/ports"
	"github.com/wasmfn/wasmfn/wireformat"
)

// ErrTrap is what a fake guest returns when it aborts, like a wasm trap.
var ErrTrap = errors.New("wasm error: unreachable")

// Host is the fake guest's view of the host.
type Host struct {
	ctx     context.Context
	handler ports.HostCallHandler
}

// Call performs a synchronous host call.
func (h Host) Call(namespace, operation string, payload []byte) ([]byte, error) {
	return h.handler(h.ctx, "wasmfn", namespace, operation, payload)
}

// CallWire encodes args, performs the host call and decodes the response into out.
// A nil out ignores the response.
func (h Host) CallWire(namespace, operation string, args, out any) error {
	payload, err := wireformat.Marshal(args)
	if err != nil {
		return err
	}
	resp, err := h.Call(namespace, operation, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return wireformat.Unmarshal(resp, out)
}

// Panic reports msg through internals.panic and aborts, the way guest SDKs do
// from their panic hook.
func (h Host) Panic(msg string) error {
	_, _ = h.Call("internals", "panic", []byte(msg))
	return ErrTrap
}

// GuestFunc is a guest entry point written in Go.
type GuestFunc func(ctx context.Context, host Host, payload []byte) ([]byte, error)

// TextFunc adapts a string function to a "text" entry point: the payload and
// the result are wire-encoded strings.
func TextFunc(fn func(ctx context.Context, host Host, in string) (string, error)) GuestFunc {
	return func(ctx context.Context, host Host, payload []byte) ([]byte, error) {
		var in string
		if err := wireformat.Unmarshal(payload, &in); err != nil {
			return nil, err
		}
		out, err := fn(ctx, host, in)
		if err != nil {
			return nil, err
		}
		return wireformat.Marshal(out)
	}
}

// RawFunc returns a guest entry point that ignores its input and returns out.
func RawFunc(out []byte) GuestFunc {
	return func(context.Context, Host, []byte) ([]byte, error) {
		return out, nil
	}
}

// FakeLoader implements ports.GuestLoader with Go functions as the guest.
type FakeLoader struct {
	Functions map[string]GuestFunc

	// LoadErr makes Load fail.
	LoadErr error

	mu     sync.Mutex
	guests []*FakeGuest
}

// Load implements ports.GuestLoader.
func (l *FakeLoader) Load(ctx context.Context, bytecode []byte, host ports.HostCallHandler) (ports.Guest, error) {
	if l.LoadErr != nil {
		return nil, l.LoadErr
	}
	g := &FakeGuest{functions: l.Functions, host: host}
	l.mu.Lock()
	l.guests = append(l.guests, g)
	l.mu.Unlock()
	return g, nil
}

// Guests returns every guest loaded so far.
func (l *FakeLoader) Guests() []*FakeGuest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FakeGuest(nil), l.guests...)
}

// FakeGuest implements ports.Guest.
type FakeGuest struct {
	functions map[string]GuestFunc
	host      ports.HostCallHandler

	mu     sync.Mutex
	calls  []string
	closed bool
}

// Call implements ports.Guest.
func (g *FakeGuest) Call(ctx context.Context, function string, payload []byte) ([]byte, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, errors.New("guest closed")
	}
	g.calls = append(g.calls, function)
	g.mu.Unlock()

	fn, ok := g.functions[function]
	if !ok {
		return nil, fmt.Errorf("guest has no function %q", function)
	}
	return fn(ctx, Host{ctx: ctx, handler: g.host}, payload)
}

// Close implements ports.Guest.
func (g *FakeGuest) Close(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Calls returns the functions called so far, in order.
func (g *FakeGuest) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// Closed reports whether Close was called.
func (g *FakeGuest) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
