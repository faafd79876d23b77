package hostfuncs

import "context"

// Frame holds the per-invocation panic slot of one execution context.
//
// A guest runs single-threaded and its host calls are synchronous, so at most
// one goroutine touches a Frame at a time and it needs no lock.
type Frame struct {
	message  string
	panicked bool
}

// Reset clears any recorded panic. Call it before every invocation.
func (f *Frame) Reset() {
	f.panicked = false
	f.message = ""
}

// RecordPanic stores the guest's panic text. The last report wins.
func (f *Frame) RecordPanic(message string) {
	f.panicked = true
	f.message = message
}

// Panic returns the recorded panic text and whether a panic was recorded.
func (f *Frame) Panic() (string, bool) {
	return f.message, f.panicked
}

type frameKey struct{}

// WithFrame returns a context carrying f to host-call handlers.
func WithFrame(ctx context.Context, f *Frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

// FrameFrom returns the frame carried by ctx.
func FrameFrom(ctx context.Context) (*Frame, bool) {
	f, ok := ctx.Value(frameKey{}).(*Frame)
	return f, ok && f != nil
}
