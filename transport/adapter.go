package transport

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/wireformat"
	"github.com/wasmfn/wasmfn/worker"
)

// DefaultInvokeTimeout is how long the adapter waits for a result by default.
const DefaultInvokeTimeout = 30 * time.Second

type adapterConfig struct {
	timeout time.Duration
}

func defaultAdapterConfig() adapterConfig {
	return adapterConfig{timeout: DefaultInvokeTimeout}
}

// AdapterOption configures an Adapter.
type AdapterOption func(*adapterConfig)

// WithInvokeTimeout bounds how long Handle waits for a result.
// Zero disables the bound. A negative duration is ignored.
func WithInvokeTimeout(d time.Duration) AdapterOption {
	return func(c *adapterConfig) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// Adapter turns transport requests into worker invocations.
type Adapter struct {
	sender worker.Sender
	config adapterConfig
}

// NewAdapter creates an adapter submitting to sender.
func NewAdapter(sender worker.Sender, opts ...AdapterOption) *Adapter {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Adapter{sender: sender, config: cfg}
}

// Handle submits req and waits for its result. It always returns a response;
// failures travel in its Error field. A timeout only stops the wait: the guest
// still runs the invocation to completion and its result is discarded.
func (a *Adapter) Handle(ctx context.Context, req wireformat.InvocationRequest) wireformat.InvocationResponse {
	inv := entities.Invocation{
		ID:       req.ID,
		Function: req.Function,
		Payload:  req.Payload,
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Function == "" {
		inv.Function = entities.FunctionText
	}

	if a.config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.timeout)
		defer cancel()
	}

	reply, err := a.sender.Submit(ctx, inv)
	if err != nil {
		return failure(inv.ID, err)
	}

	select {
	case result, ok := <-reply:
		if !ok {
			return failure(inv.ID, a.waitError(ctx, inv))
		}
		return wireformat.InvocationResponse{
			ID:     result.InvocationID,
			Output: result.Output,
			Error:  domainerrors.ToErrorDetail(result.Err),
		}
	case <-ctx.Done():
		return failure(inv.ID, a.waitError(ctx, inv))
	}
}

func (a *Adapter) waitError(ctx context.Context, inv entities.Invocation) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domainerrors.TimeoutError{Operation: "invoke", Target: inv.Function, Duration: a.config.timeout}
	}
	return ctx.Err()
}

func failure(id string, err error) wireformat.InvocationResponse {
	return wireformat.InvocationResponse{ID: id, Error: domainerrors.ToErrorDetail(err)}
}
