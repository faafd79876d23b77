package worker

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/host"
	"github.com/wasmfn/wasmfn/log"
	"github.com/wasmfn/wasmfn/metrics"
)

// Sender submits invocations to a worker.
type Sender interface {
	// Submit queues inv and returns a channel that receives exactly one result,
	// unless the submitter's ctx is done by the time the result is ready, in
	// which case the channel is closed without a value.
	Submit(ctx context.Context, inv entities.Invocation) (<-chan entities.InvocationResult, error)
}

var _ Sender = (*Worker)(nil)

type job struct {
	ctx   context.Context
	reply chan entities.InvocationResult
	inv   entities.Invocation
}

// Worker owns one Core on a dedicated OS thread.
type Worker struct {
	queue   *Queue[job]
	logger  *zap.Logger
	metrics *metrics.Metrics
	done    chan struct{}
	name    string
}

// Start creates the worker's Core from bytecode on a new OS thread and starts
// consuming invocations. If the Core cannot be created the thread exits and
// Start returns the *errors.InitError.
func Start(ctx context.Context, bytecode []byte, opts ...Option) (*Worker, error) {
	cfg := config{name: "worker"}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &Worker{
		queue:   NewQueue[job](),
		metrics: cfg.metrics,
		done:    make(chan struct{}),
		name:    cfg.name,
	}
	w.logger = log.Or(cfg.logger).With(zap.String("worker", w.name))

	coreOpts := append([]host.Option{
		host.WithLogger(w.logger),
		host.WithMetrics(w.metrics),
	}, cfg.coreOpts...)

	started := make(chan error, 1)
	go w.run(ctx, bytecode, coreOpts, started)

	if err := <-started; err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Worker) run(ctx context.Context, bytecode []byte, coreOpts []host.Option, started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	core, err := host.New(ctx, bytecode, coreOpts...)
	if err != nil {
		w.logger.Error("worker failed to start", zap.Error(err))
		started <- err
		return
	}
	w.logger.Info("worker started", zap.Uint64("core", core.ID()))
	started <- nil

	for {
		j, ok := w.queue.Pop()
		if !ok {
			break
		}
		w.metrics.QueueAdd(-1)
		w.handle(core, j)
	}

	if err := core.Close(context.WithoutCancel(ctx)); err != nil {
		w.logger.Warn("failed to close core", zap.Error(err))
	}
	w.logger.Info("worker stopped")
}

func (w *Worker) handle(core *host.Core, j job) {
	result := w.invoke(core, j)

	if j.ctx.Err() != nil {
		w.logger.Info("invocation abandoned",
			zap.String("invocation_id", j.inv.ID),
			zap.String("function", j.inv.Function),
			zap.NamedError("reason", j.ctx.Err()))
		w.metrics.Abandoned()
		close(j.reply)
		return
	}
	j.reply <- result
}

// invoke runs the invocation detached from the submitter's cancellation so a
// caller giving up never interrupts the guest halfway through.
func (w *Worker) invoke(core *host.Core, j job) (result entities.InvocationResult) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("invocation panicked",
				zap.String("invocation_id", j.inv.ID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result = entities.ResultError(j.inv.ID, &domainerrors.GuestExecutionError{
				Function: j.inv.Function,
				Message:  fmt.Sprint(r),
				Panicked: true,
			})
		}
	}()
	return core.Invoke(context.WithoutCancel(j.ctx), j.inv)
}

// Submit implements Sender. An invocation without an ID is given a random one.
// After Close, Submit returns errors.ErrWorkerClosed.
func (w *Worker) Submit(ctx context.Context, inv entities.Invocation) (<-chan entities.InvocationResult, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	reply := make(chan entities.InvocationResult, 1)
	w.metrics.QueueAdd(1)
	if !w.queue.Push(job{ctx: ctx, inv: inv, reply: reply}) {
		w.metrics.QueueAdd(-1)
		return nil, domainerrors.ErrWorkerClosed
	}
	return reply, nil
}

// Invoke submits inv and waits for its result or for ctx to be done.
func (w *Worker) Invoke(ctx context.Context, inv entities.Invocation) (entities.InvocationResult, error) {
	reply, err := w.Submit(ctx, inv)
	if err != nil {
		return entities.InvocationResult{}, err
	}
	select {
	case result, ok := <-reply:
		if !ok {
			return entities.InvocationResult{}, ctx.Err()
		}
		return result, nil
	case <-ctx.Done():
		return entities.InvocationResult{}, ctx.Err()
	}
}

// Name returns the worker's name.
func (w *Worker) Name() string {
	return w.name
}

// Pending returns the number of queued invocations.
func (w *Worker) Pending() int {
	return w.queue.Len()
}

// Close stops accepting invocations. Queued invocations still run; Done is
// closed once the last one finished and the Core was released.
func (w *Worker) Close() {
	w.queue.Close()
}

// Done is closed when the worker thread has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Shutdown closes the worker and waits for it to drain or for ctx to be done.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.Close()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is a convenience for single-shot use: it starts a worker, runs inv and
// shuts the worker down.
func Run(ctx context.Context, bytecode []byte, inv entities.Invocation, opts ...Option) (entities.InvocationResult, error) {
	w, err := Start(ctx, bytecode, opts...)
	if err != nil {
		return entities.InvocationResult{}, err
	}
	defer func() { _ = w.Shutdown(context.WithoutCancel(ctx)) }()
	return w.Invoke(ctx, inv)
}
