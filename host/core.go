package host

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wasmfn/wasmfn/domain/entities"
	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/domain/ports"
	"github.com/wasmfn/wasmfn/hostfuncs"
	"github.com/wasmfn/wasmfn/infrastructure/kvstore"
	"github.com/wasmfn/wasmfn/infrastructure/wazero"
	"github.com/wasmfn/wasmfn/log"
	"github.com/wasmfn/wasmfn/metrics"
)

// Init stages owned by the Core. Loader failures keep their own stage.
const (
	StageRegistry = "registry"
	StageLoad     = "load"
)

var errInvalidUTF8 = errors.New("payload is not valid UTF-8")

var coreIDs atomic.Uint64

// Core is the execution context of one guest module instance.
type Core struct {
	guest     ports.Guest
	registry  *hostfuncs.HandlerRegistry
	store     ports.KVStore
	logger    *zap.Logger
	metrics   *metrics.Metrics
	frame     hostfuncs.Frame
	id        uint64
	ownsStore bool
}

// New loads bytecode and wires the guest's host calls to a dispatcher serving
// the internals, datetime and db namespaces. Failures are *errors.InitError.
func New(ctx context.Context, bytecode []byte, opts ...Option) (*Core, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Core{
		id:      coreIDs.Add(1),
		store:   cfg.store,
		metrics: cfg.metrics,
	}
	c.logger = log.Or(cfg.logger).With(zap.Uint64("core", c.id))

	if c.store == nil {
		c.store = kvstore.NewMemoryStore()
		c.ownsStore = true
	}
	if cfg.loader == nil {
		cfg.loader = wazero.NewLoader(wazero.WithLogger(c.logger))
	}

	regOpts := []hostfuncs.RegistryOption{
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(c.logger),
			hostfuncs.MetricsMiddleware(c.metrics),
		),
	}
	if cfg.policy != nil {
		regOpts = append(regOpts, hostfuncs.WithMiddleware(hostfuncs.CapabilityMiddleware(cfg.policy)))
	}
	regOpts = append(regOpts,
		hostfuncs.WithMiddleware(cfg.middleware...),
		hostfuncs.WithBundles(hostfuncs.DefaultBundles(c.store, cfg.clock)...),
	)
	regOpts = append(regOpts, cfg.handlers...)

	registry, err := hostfuncs.NewRegistry(regOpts...)
	if err != nil {
		c.closeStore()
		return nil, &domainerrors.InitError{Stage: StageRegistry, Err: err}
	}
	c.registry = registry

	guest, err := cfg.loader.Load(ctx, bytecode, c.hostCall)
	if err != nil {
		c.closeStore()
		var initErr *domainerrors.InitError
		if errors.As(err, &initErr) {
			return nil, err
		}
		return nil, &domainerrors.InitError{Stage: StageLoad, Err: err}
	}
	c.guest = guest

	return c, nil
}

// hostCall is the single host-call handler the guest can reach. It hands the
// Core's panic frame to the handlers through the call context.
func (c *Core) hostCall(ctx context.Context, binding, namespace, operation string, payload []byte) ([]byte, error) {
	return c.registry.Dispatch(hostfuncs.WithFrame(ctx, &c.frame), entities.HostCall{
		CallerID:  c.id,
		Binding:   binding,
		Namespace: namespace,
		Operation: operation,
		Payload:   payload,
	})
}

// ID returns the Core's process-unique id, reported to host calls as CallerID.
func (c *Core) ID() uint64 {
	return c.id
}

// Invoke runs one invocation and always returns a result.
//
// The "text" entry point takes and returns a UTF-8 string; its payload is
// validated and wire-encoded as a string. Any other entry point takes and
// returns opaque bytes, wire-encoded as binary.
func (c *Core) Invoke(ctx context.Context, inv entities.Invocation) entities.InvocationResult {
	start := time.Now()

	var (
		out []byte
		err error
	)
	if inv.Function == entities.FunctionText {
		var s string
		if !utf8.Valid(inv.Payload) {
			err = &domainerrors.InvalidPayloadError{Function: inv.Function, Direction: "input", Err: errInvalidUTF8}
		} else if s, err = Call[string, string](ctx, c, inv.Function, string(inv.Payload)); err == nil {
			out = []byte(s)
		}
	} else {
		out, err = Call[[]byte, []byte](ctx, c, inv.Function, inv.Payload)
	}

	result := entities.ResultSuccess(inv.ID, out)
	if err != nil {
		result = entities.ResultError(inv.ID, err)
	}
	result.Duration = time.Since(start)
	c.metrics.ObserveInvocation(inv.Function, invocationOutcome(err), result.Duration)
	return result
}

// InvokeText runs the "text" entry point.
func (c *Core) InvokeText(ctx context.Context, payload string) (string, error) {
	if !utf8.ValidString(payload) {
		return "", &domainerrors.InvalidPayloadError{Function: entities.FunctionText, Direction: "input", Err: errInvalidUTF8}
	}
	return Call[string, string](ctx, c, entities.FunctionText, payload)
}

// CallRaw calls a guest entry point with an already encoded payload and
// returns the raw result.
//
// The panic frame is cleared on entry. If the guest reported a panic during
// the call, the call fails with the panic text no matter what the guest
// runtime returned.
func (c *Core) CallRaw(ctx context.Context, function string, payload []byte) ([]byte, error) {
	c.frame.Reset()

	out, err := c.guest.Call(ctx, function, payload)

	if msg, panicked := c.frame.Panic(); panicked {
		c.logger.Warn("guest panicked", zap.String("function", function), zap.String("panic", msg))
		c.metrics.GuestPanicked()
		return nil, &domainerrors.GuestExecutionError{Function: function, Message: msg, Panicked: true, Err: err}
	}
	if err != nil {
		return nil, &domainerrors.GuestExecutionError{Function: function, Message: err.Error(), Err: err}
	}
	return out, nil
}

// Close releases the guest instance, and the store if the Core created it.
func (c *Core) Close(ctx context.Context) error {
	err := c.guest.Close(ctx)
	if cerr := c.closeStore(); err == nil {
		err = cerr
	}
	return err
}

func (c *Core) closeStore() error {
	if !c.ownsStore {
		return nil
	}
	return c.store.Close()
}

func invocationOutcome(err error) string {
	var execErr *domainerrors.GuestExecutionError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &execErr) && execErr.Panicked:
		return metrics.OutcomePanic
	default:
		return metrics.OutcomeError
	}
}
