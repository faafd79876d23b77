package hostfuncs

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/domain/ports"
	"github.com/wasmfn/wasmfn/metrics"
)

// Middleware wraps a ByteHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
// It also wraps the unsupported-call fallback.
type Middleware func(next ByteHandler) ByteHandler

// PanicRecoveryMiddleware converts a panicking handler into a host-call failure
// instead of unwinding through the guest runtime.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					call, _ := callFrom(ctx)
					resp = nil
					err = &HandlerPanicError{Function: call.Name(), Value: r}
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs host calls. Unsupported calls are logged at warn
// level, other failures at debug.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			call, _ := callFrom(ctx)
			fields := []zap.Field{
				zap.String("namespace", call.Namespace),
				zap.String("operation", call.Operation),
			}
			resp, err := next(ctx, payload)

			var unsupported *domainerrors.UnsupportedHostCallError
			switch {
			case errors.As(err, &unsupported):
				logger.Warn("unsupported host call", fields...)
			case err != nil:
				logger.Debug("host call failed", append(fields, zap.Error(err))...)
			default:
				logger.Debug("host call completed", append(fields, zap.Int("response_bytes", len(resp)))...)
			}
			return resp, err
		}
	}
}

// MetricsMiddleware counts host calls by outcome.
func MetricsMiddleware(m *metrics.Metrics) Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			call, _ := callFrom(ctx)
			resp, err := next(ctx, payload)
			m.ObserveHostCall(call.Namespace, call.Operation, hostCallOutcome(err))
			return resp, err
		}
	}
}

func hostCallOutcome(err error) string {
	var (
		unsupported *domainerrors.UnsupportedHostCallError
		denied      *domainerrors.CapabilityError
	)
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &unsupported):
		return metrics.OutcomeUnsupported
	case errors.As(err, &denied):
		return metrics.OutcomeDenied
	default:
		return metrics.OutcomeError
	}
}

// CapabilityMiddleware rejects host calls the policy does not allow.
// The internals namespace is always allowed so that guest panics are never lost.
// Calls without a registered handler pass through and are reported as
// unsupported, not denied.
func CapabilityMiddleware(policy ports.Policy) Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			if unregistered(ctx) {
				return next(ctx, payload)
			}
			call, _ := callFrom(ctx)
			if call.Namespace != NamespaceInternals && !policy.Allows(call.Namespace, call.Operation) {
				return nil, &domainerrors.CapabilityError{Namespace: call.Namespace, Operation: call.Operation}
			}
			return next(ctx, payload)
		}
	}
}
