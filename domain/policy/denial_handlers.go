package policy

import (
	"go.uber.org/zap"

	"github.com/wasmfn/wasmfn/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.DenialHandler = (*LogDenialHandler)(nil)
var _ ports.DenialHandler = (*NopDenialHandler)(nil)

// LogDenialHandler logs denials at warn level.
type LogDenialHandler struct {
	Logger *zap.Logger
}

func (h *LogDenialHandler) OnDenial(namespace, operation, reason string) {
	h.Logger.Warn("host call denied",
		zap.String("namespace", namespace),
		zap.String("operation", operation),
		zap.String("reason", reason))
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(namespace, operation, reason string) {}
