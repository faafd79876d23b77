// Package policy implements the host-call capability policy: an allow-list of
// glob patterns over "namespace/operation".
package policy

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wasmfn/wasmfn/domain/ports"
)

// AllowAll grants every capability.
const AllowAll = "*/*"

// policyConfig holds configuration for the Policy engine.
type policyConfig struct {
	denialHandler ports.DenialHandler
	patterns      []string
}

func defaultPolicyConfig() policyConfig {
	return policyConfig{
		denialHandler: &NopDenialHandler{},
	}
}

// PolicyOption configures the Policy.
type PolicyOption func(*policyConfig)

// WithAllowed adds allowed capability patterns, e.g. "db/*" or "datetime/now".
func WithAllowed(patterns ...string) PolicyOption {
	return func(c *policyConfig) {
		c.patterns = append(c.patterns, patterns...)
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) PolicyOption {
	return func(c *policyConfig) {
		c.denialHandler = h
	}
}

// Policy is a stateless allow-list. A Policy with no patterns denies everything.
type Policy struct {
	config policyConfig
}

// NewPolicy creates a new Policy. Invalid patterns are rejected.
func NewPolicy(opts ...PolicyOption) (*Policy, error) {
	cfg := defaultPolicyConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	for _, p := range cfg.patterns {
		if err := ValidatePattern(p); err != nil {
			return nil, err
		}
	}
	return &Policy{config: cfg}, nil
}

// ValidatePattern reports whether p is a usable capability pattern.
func ValidatePattern(p string) error {
	if p == "" {
		return fmt.Errorf("capability pattern cannot be empty")
	}
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("invalid capability pattern %q", p)
	}
	return nil
}

// Allows implements ports.Policy.
func (p *Policy) Allows(namespace, operation string) bool {
	name := namespace + "/" + operation
	for _, pattern := range p.config.patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	p.config.denialHandler.OnDenial(namespace, operation, "no matching capability")
	return false
}

// Patterns returns a copy of the allowed patterns.
func (p *Policy) Patterns() []string {
	out := make([]string, len(p.config.patterns))
	copy(out, p.config.patterns)
	return out
}
