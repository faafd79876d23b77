// Package ports defines the interfaces the execution core depends on.
// Domain logic depends on these abstractions; infrastructure adapters
// (wazero, bbolt, radix tree) implement them.
package ports
