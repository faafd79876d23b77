// Package hostfuncs is the callback dispatcher: it routes guest-initiated host
// calls by (namespace, operation) to host capabilities.
// It has no dependency on any WASM runtime, so it can be driven by the wazero
// engine as well as by test doubles.
package hostfuncs
