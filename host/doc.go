// Package host provides the execution context ("Core") that owns one guest
// module instance and exposes a crash-safe invocation contract over it.
//
// A Core routes every host call its guest makes through its own callback
// dispatcher, tracks guest panics reported through internals.panic, and turns
// every outcome into a typed result. A Core is not safe for concurrent use;
// the worker package gives each Core a dedicated thread.
package host
