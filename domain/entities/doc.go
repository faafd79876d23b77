// Package entities provides the value types shared by the execution core:
// invocations and their results, guest-to-host calls, key-value entries and
// the structured error detail used on the wire.
package entities
