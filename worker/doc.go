// Package worker runs an execution context on a dedicated OS thread and feeds
// it invocations from an unbounded FIFO queue.
//
// Any number of goroutines may submit work; one goroutine owns the Core and
// runs invocations strictly in submission order. Each submitter receives its
// result on a one-shot channel.
package worker
