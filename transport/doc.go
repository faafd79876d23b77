// Package transport serves invocations over a unix socket.
//
// Every message is one MessagePack document sent with a single write and
// received with a single read into a fixed-size buffer. A connection carries
// any number of request/response exchanges, strictly alternating. Errors on
// one connection never affect another.
package transport
