package transport

import (
	"errors"
	"io"
	"net"
	"syscall"

	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/wireformat"
)

// DefaultBufferSize is the default size of a connection's read buffer, and so
// the largest message it accepts.
const DefaultBufferSize = 64 * 1024

// Conn frames messages on a stream connection.
// It is not safe for concurrent use.
type Conn struct {
	conn net.Conn
	buf  []byte
}

// NewConn wraps conn with a read buffer of bufferSize bytes.
// A zero or negative size uses DefaultBufferSize.
func NewConn(conn net.Conn, bufferSize int) *Conn {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Conn{conn: conn, buf: make([]byte, bufferSize)}
}

// ReadMessage performs one read and decodes it into v.
//
// A read of zero bytes or EOF means the peer went away and yields
// errors.ErrClientDisconnected. A read that fills the whole buffer yields
// errors.ErrFrameTooLarge; the connection is unusable afterwards.
func (c *Conn) ReadMessage(v any) error {
	n, err := c.conn.Read(c.buf)
	switch {
	case isDisconnect(err), err == nil && n == 0:
		return &domainerrors.TransportError{Op: "read", Err: domainerrors.ErrClientDisconnected}
	case err != nil:
		return &domainerrors.TransportError{Op: "read", Err: err}
	case n == len(c.buf):
		return &domainerrors.TransportError{Op: "read", Err: domainerrors.ErrFrameTooLarge}
	}

	if err := wireformat.Unmarshal(c.buf[:n], v); err != nil {
		return &domainerrors.TransportError{Op: "decode", Err: err}
	}
	return nil
}

// WriteMessage encodes v and sends it with a single write.
func (c *Conn) WriteMessage(v any) error {
	data, err := wireformat.Marshal(v)
	if err != nil {
		return &domainerrors.TransportError{Op: "encode", Err: err}
	}

	n, err := c.conn.Write(data)
	if isDisconnect(err) || (err == nil && n == 0 && len(data) > 0) {
		return &domainerrors.TransportError{Op: "write", Err: domainerrors.ErrClientDisconnected}
	}
	if err != nil {
		return &domainerrors.TransportError{Op: "write", Err: err}
	}
	return nil
}

// NetConn returns the underlying connection.
func (c *Conn) NetConn() net.Conn {
	return c.conn
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
