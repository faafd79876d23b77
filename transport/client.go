package transport

import (
	"context"
	"net"
	"time"

	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/wireformat"
)

// Client sends invocation requests over one connection.
// It is not safe for concurrent use.
type Client struct {
	conn *Conn
}

// Dial connects to the unix socket at path.
func Dial(ctx context.Context, path string, bufferSize int) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, &domainerrors.TransportError{Op: "dial", Err: err}
	}
	return NewClient(conn, bufferSize), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, bufferSize int) *Client {
	return &Client{conn: NewConn(conn, bufferSize)}
}

// Invoke sends req and reads its response. The ctx deadline, if any, bounds
// the whole exchange.
func (c *Client) Invoke(ctx context.Context, req wireformat.InvocationRequest) (wireformat.InvocationResponse, error) {
	var resp wireformat.InvocationResponse

	deadline, _ := ctx.Deadline()
	if err := c.conn.NetConn().SetDeadline(deadline); err != nil {
		return resp, &domainerrors.TransportError{Op: "write", Err: err}
	}
	defer func() { _ = c.conn.NetConn().SetDeadline(time.Time{}) }()

	if err := c.conn.WriteMessage(req); err != nil {
		return resp, err
	}
	if err := c.conn.ReadMessage(&resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
