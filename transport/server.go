package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"

	"github.com/docker/go-connections/sockets"
	"go.uber.org/zap"

	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/log"
	"github.com/wasmfn/wasmfn/wireformat"
)

// SocketMode is the file mode of sockets created by Listen.
const SocketMode os.FileMode = 0o660

// Listen creates a unix socket at path, replacing a stale socket file.
func Listen(path string) (net.Listener, error) {
	l, err := sockets.NewUnixSocketWithOpts(path, sockets.WithChmod(SocketMode))
	if err != nil {
		return nil, &domainerrors.TransportError{Op: "listen", Err: err}
	}
	return l, nil
}

type serverConfig struct {
	logger     *zap.Logger
	bufferSize int
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

// WithBufferSize sets the per-connection read buffer size.
// A zero or negative size is ignored.
func WithBufferSize(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithServerLogger sets the server's logger. Default: log.L().
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(c *serverConfig) {
		c.logger = logger
	}
}

// Server accepts connections and answers their requests through an Adapter.
type Server struct {
	adapter *Adapter
	logger  *zap.Logger
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex

	bufferSize int
}

// NewServer creates a server answering requests with adapter.
func NewServer(adapter *Adapter, opts ...ServerOption) *Server {
	cfg := serverConfig{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		adapter:    adapter,
		logger:     log.Or(cfg.logger),
		conns:      make(map[net.Conn]struct{}),
		bufferSize: cfg.bufferSize,
	}
}

// Serve accepts connections on l until ctx is done, then closes l and every
// open connection and waits for their handlers to return. It returns nil
// after a shutdown through ctx.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = l.Close()
		s.closeConns()
	})
	defer stop()

	s.logger.Info("transport listening", zap.String("address", l.Addr().String()))

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			s.closeConns()
			s.wg.Wait()
			return &domainerrors.TransportError{Op: "accept", Err: err}
		}

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn answers requests on conn until the peer disconnects, a framing
// error occurs, or ctx is done. It closes conn before returning.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	c := NewConn(conn, s.bufferSize)
	defer c.Close()

	for ctx.Err() == nil {
		var req wireformat.InvocationRequest
		if err := c.ReadMessage(&req); err != nil {
			if !s.readFailed(c, err) {
				return
			}
			continue
		}

		resp := s.adapter.Handle(ctx, req)
		if err := c.WriteMessage(resp); err != nil {
			s.logDisconnect("write", err)
			return
		}
	}
}

// readFailed logs a read error and reports whether the connection can go on.
// An undecodable message is answered with an error response; anything else
// ends the connection.
func (s *Server) readFailed(c *Conn, err error) bool {
	var transportErr *domainerrors.TransportError
	if errors.As(err, &transportErr) && transportErr.Op == "decode" {
		s.logger.Warn("transport framing error", zap.Error(err))
		return c.WriteMessage(failure("", err)) == nil
	}
	if errors.Is(err, domainerrors.ErrFrameTooLarge) {
		s.logger.Warn("transport framing error", zap.Error(err), zap.Int("buffer_size", s.bufferSize))
		_ = c.WriteMessage(failure("", err))
		return false
	}
	s.logDisconnect("read", err)
	return false
}

func (s *Server) logDisconnect(op string, err error) {
	if errors.Is(err, domainerrors.ErrClientDisconnected) {
		s.logger.Debug("client disconnected", zap.String("op", op))
		return
	}
	s.logger.Warn("transport connection failed", zap.String("op", op), zap.Error(err))
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
}
