package intake

import (
	"context"
	"net"

	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// Server accepts connections on a single net.Listener (TCP or Unix) and
// runs the shared Accept state machine on each one. The TCP server and
// the UDS server in the process are each one Server value over a
// different listener, since the same wire protocol serves both
// transports.
type Server struct {
	listener net.Listener
	registry *registry.Registry
	limits   Limits
	log      types.Logger
}

// NewTCPServer listens on addr (host:port, empty host for all
// interfaces) and returns a Server plus the actual bound address (for
// auto-assigned ports).
func NewTCPServer(addr string, reg *registry.Registry, limits Limits, log types.Logger) (*Server, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}
	return &Server{listener: ln, registry: reg, limits: limits, log: log}, ln.Addr().String(), nil
}

// NewUDSServer listens on the given Unix-domain socket path.
func NewUDSServer(path string, reg *registry.Registry, limits Limits, log types.Logger) (*Server, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &Server{listener: ln, registry: reg, limits: limits, log: log}, nil
}

// Run accepts connections until ctx is cancelled or the listener is
// closed. Each connection is handled on its own goroutine; an accepted
// but not-yet-enqueued connection may be dropped on shutdown (no
// graceful drain).
func (s *Server) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.log.Errorf("intake: accept failed: %v", err)
				return
			}
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	if err := Accept(conn, s.registry, s.limits, s.log); err != nil {
		s.log.Debugf("intake: connection from %s ended: %v", conn.RemoteAddr(), err)
	}
}

// Close closes the underlying listener directly, for callers not using
// Run's ctx-driven shutdown.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Addr returns the listener's local address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
