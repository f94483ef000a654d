package reactor

import (
	"fmt"
	"sync"

	logging "gopkg.in/op/go-logging.v1"
)

// ServerTransport is the listener abstraction the Acceptor drives: it
// hands back an already-open Connection per accepted peer, or an
// error that is fatal to the accept loop (SPEC_FULL.md §6.4). A
// net.Listener-backed implementation lives in transport/tcp.go;
// transport/websocket.go and transport/quic.go provide the
// non-fd-backed equivalents the Reactor consumes through Bridge.
type ServerTransport interface {
	Listen() error
	Accept() (Connection, error)
	Close() error
}

// Server is the Acceptor of SPEC_FULL.md §6.4: it owns a
// ServerTransport and a Reactor, loops Accept on the goroutine that
// calls Serve, and coordinates the two on Shutdown.
type Server struct {
	transport ServerTransport
	reactor   *Reactor
	log       *logging.Logger

	mu      sync.Mutex
	serving bool
	stopped bool
	doneCh  chan struct{}
}

// NewServer pairs a ServerTransport with a Reactor. The Reactor must
// not have had Start called yet; Serve calls it.
func NewServer(transport ServerTransport, reactor *Reactor, log *logging.Logger) *Server {
	return &Server{transport: transport, reactor: reactor, log: log, doneCh: make(chan struct{})}
}

// Serve opens the listening transport, starts the Reactor, and runs
// the accept loop until the transport is closed (normally by
// Shutdown). It blocks until the accept loop exits.
func (s *Server) Serve() error {
	s.mu.Lock()
	if s.serving {
		s.mu.Unlock()
		return fmt.Errorf("server: Serve called twice")
	}
	s.serving = true
	s.mu.Unlock()

	if err := s.transport.Listen(); err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	if err := s.reactor.Start(); err != nil {
		_ = s.transport.Close()
		return fmt.Errorf("server: starting reactor: %w", err)
	}

	defer close(s.doneCh)
	for {
		conn, err := s.transport.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				s.log.Infof("server: accept loop stopped")
				return nil
			}
			s.log.Errorf("server: accept: %v", err)
			_ = s.transport.Close()
			s.reactor.EnsureClosed()
			return fmt.Errorf("server: accept: %w", err)
		}
		s.reactor.AddConnection(conn)
	}
}

// Shutdown drains the Reactor and its worker pool within
// timeoutSeconds, then closes the listening transport to break the
// accept loop — in that order, per spec.md §4.4 and SPEC_FULL.md
// §6.4: the Reactor must finish draining before the accept loop (and
// the listener it reads from) is torn down. It is idempotent. If
// block is false, Shutdown returns once the stop has been requested
// without waiting for the Reactor's drain to finish.
func (s *Server) Shutdown(timeoutSeconds float64, block bool) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	if block {
		s.reactor.Shutdown(timeoutSeconds)
		_ = s.transport.Close()
		<-s.doneCh
		return
	}
	go func() {
		s.reactor.Shutdown(timeoutSeconds)
		_ = s.transport.Close()
	}()
}
