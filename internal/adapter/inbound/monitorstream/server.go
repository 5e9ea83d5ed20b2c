// Package monitorstream implements the inbound monitor-channel
// listener (§6): a Unix domain socket that accepts exactly one
// attached admin consumer at a time and streams framed records to it.
package monitorstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

// Server implements monitor.FrameSink over a single attached
// connection, notifying a MonitorWorker when a consumer attaches or
// detaches (§4.D).
type Server struct {
	logger   *slog.Logger
	onAttach func(attached bool)

	listener net.Listener

	mu   sync.Mutex
	conn net.Conn
}

// NewServer builds a Server. onAttach is called with true when a
// consumer connects and false when it disconnects, so the caller can
// wire it to MonitorWorker.SetConsumerAttached.
func NewServer(logger *slog.Logger, onAttach func(attached bool)) *Server {
	return &Server{logger: logger, onAttach: onAttach}
}

var _ monitor.FrameSink = (*Server)(nil)

// Listen binds the Unix domain socket at socketPath.
func (s *Server) Listen(socketPath string) error {
	_ = os.Remove(socketPath)
	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("monitorstream: listen on %s: %w", socketPath, err)
	}
	s.listener = l
	return nil
}

// Serve accepts monitor consumers one at a time until ctx is
// canceled. A second connection attempt while one is already
// attached is rejected immediately (§4.D: single consumer).
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("monitorstream: accept: %w", err)
		}
		s.attach(conn)
	}
}

func (s *Server) attach(conn net.Conn) {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		s.logger.Warn("monitor consumer already attached, rejecting new connection")
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	s.onAttach(true)

	go func() {
		// A monitor connection is write-only from the core's side; any
		// read (including EOF) means the consumer went away.
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)

		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = conn.Close()
		s.onAttach(false)
	}()
}

// SendFrame implements monitor.FrameSink.
func (s *Server) SendFrame(frame []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return monitor.ErrDisconnected
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("monitorstream: send frame: %w", err)
	}
	return nil
}
