// Package control implements the inbound control-channel listener
// (§6): a Unix domain socket accepting one request/reply session per
// connection, optionally gated by the Argon2id handshake in auth.go.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/fxtack/fileguardcore/internal/apierr"
	"github.com/fxtack/fileguardcore/internal/service"
	"github.com/fxtack/fileguardcore/pkg/wire"
)

// Server accepts control-channel connections on a Unix domain socket
// and dispatches each request to a ControlDispatcher.
type Server struct {
	dispatcher *service.ControlDispatcher
	logger     *slog.Logger

	authEnabled      bool
	secretHash       string
	handshakeTimeout time.Duration

	listener net.Listener
	active   atomic.Bool
}

// NewServer builds a Server. If authEnabled is true, every new
// connection must send a matching secret before any request is
// dispatched (§4.E addition).
func NewServer(dispatcher *service.ControlDispatcher, logger *slog.Logger, authEnabled bool, secretHash string, handshakeTimeout time.Duration) *Server {
	return &Server{
		dispatcher:       dispatcher,
		logger:           logger,
		authEnabled:      authEnabled,
		secretHash:       secretHash,
		handshakeTimeout: handshakeTimeout,
	}
}

// Listen binds the Unix domain socket at socketPath, replacing any
// stale socket file left by a prior crashed instance.
func (s *Server) Listen(socketPath string) error {
	_ = os.Remove(socketPath)
	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("control: listen on %s: %w", socketPath, err)
	}
	s.listener = l
	return nil
}

// Serve accepts connections until ctx is canceled or the listener is
// closed. Each accepted connection is handled on its own goroutine; a
// connection that arrives while another is active is closed at once.
// Within one connection, requests are dispatched one at a time.
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
			return fmt.Errorf("control: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if !s.active.CompareAndSwap(false, true) {
		s.logger.Warn("control connection already active, rejecting new connection")
		return
	}
	defer s.active.Store(false)

	r := bufio.NewReader(conn)

	if s.authEnabled {
		if s.handshakeTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.handshakeTimeout))
		}
		secret, err := readHandshakeSecret(r)
		if err != nil {
			s.logger.Warn("control handshake failed", "error", err)
			return
		}
		ok, err := verifySecret(secret, s.secretHash)
		if err != nil || !ok {
			s.logger.Warn("control handshake rejected", "remote", conn.RemoteAddr())
			return
		}
		_ = conn.SetReadDeadline(time.Time{})
	}

	for {
		if err := s.handleRequest(ctx, r, conn); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("control connection closed", "error", err)
			}
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, r *bufio.Reader, w io.Writer) error {
	headerBuf := make([]byte, 8)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return err
	}
	header, err := wire.DecodeRequestHeader(headerBuf)
	if err != nil {
		return err
	}
	body := make([]byte, header.TotalSize)
	if header.TotalSize > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return err
		}
	}

	resultCode, payload := s.dispatch(ctx, header.Type, body)

	if _, err := w.Write(wire.EncodeReplyHeader(wire.ReplyHeader{ResultCode: resultCode, Size: uint32(len(payload))})); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// dispatch maps one decoded request to a dispatcher call, producing a
// wire resultCode and reply payload (§4.E, §6, §7).
func (s *Server) dispatch(ctx context.Context, msgType wire.MessageType, body []byte) (resultCode uint32, payload []byte) {
	switch msgType {
	case wire.GetCoreVersion:
		v, err := s.dispatcher.GetCoreVersion(ctx)
		if err != nil {
			return errCode(err), nil
		}
		return apierr.OK.StatusCode(), wire.EncodeCoreVersion(v)

	case wire.SetUnloadAcceptable:
		accept, err := wire.DecodeBool(body)
		if err != nil {
			return apierr.InvalidArgument.StatusCode(), nil
		}
		if err := s.dispatcher.SetUnloadAcceptable(ctx, accept); err != nil {
			return errCode(err), nil
		}
		return apierr.OK.StatusCode(), nil

	case wire.SetDetachAcceptable:
		accept, err := wire.DecodeBool(body)
		if err != nil {
			return apierr.InvalidArgument.StatusCode(), nil
		}
		if err := s.dispatcher.SetDetachAcceptable(ctx, accept); err != nil {
			return errCode(err), nil
		}
		return apierr.OK.StatusCode(), nil

	case wire.AddRules:
		rules, err := wire.DecodeRules(body)
		if err != nil {
			return apierr.InvalidArgument.StatusCode(), nil
		}
		added, err := s.dispatcher.AddRules(ctx, rules)
		if err != nil {
			return errCode(err), nil
		}
		return apierr.OK.StatusCode(), wire.EncodeRemovedCount(uint32(added))

	case wire.RemoveRules:
		rules, err := wire.DecodeRules(body)
		if err != nil {
			return apierr.InvalidArgument.StatusCode(), nil
		}
		removed, err := s.dispatcher.RemoveRules(ctx, rules)
		if err != nil {
			return errCode(err), nil
		}
		return apierr.OK.StatusCode(), wire.EncodeRemovedCount(uint32(removed))

	case wire.QueryRules:
		rules, err := s.dispatcher.QueryRules(ctx)
		if err != nil {
			return errCode(err), nil
		}
		return apierr.OK.StatusCode(), wire.EncodeRules(rules)

	case wire.CheckMatchedRule:
		path, err := wire.DecodePath(body)
		if err != nil {
			return apierr.InvalidArgument.StatusCode(), nil
		}
		matches, err := s.dispatcher.CheckMatchedRule(ctx, path)
		if err != nil {
			return errCode(err), nil
		}
		return apierr.OK.StatusCode(), wire.EncodeRules(matches)

	case wire.CleanupRules:
		removed, err := s.dispatcher.CleanupRules(ctx)
		if err != nil {
			return errCode(err), nil
		}
		return apierr.OK.StatusCode(), wire.EncodeRemovedCount(uint32(removed))

	default:
		return apierr.InvalidArgument.StatusCode(), nil
	}
}

func errCode(err error) uint32 {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code.StatusCode()
	}
	return apierr.Host.StatusCode()
}
