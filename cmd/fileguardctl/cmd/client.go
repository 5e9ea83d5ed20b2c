package cmd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fxtack/fileguardcore/internal/apierr"
	"github.com/fxtack/fileguardcore/pkg/wire"
)

// controlClient is a short-lived connection to the control channel:
// one dial, an optional handshake, then one or more request/reply
// round trips, mirroring the server's per-connection protocol in
// internal/adapter/inbound/control.
type controlClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func dialControl(socketPath, secret string) (*controlClient, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial control socket %s: %w", socketPath, err)
	}

	c := &controlClient{conn: conn, r: bufio.NewReader(conn)}

	if secret != "" {
		if err := c.sendHandshake(secret); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *controlClient) sendHandshake(secret string) error {
	body := []byte(secret)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := c.conn.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("send handshake length: %w", err)
	}
	if _, err := c.conn.Write(body); err != nil {
		return fmt.Errorf("send handshake secret: %w", err)
	}
	return nil
}

func (c *controlClient) Close() error { return c.conn.Close() }

// call sends one request and returns its decoded reply payload, or an
// error naming the result code and message type if the engine reported
// a non-OK result code.
func (c *controlClient) call(msgType wire.MessageType, body []byte) ([]byte, error) {
	header := wire.EncodeRequestHeader(wire.RequestHeader{Type: msgType, TotalSize: uint32(len(body))})
	if _, err := c.conn.Write(header); err != nil {
		return nil, fmt.Errorf("send request header: %w", err)
	}
	if len(body) > 0 {
		if _, err := c.conn.Write(body); err != nil {
			return nil, fmt.Errorf("send request body: %w", err)
		}
	}

	replyHeaderBuf := make([]byte, 8)
	if _, err := io.ReadFull(c.r, replyHeaderBuf); err != nil {
		return nil, fmt.Errorf("read reply header: %w", err)
	}
	reply, err := wire.DecodeReplyHeader(replyHeaderBuf)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, reply.Size)
	if reply.Size > 0 {
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return nil, fmt.Errorf("read reply payload: %w", err)
		}
	}

	if reply.ResultCode != apierr.OK.StatusCode() {
		return nil, fmt.Errorf("engine returned error code %d for %s", reply.ResultCode, msgType)
	}
	return payload, nil
}
