package control

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxtack/fileguardcore/internal/adapter/outbound/memory"
	"github.com/fxtack/fileguardcore/internal/domain/lifecycle"
	"github.com/fxtack/fileguardcore/internal/domain/rule"
	"github.com/fxtack/fileguardcore/internal/service"
	"github.com/fxtack/fileguardcore/pkg/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestServer(t *testing.T, authEnabled bool, secretHash string) (string, func()) {
	t.Helper()
	store := memory.NewRuleStore()
	queue := memory.NewMonitorQueue(0, nil)
	dispatcher := service.NewControlDispatcher(store, &lifecycle.Flags{}, queue)

	srv := NewServer(dispatcher, testLogger(), authEnabled, secretHash, time.Second)
	path := filepath.Join(t.TempDir(), "control.sock")
	if err := srv.Listen(path); err != nil {
		t.Fatalf("Listen() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx)
		close(done)
	}()

	return path, func() {
		cancel()
		<-done
	}
}

func sendHandshake(t *testing.T, conn net.Conn, secret string) {
	t.Helper()
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(secret)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		t.Fatalf("write handshake length: %v", err)
	}
	if _, err := conn.Write([]byte(secret)); err != nil {
		t.Fatalf("write handshake secret: %v", err)
	}
}

func sendRequest(t *testing.T, conn net.Conn, msgType wire.MessageType, body []byte) (wire.ReplyHeader, []byte) {
	t.Helper()
	header := wire.EncodeRequestHeader(wire.RequestHeader{Type: msgType, TotalSize: uint32(len(body))})
	if _, err := conn.Write(header); err != nil {
		t.Fatalf("write request header: %v", err)
	}
	if len(body) > 0 {
		if _, err := conn.Write(body); err != nil {
			t.Fatalf("write request body: %v", err)
		}
	}

	replyHeaderBuf := make([]byte, 8)
	if _, err := io.ReadFull(conn, replyHeaderBuf); err != nil {
		t.Fatalf("read reply header: %v", err)
	}
	replyHeader, err := wire.DecodeReplyHeader(replyHeaderBuf)
	if err != nil {
		t.Fatalf("decode reply header: %v", err)
	}
	payload := make([]byte, replyHeader.Size)
	if replyHeader.Size > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			t.Fatalf("read reply payload: %v", err)
		}
	}
	return replyHeader, payload
}

func TestServer_AddQueryRules_NoAuth(t *testing.T) {
	path, stop := startTestServer(t, false, "")
	defer stop()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer func() { _ = conn.Close() }()

	rules := []rule.Rule{{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\DEVICE\HARDDISKVOLUME1\SECRETS\*`}}
	_, payload := sendRequest(t, conn, wire.AddRules, wire.EncodeRules(rules))
	added, err := wire.DecodeRemovedCount(payload)
	if err != nil || added != 1 {
		t.Fatalf("AddRules reply = (%d, %v), want (1, nil)", added, err)
	}

	_, payload = sendRequest(t, conn, wire.QueryRules, nil)
	got, err := wire.DecodeRules(payload)
	if err != nil || len(got) != 1 {
		t.Fatalf("QueryRules reply = (%v, %v), want 1 rule", got, err)
	}
}

func TestServer_HandshakeRejectsWrongSecret(t *testing.T) {
	hash, err := HashSecret("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashSecret() error: %v", err)
	}
	path, stop := startTestServer(t, true, hash)
	defer stop()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer func() { _ = conn.Close() }()

	sendHandshake(t, conn, "wrong-secret")

	// The server closes the connection on a failed handshake; any
	// subsequent read must fail rather than return a valid reply.
	buf := make([]byte, 8)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = io.ReadFull(conn, buf)
	if err == nil {
		t.Fatal("read succeeded after a rejected handshake, want connection closed")
	}
}

func TestServer_HandshakeAcceptsCorrectSecret(t *testing.T) {
	hash, err := HashSecret("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashSecret() error: %v", err)
	}
	path, stop := startTestServer(t, true, hash)
	defer stop()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer func() { _ = conn.Close() }()

	sendHandshake(t, conn, "correct-horse-battery-staple")

	_, payload := sendRequest(t, conn, wire.GetCoreVersion, nil)
	v, err := wire.DecodeCoreVersion(payload)
	if err != nil {
		t.Fatalf("DecodeCoreVersion() error: %v", err)
	}
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 && v.Build == 0 {
		t.Error("GetCoreVersion returned the zero version")
	}
}
