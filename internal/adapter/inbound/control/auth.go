package control

import (
	"bufio"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/alexedwards/argon2id"
)

// handshakeMaxSecretBytes bounds the one-shot secret line read from a
// new connection before the control dispatch loop begins (§4.E
// addition). It authenticates the connecting party; it does not
// encrypt any subsequent bytes, so it does not reopen the "no
// admin-channel encryption" non-goal.
const handshakeMaxSecretBytes = 4096

// secretParams mirrors the source's OWASP-minimum Argon2id parameters
// used to hash the shared admin secret.
var secretParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashSecret returns an Argon2id PHC-format hash of secret, for
// storing in Config.AdminAuth.SecretHash.
func HashSecret(secret string) (string, error) {
	return argon2id.CreateHash(secret, secretParams)
}

// verifySecret checks secret against storedHash using constant-time
// comparison internally (argon2id.ComparePasswordAndHash).
func verifySecret(secret, storedHash string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(secret, storedHash)
	if err != nil {
		return false, fmt.Errorf("control: verify secret: %w", err)
	}
	return match, nil
}

// readHandshakeSecret reads the one-shot {secretBytes: u32, secret: utf8}
// frame a new connection must send before any control request.
func readHandshakeSecret(r *bufio.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return "", fmt.Errorf("control: read handshake length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > handshakeMaxSecretBytes {
		return "", fmt.Errorf("control: handshake secret too large (%d bytes)", n)
	}
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return "", fmt.Errorf("control: read handshake secret: %w", err)
	}
	return string(buf), nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// constantTimeEqual compares a and b in constant time. Nothing in this
// repo calls it; the handshake verifies secrets with Argon2id.
func constantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
