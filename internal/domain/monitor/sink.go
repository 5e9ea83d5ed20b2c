package monitor

import "errors"

// ErrDisconnected is returned by a FrameSink when no admin consumer is
// currently attached; the worker discards the frame and resumes
// waiting rather than retrying (§4.D step 3, §7).
var ErrDisconnected = errors.New("monitor: consumer disconnected")

// FrameSink delivers one encoded frame to the attached admin monitor
// consumer. Implementations correspond to the "Monitor channel" in
// §6 — a framed, uni-directional transport from core to admin.
type FrameSink interface {
	// SendFrame writes one encoded batch of records. It returns
	// ErrDisconnected if no consumer is currently attached.
	SendFrame(frame []byte) error
}
