// Package intercept models the pre/post interception pipeline (§4.B):
// per-operation callbacks, per-open stream context, and enforcement
// decisions.
package intercept

import (
	"sync"

	"github.com/fxtack/fileguardcore/internal/domain/rule"
)

// Decision is the outcome of a pre-callback.
type Decision int

const (
	// Allow lets the operation proceed unmodified.
	Allow Decision = iota
	// Deny completes the operation immediately with Status.
	Deny
	// AllowAndTrack lets the open proceed but schedules a post-open
	// callback to attach classification once the stream exists.
	AllowAndTrack
)

// PreResult is what a pre-callback returns to the host dispatch loop.
type PreResult struct {
	Decision Decision
	// Status is the platform status code to complete the operation
	// with when Decision == Deny.
	Status int32
	// Major/Minor carry the matched classification when
	// Decision == AllowAndTrack, for the post-open callback to attach.
	Major rule.MajorAction
	Minor rule.MinorAction
	// NormalizedPath is the resolved, device-rooted path (step 2 of
	// pre-open), carried forward to the post-open callback. For a
	// rename's pre-set-information result, this is the resolved,
	// normalized destination path instead.
	NormalizedPath string
	// DestMinor carries the minor action of the rule matched against a
	// rename's destination path, so the caller can tell whether the
	// destination alone is tagged Monitored. Meaningful only on a
	// rename PreSetInformation result.
	DestMinor rule.MinorAction
}

// StreamState is the per-stream state machine (§4.B):
// Unclassified -> Classified(major,minor) -> Terminal.
type StreamState int

const (
	Unclassified StreamState = iota
	Classified
	Terminal
)

// PerOpenContext is attached to an opened file stream on its first
// successful open (I4) and is immutable for the stream's lifetime
// once classified (I5).
type PerOpenContext struct {
	mu sync.Mutex

	state StreamState

	MatchedMajor rule.MajorAction
	MatchedMinor rule.MinorAction
	VolumeSerial uint64
	FileID       [16]byte
	OriginalPath string
}

// Classify sets the context's classification exactly once (I4). If
// the context is already classified — a concurrent open raced and
// won — Classify adopts the existing classification and is a no-op,
// matching §4.B's "adopt the existing context" rule.
func (c *PerOpenContext) Classify(major rule.MajorAction, minor rule.MinorAction, volumeSerial uint64, fileID [16]byte, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Unclassified {
		return
	}
	c.MatchedMajor = major
	c.MatchedMinor = minor
	c.VolumeSerial = volumeSerial
	c.FileID = fileID
	c.OriginalPath = path
	c.state = Classified
}

// Classification returns the stream's fixed classification (I5).
func (c *PerOpenContext) Classification() (rule.MajorAction, rule.MinorAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.MatchedMajor, c.MatchedMinor
}

// IsClassified reports whether Classify has run for this stream.
func (c *PerOpenContext) IsClassified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Classified
}

// Terminate transitions the context to Terminal on cleanup/close. It
// is read-only from the pipeline's perspective (no classification
// change) per the §4.B state machine.
func (c *PerOpenContext) Terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Terminal
}
