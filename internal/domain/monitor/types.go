// Package monitor contains domain types for the audit record pipeline.
package monitor

import (
	"context"
	"time"

	"github.com/fxtack/fileguardcore/internal/domain/rule"
)

// OperationKind identifies which intercepted file operation produced
// a MonitorRecord.
type OperationKind uint8

const (
	// OpCreate is a file open/create.
	OpCreate OperationKind = iota
	// OpWrite is a write attempt.
	OpWrite
	// OpSetInformation is a rename or delete-disposition request.
	OpSetInformation
	// OpClose is a cleanup/close.
	OpClose
)

// String renders the operation kind for logs and CLI output.
func (k OperationKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpSetInformation:
		return "set-information"
	case OpClose:
		return "close"
	default:
		return "unknown"
	}
}

// SetInformationKind narrows OpSetInformation records (§4.B).
type SetInformationKind uint8

const (
	// SetInfoDelete is a delete-disposition request.
	SetInfoDelete SetInformationKind = iota
	// SetInfoRename is a rename request.
	SetInfoRename
	// SetInfoOther is any other FileInformationClass.
	SetInfoOther
)

// String renders the set-information kind for logs and CLI output.
func (k SetInformationKind) String() string {
	switch k {
	case SetInfoDelete:
		return "delete"
	case SetInfoRename:
		return "rename"
	default:
		return "other"
	}
}

// Record is one immutable audit event (I6, I7). Total encoded size
// never exceeds the per-record ceiling in §5 (512B header + two
// 32KiB-bounded path fields).
type Record struct {
	Op                 OperationKind
	SetInfoKind        SetInformationKind // meaningful only when Op == OpSetInformation
	RequestorPID       uint64
	RequestorTID       uint64
	VolumeSerial       uint64
	FileID             [16]byte
	CapturedAt         time.Time
	Status             int32 // platform status code, 0 == success
	MatchedMajor       rule.MajorAction
	MatchedMinor       rule.MinorAction
	MatchedPattern     string
	OriginalPath       string
	RenameTargetPath   string // set only for rename set-information records
}

// Queue is the bounded FIFO contract for audit records (§4.C).
// Enqueue is never blocking: when the queue is at MaxRecords capacity
// the new record is dropped and DroppedCount is incremented instead.
type Queue interface {
	// Enqueue appends rec to the tail, or drops it and increments the
	// dropped counter if the queue is already at capacity (P5, P10).
	Enqueue(rec Record)

	// Drain copies up to maxBytes worth of records (header + path
	// fields accounted per record) into the returned batch, removing
	// them from the queue head-first (FIFO, P4). It returns as many
	// whole records as fit; a record that would overflow maxBytes is
	// left at the head for the next Drain call.
	Drain(maxBytes int) []Record

	// Len returns the current number of queued records.
	Len() int

	// DroppedCount returns the total number of records dropped since
	// the queue was created (P5).
	DroppedCount() uint64

	// Clear empties the queue, used on teardown and on the admin
	// "cleanup records" request. It does not reset DroppedCount.
	Clear()
}

// Worker drains a Queue into framed batches for a single attached
// admin consumer (§4.D).
type Worker interface {
	// Run blocks until ctx is canceled or Stop is called, draining the
	// queue whenever woken and a consumer is attached.
	Run(ctx context.Context) error

	// Wake signals the worker that new records may be available.
	Wake()

	// SetConsumerAttached toggles whether a consumer is attached; the
	// worker only sends frames while true.
	SetConsumerAttached(attached bool)

	// Stop requests the worker to exit promptly; Run returns once the
	// in-flight drain/send completes.
	Stop()
}
