package outbound

import (
	"context"

	"github.com/fxtack/fileguardcore/internal/domain/intercept"
	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

// Hooks is the outbound port between host-side file-system hook
// plumbing and the interception pipeline (§2 component G). The host
// side — operation dispatch, name resolution, volume attach/detach —
// is out of scope and reached only through this interface; this repo
// ships one concrete driver, the posixfs adapter.
type Hooks interface {
	// PreOpen runs before a create/open completes.
	PreOpen(ctx context.Context, path string) (intercept.PreResult, error)

	// PostOpen attaches classification to octx once the stream has
	// been created, per the decision PreOpen returned.
	PostOpen(result intercept.PreResult, octx *intercept.PerOpenContext, volumeSerial uint64, fileID [16]byte)

	// PreWrite runs before a write completes against an already-open
	// stream. rec carries caller context (PID/TID/timestamps); the
	// implementation fills in classification fields and enqueues it
	// if the stream is tagged for monitoring.
	PreWrite(octx *intercept.PerOpenContext, rec monitor.Record) intercept.PreResult

	// PreSetInformation runs before a rename or delete-disposition
	// request completes against an already-open stream. kind
	// distinguishes the sub-kind; destPath is the resolved destination
	// name for a rename (empty otherwise, or if the destination could
	// not be resolved). rec carries caller context; the implementation
	// fills in classification and rename-destination fields and
	// enqueues it per §4.B's per-sub-kind monitoring rule.
	PreSetInformation(ctx context.Context, octx *intercept.PerOpenContext, kind monitor.SetInformationKind, destPath string, rec monitor.Record) (intercept.PreResult, error)

	// Cleanup runs on stream close, terminating octx.
	Cleanup(octx *intercept.PerOpenContext, rec monitor.Record)
}
