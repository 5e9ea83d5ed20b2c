package intercept

import (
	"context"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
	"github.com/fxtack/fileguardcore/internal/domain/rule"
)

// StatusSuccess and StatusAccessDenied mirror the platform status
// codes referenced by §4.B/§9 — the exact numeric values a host
// adapter completes an I/O request with.
const (
	StatusSuccess      int32 = 0
	StatusAccessDenied int32 = -1073741790 // 0xC0000022
)

// Pipeline implements the pre/post interception contract of §4.B. It
// holds no per-stream state itself — PerOpenContext instances are
// owned and kept alive by the host adapter for the stream's lifetime
// — and only consults the rule store to classify paths.
type Pipeline struct {
	store rule.Store
}

// NewPipeline builds a Pipeline backed by store.
func NewPipeline(store rule.Store) *Pipeline {
	return &Pipeline{store: store}
}

// PreOpen implements step 2-4 of §4.B: normalize the path, find the
// first matching rule, and decide. A MajorAccessDenied match denies
// the open outright. Any other outcome (a MajorReadOnly match, or no
// match at all) returns AllowAndTrack, asking the host adapter to
// attach classification once the stream exists; on no match that
// classification is MajorNone/MinorNone.
func (p *Pipeline) PreOpen(ctx context.Context, path string) (PreResult, error) {
	normalized := rule.Normalize(path)

	matched, ok, err := p.store.MatchFirst(ctx, normalized)
	if err != nil {
		return PreResult{}, err
	}
	if !ok {
		return PreResult{Decision: AllowAndTrack, NormalizedPath: normalized}, nil
	}

	if matched.Major == rule.MajorAccessDenied {
		return PreResult{
			Decision:       Deny,
			Status:         StatusAccessDenied,
			Major:          matched.Major,
			Minor:          matched.Minor,
			NormalizedPath: normalized,
		}, nil
	}

	return PreResult{
		Decision:       AllowAndTrack,
		Major:          matched.Major,
		Minor:          matched.Minor,
		NormalizedPath: normalized,
	}, nil
}

// PostOpen implements §4.B's post-open callback: attach the
// classification computed by PreOpen to the now-live stream context.
// It is a no-op if the context has already been classified by a
// racing open on the same stream (I4).
func (p *Pipeline) PostOpen(result PreResult, octx *PerOpenContext, volumeSerial uint64, fileID [16]byte) {
	octx.Classify(result.Major, result.Minor, volumeSerial, fileID, result.NormalizedPath)
}

// PreWrite implements the pre-write callback: deny if the stream was
// classified MajorAccessDenied or MajorReadOnly (I5 — the stream's
// classification never changes after PostOpen, regardless of rule
// updates that happen afterward).
func (p *Pipeline) PreWrite(octx *PerOpenContext) PreResult {
	major, minor := octx.Classification()
	if major == rule.MajorAccessDenied || major == rule.MajorReadOnly {
		return PreResult{Decision: Deny, Status: StatusAccessDenied, Major: major, Minor: minor}
	}
	return PreResult{Decision: Allow, Major: major, Minor: minor}
}

// PreSetInformation implements the pre-set-information callback
// (§4.B): classify on the sub-kind.
//   - Delete/disposition: a ReadOnly-classified stream is denied, same
//     as PreWrite.
//   - Rename: destPath is resolved and matched against the rule store
//     independently of the stream's own classification. A destination
//     matching an AccessDenied rule rejects the rename outright, even
//     for a stream that is not itself ReadOnly-classified. The
//     returned DestMinor reports whether the destination alone is
//     tagged Monitored.
//   - Any other sub-kind passes through unconditionally.
func (p *Pipeline) PreSetInformation(ctx context.Context, octx *PerOpenContext, kind monitor.SetInformationKind, destPath string) (PreResult, error) {
	major, minor := octx.Classification()

	switch kind {
	case monitor.SetInfoDelete:
		if major == rule.MajorReadOnly {
			return PreResult{Decision: Deny, Status: StatusAccessDenied, Major: major, Minor: minor}, nil
		}
		return PreResult{Decision: Allow, Major: major, Minor: minor}, nil

	case monitor.SetInfoRename:
		normalizedDest := rule.Normalize(destPath)
		result := PreResult{Decision: Allow, Major: major, Minor: minor, NormalizedPath: normalizedDest}

		matched, ok, err := p.store.MatchFirst(ctx, normalizedDest)
		if err != nil {
			return PreResult{}, err
		}
		if ok {
			result.DestMinor = matched.Minor
			if matched.Major == rule.MajorAccessDenied {
				result.Decision = Deny
				result.Status = StatusAccessDenied
			}
		}
		return result, nil

	default:
		return PreResult{Decision: Allow, Major: major, Minor: minor}, nil
	}
}

// Cleanup implements the cleanup/close callback: transition the
// stream context to Terminal. It never changes classification and
// never denies.
func (p *Pipeline) Cleanup(octx *PerOpenContext) {
	octx.Terminate()
}

// ShouldMonitor reports whether an operation against a classified
// stream should produce a monitor record, per the MinorMonitored tag
// attached at PostOpen time.
func ShouldMonitor(octx *PerOpenContext) bool {
	_, minor := octx.Classification()
	return minor == rule.MinorMonitored
}

// ShouldMonitorRename reports whether a rename's set-information
// record should be produced: either the source stream or the
// destination path (destMinor, from PreSetInformation's DestMinor) is
// tagged Monitored.
func ShouldMonitorRename(octx *PerOpenContext, destMinor rule.MinorAction) bool {
	return ShouldMonitor(octx) || destMinor == rule.MinorMonitored
}
