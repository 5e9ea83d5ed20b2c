package service

import (
	"context"
	"log/slog"

	"github.com/fxtack/fileguardcore/internal/domain/intercept"
	"github.com/fxtack/fileguardcore/internal/domain/monitor"
	"github.com/fxtack/fileguardcore/internal/domain/rule"
	"github.com/fxtack/fileguardcore/internal/port/outbound"
)

// PipelineService satisfies outbound.Hooks, so any host adapter
// (e.g. posixfs) can drive it directly.
var _ outbound.Hooks = (*PipelineService)(nil)

// PipelineService wraps the domain interception pipeline with the
// ambient stack (tracing, metrics, structured logging, monitor record
// emission) that §4.B's pure domain logic never touches directly.
type PipelineService struct {
	pipeline *intercept.Pipeline
	queue    monitor.Queue
	worker   monitor.Worker
	metrics  *Metrics
	logger   *slog.Logger
}

// NewPipelineService builds a PipelineService over store, queue, and
// worker, recording decisions to metrics and logger.
func NewPipelineService(store rule.Store, queue monitor.Queue, worker monitor.Worker, metrics *Metrics, logger *slog.Logger) *PipelineService {
	return &PipelineService{
		pipeline: intercept.NewPipeline(store),
		queue:    queue,
		worker:   worker,
		metrics:  metrics,
		logger:   logger,
	}
}

// PreOpen runs the pre-open callback, tracing the rule lookup and
// recording the resulting decision in metrics.
func (s *PipelineService) PreOpen(ctx context.Context, path string) (intercept.PreResult, error) {
	var result intercept.PreResult
	err := traceDecision(ctx, s.logger, "pre_open", func(ctx context.Context) (string, error) {
		r, err := s.pipeline.PreOpen(ctx, path)
		if err != nil {
			return "", err
		}
		result = r
		return decisionLabel(r.Decision), nil
	})
	if err != nil {
		return intercept.PreResult{}, err
	}
	s.metrics.DecisionsTotal.WithLabelValues(decisionLabel(result.Decision)).Inc()
	return result, nil
}

// PostOpen attaches classification to octx.
func (s *PipelineService) PostOpen(result intercept.PreResult, octx *intercept.PerOpenContext, volumeSerial uint64, fileID [16]byte) {
	s.pipeline.PostOpen(result, octx, volumeSerial, fileID)
}

// PreWrite runs the pre-write callback and emits a monitor record
// when the stream is tagged MinorMonitored.
func (s *PipelineService) PreWrite(octx *intercept.PerOpenContext, rec monitor.Record) intercept.PreResult {
	result := s.pipeline.PreWrite(octx)
	s.recordIfMonitored(octx, rec)
	return result
}

// PreSetInformation runs the pre-set-information callback (§4.B):
// rename destinations are resolved and matched against the rule store
// independently of the source stream's classification, deletes follow
// the same ReadOnly restriction as writes, and any other sub-kind
// passes through untouched. A monitor record is emitted only for
// Delete (when the source stream is Monitored) and Rename (when
// either the source or the resolved destination is Monitored); other
// sub-kinds produce no record, per spec.
func (s *PipelineService) PreSetInformation(ctx context.Context, octx *intercept.PerOpenContext, kind monitor.SetInformationKind, destPath string, rec monitor.Record) (intercept.PreResult, error) {
	var result intercept.PreResult
	err := traceDecision(ctx, s.logger, "pre_set_information", func(ctx context.Context) (string, error) {
		r, err := s.pipeline.PreSetInformation(ctx, octx, kind, destPath)
		if err != nil {
			return "", err
		}
		result = r
		return decisionLabel(r.Decision), nil
	})
	if err != nil {
		return intercept.PreResult{}, err
	}
	s.metrics.DecisionsTotal.WithLabelValues(decisionLabel(result.Decision)).Inc()

	rec.SetInfoKind = kind
	switch kind {
	case monitor.SetInfoRename:
		rec.RenameTargetPath = destPath
		if intercept.ShouldMonitorRename(octx, result.DestMinor) {
			s.enqueueRecord(octx, rec)
		}
	case monitor.SetInfoDelete:
		s.recordIfMonitored(octx, rec)
	}
	return result, nil
}

// Cleanup runs the cleanup/close callback. Per §4.B, no audit record
// is produced for closes by default.
func (s *PipelineService) Cleanup(octx *intercept.PerOpenContext, _ monitor.Record) {
	s.pipeline.Cleanup(octx)
}

func (s *PipelineService) recordIfMonitored(octx *intercept.PerOpenContext, rec monitor.Record) {
	if !intercept.ShouldMonitor(octx) {
		return
	}
	s.enqueueRecord(octx, rec)
}

func (s *PipelineService) enqueueRecord(octx *intercept.PerOpenContext, rec monitor.Record) {
	if !monitor.FitsInFrame(rec) {
		s.logger.Warn("monitor record exceeds frame size, not enqueued", "path", rec.OriginalPath)
		return
	}
	major, minor := octx.Classification()
	rec.MatchedMajor = major
	rec.MatchedMinor = minor
	s.queue.Enqueue(rec)
	s.metrics.MonitorQueueDepth.Set(float64(s.queue.Len()))
	s.worker.Wake()
}

func decisionLabel(d intercept.Decision) string {
	switch d {
	case intercept.Allow:
		return "allow"
	case intercept.Deny:
		return "deny"
	case intercept.AllowAndTrack:
		return "allow_and_track"
	default:
		return "unknown"
	}
}
