package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
	"github.com/fxtack/fileguardcore/pkg/wire"
)

// teardownDrainTimeout bounds how long Run keeps flushing the queue
// after Stop or cancellation before it returns anyway (§4.D).
const teardownDrainTimeout = 100 * time.Millisecond

// MonitorWorker drains a monitor.Queue into wire-framed batches and
// hands them to a monitor.FrameSink whenever a consumer is attached,
// mirroring AuditService's channel-plus-background-worker shape but
// pull-based: it wakes on Wake() rather than receiving on a channel,
// since the queue itself (not a Go channel) is the buffer (§4.D).
type MonitorWorker struct {
	queue  monitor.Queue
	sink   monitor.FrameSink
	logger *slog.Logger

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once

	attached atomic.Bool

	// onDelivered, if set, is called with each batch of records once
	// they have been successfully sent to the attached consumer (the
	// optional history sink mirrors delivered records this way).
	onDelivered func([]monitor.Record)
}

// NewMonitorWorker builds a MonitorWorker draining queue into sink.
func NewMonitorWorker(queue monitor.Queue, sink monitor.FrameSink, logger *slog.Logger) *MonitorWorker {
	return &MonitorWorker{
		queue:  queue,
		sink:   sink,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

var _ monitor.Worker = (*MonitorWorker)(nil)

// Wake signals the worker that new records may be available. It never
// blocks: a pending wake that hasn't been consumed yet is sufficient.
func (w *MonitorWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// SetConsumerAttached toggles whether a consumer is attached. Going
// from detached to attached also wakes the worker so it drains
// anything that queued up while no one was listening.
func (w *MonitorWorker) SetConsumerAttached(attached bool) {
	w.attached.Store(attached)
	if attached {
		w.Wake()
	}
}

// SetOnDelivered installs a callback invoked with each batch of
// records immediately after they are handed to the sink. It must be
// set before Run starts; it is not safe to change concurrently with
// a running drain.
func (w *MonitorWorker) SetOnDelivered(fn func([]monitor.Record)) {
	w.onDelivered = fn
}

// Stop requests the worker to exit promptly.
func (w *MonitorWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Run drains the queue into frames whenever woken and a consumer is
// attached, until ctx is canceled or Stop is called. On teardown it
// makes one bounded attempt to flush whatever remains.
func (w *MonitorWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.finalDrain()
			return ctx.Err()
		case <-w.stop:
			w.finalDrain()
			return nil
		case <-w.wake:
			w.drainOnce()
		}
	}
}

// drainOnce drains and sends up to one frame's worth of records. It
// re-wakes itself if the queue still has records after that pass, so
// a burst larger than one frame doesn't wait for the next external
// Wake.
func (w *MonitorWorker) drainOnce() {
	if !w.attached.Load() {
		return
	}

	records := w.queue.Drain(monitor.FrameSize)
	if len(records) == 0 {
		return
	}

	for _, frame := range wire.EncodeFrame(records) {
		if err := w.sink.SendFrame(frame); err != nil {
			w.logger.Warn("monitor worker dropped frame", "error", err, "records", len(records))
			return
		}
	}

	if w.onDelivered != nil {
		w.onDelivered(records)
	}

	if w.queue.Len() > 0 {
		w.Wake()
	}
}

// finalDrain makes one bounded-time attempt to flush remaining
// records on teardown, matching §4.D's 100ms drain-on-teardown window.
func (w *MonitorWorker) finalDrain() {
	deadline := time.Now().Add(teardownDrainTimeout)
	for w.attached.Load() && w.queue.Len() > 0 && time.Now().Before(deadline) {
		w.drainOnce()
	}
}
