package memory

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

// MonitorQueue implements monitor.Queue as an intrusive FIFO guarded
// by a single mutex (§4.C). Go has no raised-IRQL spinlock primitive;
// a sync.Mutex held only for the duration of one enqueue/dequeue is
// this repo's moral equivalent, as SPEC_FULL.md §5 documents.
type MonitorQueue struct {
	mu       sync.Mutex
	records  *list.List
	max      int
	dropped  atomic.Uint64
	onWake   func()
}

// NewMonitorQueue creates a queue bounded at max records (§3). A nil
// onWake is permitted for tests that do not exercise the worker.
func NewMonitorQueue(max int, onWake func()) *MonitorQueue {
	if max <= 0 {
		max = monitor.DefaultMaxRecords
	}
	if onWake == nil {
		onWake = func() {}
	}
	return &MonitorQueue{
		records: list.New(),
		max:     max,
		onWake:  onWake,
	}
}

// Enqueue implements monitor.Queue. Producers are never blocked: when
// the queue is already at max, the new record is dropped and the
// dropped counter incremented (P5, P10).
func (q *MonitorQueue) Enqueue(rec monitor.Record) {
	q.mu.Lock()
	if q.records.Len() >= q.max {
		q.mu.Unlock()
		q.dropped.Add(1)
		return
	}
	q.records.PushBack(rec)
	q.mu.Unlock()

	q.onWake()
}

// Drain implements monitor.Queue: pulls whole records off the head,
// in FIFO order, until the next one would exceed maxBytes.
func (q *MonitorQueue) Drain(maxBytes int) []monitor.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []monitor.Record
	used := 0
	for e := q.records.Front(); e != nil; {
		rec := e.Value.(monitor.Record)
		size := monitor.EncodedSize(rec)
		if used+size > maxBytes {
			break
		}
		used += size
		out = append(out, rec)

		next := e.Next()
		q.records.Remove(e)
		e = next
	}
	return out
}

// Len implements monitor.Queue.
func (q *MonitorQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.records.Len()
}

// DroppedCount implements monitor.Queue.
func (q *MonitorQueue) DroppedCount() uint64 {
	return q.dropped.Load()
}

// Clear implements monitor.Queue.
func (q *MonitorQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records.Init()
}

var _ monitor.Queue = (*MonitorQueue)(nil)
