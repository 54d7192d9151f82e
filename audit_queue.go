package shopAuth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditQueue moves OTP, login and token events off the request path. A
// single worker hands them to the configured sink in arrival order, so a
// slow sink (Kafka, Mongo) never stalls checkout or login traffic.
type auditQueue struct {
	sink       AuditSink
	events     chan AuditEvent
	dropOnFull bool

	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	stopping atomic.Bool
	dropped  atomic.Uint64
}

// newAuditQueue starts the worker. It returns nil when auditing is off; a
// nil queue accepts and discards every call.
func newAuditQueue(cfg AuditConfig, sink AuditSink) *auditQueue {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	q := &auditQueue{
		sink:       sink,
		events:     make(chan AuditEvent, size),
		dropOnFull: cfg.DropIfFull,
		stop:       make(chan struct{}),
		finished:   make(chan struct{}),
	}
	go q.work()
	return q
}

func (q *auditQueue) work() {
	defer close(q.finished)

	for {
		select {
		case ev := <-q.events:
			q.deliver(ev)
		case <-q.stop:
			q.flush()
			return
		}
	}
}

// flush delivers whatever was queued before shutdown began.
func (q *auditQueue) flush() {
	for {
		select {
		case ev := <-q.events:
			q.deliver(ev)
		default:
			return
		}
	}
}

func (q *auditQueue) deliver(ev AuditEvent) {
	q.sink.Emit(context.Background(), ev)
}

// Emit queues ev for the sink. When the queue is full, a drop-on-full
// queue counts the event as lost and returns at once; otherwise the caller
// waits until there is room, ctx ends, or the engine shuts down.
func (q *auditQueue) Emit(ctx context.Context, ev AuditEvent) {
	if q == nil || q.stopping.Load() {
		return
	}

	if q.dropOnFull {
		select {
		case q.events <- ev:
		case <-q.stop:
		default:
			q.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case q.events <- ev:
	case <-ctx.Done():
	case <-q.stop:
	}
}

// Close refuses new events and returns once the worker has handed every
// queued event to the sink. Engine.Close calls it; repeat calls are no-ops.
func (q *auditQueue) Close() {
	if q == nil {
		return
	}
	q.stopOnce.Do(func() {
		q.stopping.Store(true)
		close(q.stop)
	})
	<-q.finished
}

// Dropped counts events lost to a full queue since the engine started.
func (q *auditQueue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
