package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config sizes the dispatcher queue.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit count and discard events instead of waiting for
	// queue room.
	DropIfFull bool
}

// Dispatcher hands events to a sink on its own goroutine so session and
// transport paths never wait on audit I/O. Metadata is redacted before an
// event is queued. A nil *Dispatcher discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	ch         chan Event
	stop       chan struct{}
	stopped    sync.WaitGroup
	once       sync.Once
	closed     atomic.Bool
	dropped    atomic.Uint64
	delivered  atomic.Uint64
}

// NewDispatcher starts delivery. It returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		ch:         make(chan Event, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.stopped.Done()
	for {
		select {
		case ev := <-d.ch:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain flushes what was queued before Close.
func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.ch:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev. Without DropIfFull it waits for room until ctx ends or the
// dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Metadata = Redact(ev.Metadata)

	if d.dropIfFull {
		select {
		case d.ch <- ev:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	select {
	case d.ch <- ev:
	case <-done:
	case <-d.stop:
	}
}

// Close rejects further events, flushes the queue and waits for delivery to
// finish. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

// Dropped counts events discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered counts events handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
