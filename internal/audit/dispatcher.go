package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink.
//
// Each event travels with its caller's context, detached from cancellation,
// so sinks can still read request-scoped values (request id, trace) after the
// request that produced the event has returned.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	ch        chan queued
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

type queued struct {
	ctx   context.Context
	event Event
}

// NewDispatcher starts the forwarding goroutine. It returns nil when auditing
// is disabled; a nil Dispatcher ignores every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan queued, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case q := <-d.ch:
			d.sink.Emit(q.ctx, q.event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case q := <-d.ch:
			d.sink.Emit(q.ctx, q.event)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full buffer drops the event and bumps
// the drop counter; otherwise Emit blocks until space, ctx cancellation or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- q:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- q:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close stops intake and drains queued events to the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
