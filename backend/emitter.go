package backend

import (
	"sync/atomic"
	"time"
)

// Emitter delivers events in order for backends whose callbacks already run on the loop.
// Events emitted while the sink is busy are delivered after it returns, never nested.
// Posted events come in through the queue and get picked up whenever the backend emits or pumps,
// Loop keeps pumping while the backend is idle
type Emitter struct {
	queue      *Queue
	sink       func(Event)
	pending    []Event
	delivering bool
	stopped    atomic.Bool
}

func NewEmitter(q *Queue) *Emitter {
	return &Emitter{queue: q}
}

// SetSink starts delivery. Everything emitted before is handed over right away
func (e *Emitter) SetSink(sink func(Event)) {
	e.sink = sink
	e.Pump()
}

// Emit queues ev behind everything not yet delivered. Loop only
func (e *Emitter) Emit(ev Event) {
	e.pending = append(e.pending, ev)
	e.Pump()
}

// Pump delivers pending events, then whatever was posted. Loop only
func (e *Emitter) Pump() {
	if e.sink == nil || e.delivering {
		return
	}
	e.delivering = true
	defer func() { e.delivering = false }()
	for !e.stopped.Load() {
		if len(e.pending) > 0 {
			ev := e.pending[0]
			e.pending = e.pending[1:]
			e.sink(ev)
			continue
		}
		ev, ok := e.queue.TryReceive()
		if !ok || ev == nil {
			return
		}
		e.sink(ev)
	}
}

// PollInterval bounds how long posted events wait when the backend has nothing else to do
const PollInterval = 16 * time.Millisecond

// Loop alternates between wait, which runs the backend's own dispatch for at most
// the given time, and Pump. Posted events therefore get delivered even when the
// backend stays idle. Returns once stopped or the queue is closed
func (e *Emitter) Loop(wait func(time.Duration)) {
	for !e.stopped.Load() && !e.queue.Closed() {
		wait(PollInterval)
		e.Pump()
	}
}

// Stop ends delivery after the event currently being handled. Safe from any goroutine
func (e *Emitter) Stop() {
	e.stopped.Store(true)
}

func (e *Emitter) Stopped() bool {
	return e.stopped.Load()
}

// Pending is the number of emitted events not yet delivered
func (e *Emitter) Pending() int {
	return len(e.pending)
}
