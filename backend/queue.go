// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend

import (
	"sync"
)

// A many to one queue feeding the event loop
// Any number of goroutines may Send, exactly one (the loop) receives.
// Sending to a raw closed channel panics, so the queue tracks that state itself
// and turns late sends into ErrQueueClosed
type Queue struct {
	events    chan Event
	done      chan struct{}
	lock      sync.RWMutex
	closeOnce sync.Once
	closed    bool
}

// NewQueue creates a queue buffering up to size events before Send blocks
func NewQueue(size int) *Queue {
	return &Queue{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// Send a message to the loop
// Blocks while the buffer is full. Fails if the queue is or gets closed
func (q *Queue) Send(ev Event) error {
	q.lock.RLock()
	defer q.lock.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.events <- ev:
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

// Events is the receiving end. It gets closed by Close
func (q *Queue) Events() <-chan Event {
	return q.events
}

// TryReceive takes one event without blocking
func (q *Queue) TryReceive() (Event, bool) {
	select {
	case ev, ok := <-q.events:
		return ev, ok
	default:
		return nil, false
	}
}

// Drain hands every currently queued event to fn without blocking
// Returns the number of events handled
func (q *Queue) Drain(fn func(Event)) int {
	n := 0
	for {
		ev, ok := q.TryReceive()
		if !ok {
			return n
		}
		fn(ev)
		n++
	}
}

// Close marks the queue as closed and closes the receiving channel
// Senders blocked on a full buffer are released with ErrQueueClosed
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
		q.lock.Lock()
		q.closed = true
		close(q.events)
		q.lock.Unlock()
	})
}

func (q *Queue) Closed() bool {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.closed
}
