// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wm

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/sirupsen/logrus"
)

var (
	ErrSealed            = errors.New("dispatcher is sealed")
	ErrDuplicateHandler  = errors.New("handler already registered")
	ErrUnexpectedPayload = errors.New("unexpected event payload")
)

type Handler func(ev backend.Event) error

// Dispatcher routes backend events to handlers.
// Global events go through a table filled before the loop starts.
// Events owned by an entity (a device, output or surface) go through that entity's listeners,
// which get dropped as soon as the entity's destroy event has been handled
type Dispatcher struct {
	handlers  map[backend.EventType]Handler
	listeners map[backend.EntityKey]map[backend.EventType]Handler
	sealed    bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers:  map[backend.EventType]Handler{},
		listeners: map[backend.EntityKey]map[backend.EventType]Handler{},
	}
}

// on adapts a typed handler func to a Handler
func on[E backend.Event](fn func(E) error) Handler {
	return func(ev backend.Event) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, ev, ev.Type())
		}
		return fn(typed)
	}
}

// Handle registers the handler for one global event type. Only possible until Seal
func (d *Dispatcher) Handle(t backend.EventType, h Handler) error {
	if d.sealed {
		return fmt.Errorf("%w: can't register %s", ErrSealed, t)
	}
	if _, ok := d.handlers[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, t)
	}
	d.handlers[t] = h
	return nil
}

// Seal freezes the handler table. Listeners can still come and go
func (d *Dispatcher) Seal() {
	d.sealed = true
}

// Listen attaches a handler for events of type t owned by owner
func (d *Dispatcher) Listen(owner backend.EntityKey, t backend.EventType, h Handler) {
	set, ok := d.listeners[owner]
	if !ok {
		set = map[backend.EventType]Handler{}
		d.listeners[owner] = set
	}
	set[t] = h
}

// Teardown drops every listener of owner
func (d *Dispatcher) Teardown(owner backend.EntityKey) {
	if _, ok := d.listeners[owner]; ok {
		logrus.WithField("owner", owner).Debugln("Removing listeners")
	}
	delete(d.listeners, owner)
}

// Listening reports whether owner has any listener left
func (d *Dispatcher) Listening(owner backend.EntityKey) bool {
	return len(d.listeners[owner]) > 0
}

// Dispatch hands ev to its handler.
// Never fails and never panics: whatever goes wrong in a handler gets logged
func (d *Dispatcher) Dispatch(ev backend.Event) {
	if ev == nil {
		return
	}
	owned, ok := ev.(backend.Owned)
	if !ok {
		h, ok := d.handlers[ev.Type()]
		if !ok {
			logrus.WithField("event", ev.Type()).Debugln("No handler for event, ignoring")
			return
		}
		d.call(h, ev)
		return
	}

	owner := owned.Owner()
	if isDestroy(ev.Type()) {
		// The entity is gone after this, whatever the listener does
		defer d.Teardown(owner)
	}
	h, ok := d.listeners[owner][ev.Type()]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"event": ev.Type(),
			"owner": owner,
		}).Debugln("No listener for entity event, dropping")
		return
	}
	d.call(h, ev)
}

func (d *Dispatcher) call(h Handler, ev backend.Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"event": ev.Type(),
				"panic": r,
				"stack": string(debug.Stack()),
			}).Errorln("Event handler panicked")
		}
	}()
	if err := h(ev); err != nil {
		logrus.WithError(err).WithField("event", ev.Type()).Errorln("Event handler failed")
	}
}

func isDestroy(t backend.EventType) bool {
	switch t {
	case backend.EventDeviceDestroyed, backend.EventOutputRemoved, backend.EventSurfaceDestroyed:
		return true
	default:
		return false
	}
}
