// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wm

import (
	"errors"
	"fmt"
	"time"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/tiler"
	"github.com/sirupsen/logrus"
)

var ErrQueryTimeout = errors.New("event loop did not answer in time")

// Server is the window arrangement and focus routing core.
// Everything in here belongs to the event loop. Other goroutines talk to it through Post
type Server struct {
	backend    backend.Backend
	dispatcher *Dispatcher
	outputs    *OutputRegistry
	windows    *WindowRegistry
	seat       *Seat
	focus      *FocusManager
	layout     tiler.LayoutConfig
}

func NewServer(b backend.Backend, cfg tiler.LayoutConfig) *Server {
	server := &Server{
		backend:    b,
		dispatcher: NewDispatcher(),
		outputs:    NewOutputRegistry(b),
		windows:    NewWindowRegistry(),
		seat:       NewSeat(),
		layout:     cfg.Clamped(),
	}
	server.focus = NewFocusManager(b, server.windows, server.outputs)

	handlers := map[backend.EventType]Handler{
		backend.EventDeviceAdded:           on(server.handleNewInput),
		backend.EventOutputAdded:           on(server.handleNewOutput),
		backend.EventPointerMotion:         on(server.handleCursorMotion),
		backend.EventPointerMotionAbsolute: on(server.handleCursorMotionAbsolute),
		backend.EventPointerButton:         on(server.handleCursorButton),
		backend.EventPointerAxis:           on(server.handleCursorAxis),
		backend.EventPointerFrame:          on(server.handleCursorFrame),
		backend.EventSurfaceNew:            on(server.handleNewSurface),
		backend.EventDeferred:              on(server.handleDeferred),
		backend.EventShutdown:              on(server.handleShutdown),
	}
	for t, h := range handlers {
		if err := server.dispatcher.Handle(t, h); err != nil {
			logrus.WithError(err).Panicln("Failed to register event handler")
		}
	}
	return server
}

// Run seals the dispatch table and blocks in the backend's loop until terminated
func (server *Server) Run() error {
	server.dispatcher.Seal()
	logrus.WithField("layout", server.layout.Policy).Infoln("Running event loop")
	return server.backend.Run(server.Dispatch)
}

// Dispatch handles one event. Loop only
func (server *Server) Dispatch(ev backend.Event) {
	server.dispatcher.Dispatch(ev)
}

// Terminate makes Run return once the current event is handled
func (server *Server) Terminate() {
	logrus.Infoln("Terminating")
	server.backend.Terminate()
}

// Post schedules fn to run on the loop. Safe from any goroutine
func (server *Server) Post(fn func()) error {
	return server.backend.Post(backend.Deferred{Fn: fn})
}

// AfterFunc runs fn on the loop once d passed
func (server *Server) AfterFunc(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() {
		if err := server.Post(fn); err != nil {
			logrus.WithError(err).Warnln("Dropping deferred work, loop is gone")
		}
	})
}

// Query runs fn on the loop and waits for its result
func Query[T any](server *Server, timeout time.Duration, fn func() T) (T, error) {
	answer := make(chan T, 1)
	var zero T
	if err := server.Post(func() { answer <- fn() }); err != nil {
		return zero, err
	}
	select {
	case res := <-answer:
		return res, nil
	case <-time.After(timeout):
		return zero, ErrQueryTimeout
	}
}

func (server *Server) Layout() tiler.LayoutConfig {
	return server.layout
}

// SetLayout swaps the layout parameters and re-arranges every output. Loop only
func (server *Server) SetLayout(cfg tiler.LayoutConfig) {
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Warnln("Clamping layout config")
		cfg = cfg.Clamped()
	}
	server.layout = cfg
	logrus.WithFields(logrus.Fields{
		"layout":        cfg.Policy,
		"gap":           cfg.Gap,
		"master_factor": cfg.MasterFactor,
		"master_count":  cfg.MasterCount,
	}).Infoln("Layout changed")
	server.arrangeAll()
}

func (server *Server) Outputs() *OutputRegistry { return server.outputs }
func (server *Server) Windows() *WindowRegistry { return server.windows }
func (server *Server) Seat() *Seat              { return server.seat }
func (server *Server) Focus() *FocusManager     { return server.focus }

// FocusWindow focuses the window, same as a freshly mapped one would be
func (server *Server) FocusWindow(id backend.SurfaceID) error {
	return server.focus.Focus(id, server.seat.Modifiers)
}

// Check verifies every registry invariant at once
func (server *Server) Check() error {
	if err := server.windows.Check(); err != nil {
		return err
	}
	for _, id := range server.windows.Outputs() {
		if _, err := server.outputs.Get(id); err != nil {
			return fmt.Errorf("window list for removed output: %w", err)
		}
	}
	if id, ok := server.focus.Focused(); ok {
		w, err := server.windows.Get(id)
		if err != nil {
			return fmt.Errorf("focused window: %w", err)
		}
		if !w.Mapped || !w.Managed() {
			return fmt.Errorf("focused window %d is not a mapped toplevel", id)
		}
		if _, err = server.outputs.Get(w.Output); err != nil {
			return fmt.Errorf("focused window %d: %w", id, err)
		}
	}
	return nil
}

func (server *Server) handleDeferred(ev backend.Deferred) error {
	if ev.Fn != nil {
		ev.Fn()
	}
	return nil
}

func (server *Server) handleShutdown(ev backend.Shutdown) error {
	logrus.WithField("reason", ev.Reason).Infoln("Backend shut down")
	server.Terminate()
	return nil
}

func (server *Server) handleNewInput(ev backend.DeviceAdded) error {
	logrus.WithFields(logrus.Fields{
		"device": ev.Device,
		"kind":   ev.Kind,
		"name":   ev.Name,
	}).Debugln("New input device")
	server.seat.AddDevice(&Device{ID: ev.Device, Kind: ev.Kind, Name: ev.Name})

	key := ev.Device.Key()
	server.dispatcher.Listen(key, backend.EventDeviceDestroyed, on(server.handleDeviceDestroyed))
	if ev.Kind == backend.DeviceKeyboard {
		server.dispatcher.Listen(key, backend.EventKey, on(server.handleKey))
		server.dispatcher.Listen(key, backend.EventModifiers, on(server.handleModifiers))
		server.bindKeyboard(ev.Device)
	}
	server.backend.SetCapabilities(server.seat.Capabilities())
	return nil
}

func (server *Server) handleDeviceDestroyed(ev backend.DeviceDestroyed) error {
	dev := server.seat.RemoveDevice(ev.Device)
	if dev == nil {
		return fmt.Errorf("destroy of unknown device %d", ev.Device)
	}
	logrus.WithField("name", dev.Name).Debugln("Input device removed")
	if dev.Kind == backend.DeviceKeyboard && server.seat.Keyboard != 0 {
		if err := server.backend.SetKeyboard(server.seat.Keyboard); err != nil {
			logrus.WithError(err).Warnln("Failed to switch to remaining keyboard")
		}
	}
	server.backend.SetCapabilities(server.seat.Capabilities())
	return nil
}

func (server *Server) handleNewOutput(ev backend.OutputAdded) error {
	o, err := server.outputs.Add(ev)
	if err != nil {
		return err
	}
	key := ev.Output.Key()
	server.dispatcher.Listen(key, backend.EventOutputFrame, on(server.handleFrame))
	server.dispatcher.Listen(key, backend.EventOutputModeChanged, on(server.handleOutputModeChanged))
	server.dispatcher.Listen(key, backend.EventOutputRemoved, on(server.handleOutputRemoved))

	// Windows that lost their last output come back on the first new one
	orphans := server.windows.Orphans()
	for _, id := range orphans {
		if err = server.windows.Map(id, o.ID, o.Usable()); err != nil {
			logrus.WithError(err).WithField("window", id).Warnln("Failed to adopt orphaned window")
		}
	}
	if len(orphans) > 0 {
		logrus.WithField("windows", orphans).Infoln("Adopted orphaned windows")
		server.arrange(o)
		server.refocus(o.ID)
	}
	return nil
}

func (server *Server) handleFrame(ev backend.OutputFrame) error {
	return server.backend.CommitFrame(ev.Output)
}

func (server *Server) handleOutputModeChanged(ev backend.OutputModeChanged) error {
	o, moved, err := server.outputs.Resize(ev.Output, ev.Width, ev.Height)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"name":     o.Name,
		"geometry": o.Geometry,
	}).Debugln("Output resized")
	server.relayout(append([]*Output{o}, moved...)...)
	server.clampCursor()
	return nil
}

// relayout places layer surfaces and arranges windows again on each output once
func (server *Server) relayout(outputs ...*Output) {
	seen := map[backend.OutputID]bool{}
	for _, o := range outputs {
		if seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		server.placeLayers(o)
		server.arrange(o)
	}
}

// The windows of a removed output move to the center output, appended in their old order.
// That output and every output shifted into the gap get re-arranged.
// Without any output left the windows are unmapped
func (server *Server) handleOutputRemoved(ev backend.OutputRemoved) error {
	removed, shifted, err := server.outputs.Remove(ev.Output)
	if err != nil {
		return err
	}
	for _, w := range server.windows.All() {
		if w.Role == backend.RoleLayer && w.Output == removed.ID {
			w.Mapped = false
			w.Output = 0
		}
	}

	if dest := server.outputs.CenterOutput(); dest != nil {
		moved := server.windows.Reassign(removed.ID, dest.ID)
		logrus.WithFields(logrus.Fields{
			"from":    removed.Name,
			"to":      dest.Name,
			"windows": moved,
		}).Debugln("Reassigned windows of removed output")
		if len(moved) > 0 {
			shifted = append(shifted, dest)
		}
		server.relayout(shifted...)
	} else {
		focused, _ := server.focus.Focused()
		orphaned := server.windows.Orphan(removed.ID)
		for _, id := range orphaned {
			if id == focused {
				server.focus.Clear()
			}
		}
		if len(orphaned) > 0 {
			logrus.WithField("windows", orphaned).Warnln("Last output removed, windows unmapped")
		}
	}
	server.clampCursor()
	return nil
}
