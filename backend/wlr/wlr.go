// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package wlr runs the core as a Wayland compositor on top of wlroots,
// either nested inside another compositor or directly on DRM/KMS
package wlr

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
)

var (
	ErrUnknownKind  = errors.New("unknown wlroots backend")
	ErrCommitFailed = errors.New("output commit failed")
)

// Values for WLR_BACKENDS. DRM gets its input from libinput
var backendKinds = map[string]string{
	"wayland": "wayland",
	"drm":     "drm,libinput",
}

func Kinds() []string {
	return []string{"wayland", "drm"}
}

// Backend wraps a wlroots display. wlroots calls back on the loop,
// so events are emitted straight to the core without a detour through the queue
type Backend struct {
	kind string

	display     wlroots.Display
	backend     wlroots.Backend
	renderer    wlroots.Renderer
	allocator   wlroots.Allocator
	scene       wlroots.Scene
	sceneLayout wlroots.SceneOutputLayout

	xdgShell     wlroots.XDGShell
	outputLayout wlroots.OutputLayout

	cursor    wlroots.Cursor
	cursorMgr wlroots.XCursorManager
	seat      wlroots.Seat

	queue   *backend.Queue
	emitter *backend.Emitter
	ids     *handles

	started   bool
	ran       bool
	closeOnce sync.Once
}

// New prepares a backend of the given kind, "wayland" or "drm". Nothing happens until Start
func New(kind string) (*Backend, error) {
	if _, ok := backendKinds[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	queue := backend.NewQueue(256)
	return &Backend{
		kind:    kind,
		queue:   queue,
		emitter: backend.NewEmitter(queue),
		ids:     newHandles(),
	}, nil
}

// BridgeLogs forwards wlroots' own log output to logrus
func BridgeLogs() {
	wlroots.OnLog(wlroots.LogImportanceError, func(importance wlroots.LogImportance, msg string) {
		switch importance {
		case wlroots.LogImportanceDebug:
			logrus.Debugln(msg)
		case wlroots.LogImportanceInfo:
			logrus.Infoln(msg)
		case wlroots.LogImportanceError:
			logrus.Errorln(msg)
		case wlroots.LogImportanceSilent:
			return
		}
	})
}

func (b *Backend) Start() (backend.Socket, error) {
	if err := os.Setenv("WLR_BACKENDS", backendKinds[b.kind]); err != nil {
		return backend.Socket{}, err
	}

	var err error
	b.display = wlroots.NewDisplay()
	b.backend, err = b.display.BackendAutocreate()
	if err != nil {
		return backend.Socket{}, fmt.Errorf("create %s backend: %w", b.kind, err)
	}
	// WLR_RENDERER picks the renderer if set
	b.renderer, err = b.backend.RendererAutoCreate()
	if err != nil {
		return backend.Socket{}, fmt.Errorf("create renderer: %w", err)
	}
	b.renderer.InitDisplay(b.display)
	b.allocator, err = b.backend.AllocatorAutocreate(b.renderer)
	if err != nil {
		return backend.Socket{}, fmt.Errorf("create allocator: %w", err)
	}

	b.display.CompositorCreate(5, b.renderer)
	b.display.SubCompositorCreate()
	b.display.DataDeviceManagerCreate()

	b.outputLayout = wlroots.NewOutputLayout()
	b.backend.OnNewOutput(b.handleNewOutput)

	b.scene = wlroots.NewScene()
	b.sceneLayout = b.scene.AttachOutputLayout(b.outputLayout)

	b.xdgShell = b.display.XDGShellCreate(3)
	b.xdgShell.OnNewSurface(b.handleNewXDGSurface)

	b.cursor = wlroots.NewCursor()
	b.cursor.AttachOutputLayout(b.outputLayout)
	b.cursorMgr = wlroots.NewXCursorManager("", 24)
	b.cursorMgr.Load(1)
	b.cursor.OnMotion(b.handleCursorMotion)
	b.cursor.OnMotionAbsolute(b.handleCursorMotionAbsolute)
	b.cursor.OnButton(b.handleCursorButton)
	b.cursor.OnAxis(b.handleCursorAxis)
	b.cursor.OnFrame(b.handleCursorFrame)

	b.backend.OnNewInput(b.handleNewInput)
	b.seat = b.display.SeatCreate("seat0")
	b.seat.OnSetCursorRequest(b.handleSetCursorRequest)

	socket, err := b.display.AddSocketAuto()
	if err != nil {
		b.backend.Destroy()
		return backend.Socket{}, err
	}
	logrus.WithField("socket", socket).Debugln("got wl socket")

	// Enumerates outputs and inputs, becomes DRM master etc.
	// Whatever shows up here waits in the emitter until Run
	if err = b.backend.Start(); err != nil {
		b.backend.Destroy()
		b.display.Destroy()
		return backend.Socket{}, err
	}
	b.started = true

	logrus.WithField("WAYLAND_DISPLAY", socket).Infoln("Running Wayland compositor")
	return backend.Socket{EnvVar: "WAYLAND_DISPLAY", Name: socket}, nil
}

// Run the Wayland event loop. The loop is driven here instead of by display.Run
// so posted events get pumped between dispatches even when no output draws
func (b *Backend) Run(sink func(backend.Event)) error {
	if !b.started {
		return errors.New("backend not started")
	}
	b.ran = true
	b.emitter.SetSink(sink)
	evl := b.display.EventLoop()
	b.emitter.Loop(func(timeout time.Duration) {
		b.display.FlushClients()
		evl.Dispatch(timeout)
	})

	b.display.DestroyClients()
	b.scene.Tree().Node().Destroy()
	b.cursorMgr.Destroy()
	b.outputLayout.Destroy()
	b.display.Destroy()
	return nil
}

func (b *Backend) Post(ev backend.Event) error {
	return b.queue.Send(ev)
}

// Terminate stops the loop after the current dispatch returns
func (b *Backend) Terminate() {
	b.emitter.Stop()
}

func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.queue.Close()
		if b.started && !b.ran {
			b.backend.Destroy()
			b.display.Destroy()
		}
	})
	return nil
}

// emit hands an event to the core, called from wlroots callbacks only
func (b *Backend) emit(ev backend.Event) {
	b.emitter.Emit(ev)
}
