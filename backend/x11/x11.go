// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package x11 runs the core as a window manager on an already running X server
package x11

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/geom"
	"github.com/sirupsen/logrus"
)

var ErrAnotherWM = errors.New("another window manager is already running")

// The X server owns the real devices, the core sees one pointer and one keyboard
const (
	corePointer  = backend.DeviceID(1)
	coreKeyboard = backend.DeviceID(2)
)

// Keys the core reserves. Everything else the X server delivers to clients directly
var reservedKeys = map[string]backend.Keysym{
	"Mod1-Escape": backend.KeysymEscape,
	"Mod1-F1":     backend.KeysymF1,
}

// Backend is a window manager for a running X server.
// X events come in on the xevent goroutine and get queued, Run is the only consumer
type Backend struct {
	xu    *xgbutil.XUtil
	root  xproto.Window
	queue *backend.Queue

	// Touched by the xevent goroutine only, except for lookups under lock
	lock     sync.Mutex
	monitors []Monitor
	outputs  map[string]backend.OutputID
	order    []string // monitor names in the order the core got them
	nextOut  backend.OutputID
	known    map[xproto.Window]backend.Role

	// Touched by the loop only
	active xproto.Window

	// Events found while starting wait here until Run, the queue has no reader yet
	startLock sync.Mutex
	starting  bool
	startup   []backend.Event

	terminated atomic.Bool
	closeOnce  sync.Once
}

func New() *Backend {
	return &Backend{
		queue:    backend.NewQueue(256),
		outputs:  map[string]backend.OutputID{},
		known:    map[xproto.Window]backend.Role{},
		starting: true,
	}
}

// Start connects to $DISPLAY, takes over window management and queues the
// monitors, devices and windows that are already there
func (b *Backend) Start() (backend.Socket, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return backend.Socket{}, fmt.Errorf("connect to X server: %w", err)
	}
	b.xu = xu
	b.root = xu.RootWin()

	err = xproto.ChangeWindowAttributesChecked(
		xu.Conn(),
		b.root,
		xproto.CwEventMask,
		[]uint32{
			xproto.EventMaskStructureNotify |
				xproto.EventMaskSubstructureNotify |
				xproto.EventMaskSubstructureRedirect,
		},
	).Check()
	if err != nil {
		b.disconnect()
		if _, ok := err.(xproto.AccessError); ok {
			return backend.Socket{}, ErrAnotherWM
		}
		return backend.Socket{}, fmt.Errorf("select root events: %w", err)
	}

	if err = b.initEWMH(); err != nil {
		logrus.WithError(err).Warnln("Failed to announce window manager via EWMH")
	}
	if err = b.initKeys(); err != nil {
		b.disconnect()
		return backend.Socket{}, err
	}

	xevent.MapRequestFun(b.handleMapRequest).Connect(xu, b.root)
	xevent.ConfigureRequestFun(b.handleConfigureRequest).Connect(xu, b.root)
	xevent.CreateNotifyFun(b.handleCreateNotify).Connect(xu, b.root)
	xevent.ConfigureNotifyFun(b.handleRootConfigure).Connect(xu, b.root)

	b.send(backend.DeviceAdded{Device: corePointer, Kind: backend.DevicePointer, Name: "core pointer"})
	b.send(backend.DeviceAdded{Device: coreKeyboard, Kind: backend.DeviceKeyboard, Name: "core keyboard"})
	if err = b.refreshMonitors(); err != nil {
		b.disconnect()
		return backend.Socket{}, err
	}
	b.adoptExisting()

	socket := backend.Socket{EnvVar: "DISPLAY", Name: ":" + strconv.Itoa(xu.Conn().DisplayNumber)}
	logrus.WithField("DISPLAY", socket.Name).Infoln("Managing X display")
	return socket, nil
}

// disconnect drops the connection of a failed Start, Close has nothing left to do then
func (b *Backend) disconnect() {
	b.xu.Conn().Close()
	b.xu = nil
}

func (b *Backend) initEWMH() error {
	win, err := xwindow.Create(b.xu, b.root)
	if err != nil {
		return err
	}
	if err = ewmh.SupportingWmCheckSet(b.xu, b.root, win.Id); err != nil {
		return err
	}
	if err = ewmh.SupportingWmCheckSet(b.xu, win.Id, win.Id); err != nil {
		return err
	}
	if err = ewmh.WmNameSet(b.xu, win.Id, "way2kiosk"); err != nil {
		return err
	}
	return ewmh.SupportedSet(b.xu, []string{"_NET_ACTIVE_WINDOW", "_NET_CLIENT_LIST", "_NET_WM_STRUT", "_NET_WM_STRUT_PARTIAL"})
}

func (b *Backend) initKeys() error {
	keybind.Initialize(b.xu)
	// Grabs should still fire with caps or num lock on
	xevent.IgnoreMods = []uint16{0, xproto.ModMaskLock, xproto.ModMask2, xproto.ModMaskLock | xproto.ModMask2}
	for seq, sym := range reservedKeys {
		err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
			b.send(backend.Key{
				Device:    coreKeyboard,
				Time:      uint32(ev.Time),
				Keycode:   uint32(ev.Detail),
				State:     backend.KeyPressed,
				Keysyms:   []backend.Keysym{sym},
				Modifiers: modifiers(ev.State),
			})
		}).Connect(b.xu, b.root, seq, true)
		if err != nil {
			return fmt.Errorf("grab %s: %w", seq, err)
		}
	}
	return nil
}

// modifiers translates an X modifier mask. The bit layout is the same
func modifiers(state uint16) backend.Modifiers {
	return backend.Modifiers(state) & (backend.ModShift | backend.ModCaps | backend.ModCtrl | backend.ModAlt |
		backend.ModMod2 | backend.ModMod3 | backend.ModLogo | backend.ModMod5)
}

// send queues an event for the loop. Only fails once the loop is gone
func (b *Backend) send(ev backend.Event) {
	b.startLock.Lock()
	if b.starting {
		b.startup = append(b.startup, ev)
		b.startLock.Unlock()
		return
	}
	b.startLock.Unlock()
	if err := b.queue.Send(ev); err != nil {
		logrus.WithField("event", ev.Type()).Debugln("Dropping X event, loop is gone")
	}
}

// takeStartup ends the startup phase, later events go through the queue
func (b *Backend) takeStartup() []backend.Event {
	b.startLock.Lock()
	defer b.startLock.Unlock()
	b.starting = false
	evs := b.startup
	b.startup = nil
	return evs
}

// Run delivers what Start found, then queued events until Terminate is called
// or the X connection drops
func (b *Backend) Run(sink func(backend.Event)) error {
	for _, ev := range b.takeStartup() {
		sink(ev)
		if b.terminated.Load() {
			return nil
		}
	}
	go func() {
		xevent.Main(b.xu)
		if !b.terminated.Load() {
			b.send(backend.Shutdown{Reason: "X event loop stopped"})
		}
	}()
	for ev := range b.queue.Events() {
		sink(ev)
		if b.terminated.Load() {
			break
		}
	}
	return nil
}

func (b *Backend) Post(ev backend.Event) error {
	return b.queue.Send(ev)
}

// Terminate makes Run return. Safe from any goroutine
func (b *Backend) Terminate() {
	if b.terminated.Swap(true) {
		return
	}
	if b.xu != nil {
		xevent.Quit(b.xu)
	}
	// Wakes up Run if it's waiting for events
	go b.send(backend.Deferred{})
}

func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.queue.Close()
		if b.xu != nil {
			b.xu.Conn().Close()
		}
	})
	return nil
}

// Outputs

func (b *Backend) EnableOutput(output backend.OutputID) error {
	return b.checkOutput(output)
}

// Modes stay whatever the X server runs, this only validates
func (b *Backend) SetOutputMode(output backend.OutputID, mode backend.Mode) error {
	logrus.WithFields(logrus.Fields{
		"output": output,
		"mode":   mode,
	}).Debugln("Keeping mode of hosted output")
	return b.checkOutput(output)
}

// The X server renders
func (b *Backend) CommitFrame(output backend.OutputID) error {
	return nil
}

// The X server owns the pointer
func (b *Backend) WarpCursor(x, y float64) {}

func (b *Backend) checkOutput(output backend.OutputID) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, id := range b.outputs {
		if id == output {
			return nil
		}
	}
	return fmt.Errorf("%w: output %d", backend.ErrUnknownHandle, output)
}

// Windows

func (b *Backend) SetWindowGeometry(surface backend.SurfaceID, rect geom.Rect) error {
	win := xproto.Window(surface)
	if win == 0 {
		return fmt.Errorf("%w: surface 0", backend.ErrUnknownHandle)
	}
	rect = b.toScreen(rect)
	xwindow.New(b.xu, win).MoveResize(rect.X, rect.Y, rect.Width, rect.Height)
	return nil
}

// Activating raises the window and gives it the input focus
func (b *Backend) SetWindowActivated(surface backend.SurfaceID, activated bool) error {
	win := xproto.Window(surface)
	if !activated {
		if b.active == win {
			b.active = 0
		}
		return nil
	}
	b.active = win
	err := xproto.ConfigureWindowChecked(b.xu.Conn(), win, xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove}).Check()
	if err != nil {
		return fmt.Errorf("%w: raise window %d: %w", backend.ErrUnknownHandle, win, err)
	}
	return ewmh.ActiveWindowSet(b.xu, win)
}

func (b *Backend) NotifyKeyboardEnter(surface backend.SurfaceID, mods backend.Modifiers) error {
	return xproto.SetInputFocusChecked(b.xu.Conn(), xproto.InputFocusPointerRoot,
		xproto.Window(surface), xproto.TimeCurrentTime).Check()
}

// Input goes from the X server to clients directly, there is nothing to forward

func (b *Backend) NotifyPointerMotion(backend.SurfaceID, uint32, float64, float64) error { return nil }

func (b *Backend) NotifyPointerButton(backend.SurfaceID, uint32, uint32, backend.ButtonState) error {
	return nil
}

func (b *Backend) NotifyPointerAxis(backend.SurfaceID, backend.PointerAxis) error { return nil }

func (b *Backend) NotifyPointerFrame(backend.SurfaceID) {}

func (b *Backend) NotifyKey(backend.SurfaceID, uint32, uint32, backend.KeyState) error { return nil }

func (b *Backend) NotifyModifiers(backend.SurfaceID, backend.Modifiers) error { return nil }

func (b *Backend) SetKeyboard(backend.DeviceID) error { return nil }

func (b *Backend) SetCapabilities(backend.Capabilities) {}
