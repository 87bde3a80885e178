package backend

import (
	"errors"

	"github.com/mstarongithub/way2kiosk/common/geom"
)

var (
	// Returned by commands given a handle the backend doesn't know (anymore)
	ErrUnknownHandle = errors.New("unknown handle")
	// Returned when posting to a backend whose loop has stopped
	ErrQueueClosed = errors.New("event queue closed")
)

type Capabilities uint32

const (
	CapPointer = Capabilities(1 << iota)
	CapKeyboard
)

// Name of the socket clients connect to and the environment variable announcing it
type Socket struct {
	EnvVar string
	Name   string
}

// Commands are the imperative half of a backend. All of them must be called from the loop
type Commands interface {
	EnableOutput(output OutputID) error
	SetOutputMode(output OutputID, mode Mode) error
	// Render and present one frame on the output
	CommitFrame(output OutputID) error
	WarpCursor(x, y float64)

	SetWindowGeometry(surface SurfaceID, rect geom.Rect) error
	SetWindowActivated(surface SurfaceID, activated bool) error

	// Input forwarding. Coordinates are surface local
	NotifyKeyboardEnter(surface SurfaceID, mods Modifiers) error
	NotifyPointerMotion(surface SurfaceID, time uint32, sx, sy float64) error
	NotifyPointerButton(surface SurfaceID, time uint32, button uint32, state ButtonState) error
	NotifyPointerAxis(surface SurfaceID, ev PointerAxis) error
	NotifyPointerFrame(surface SurfaceID)
	NotifyKey(surface SurfaceID, time uint32, keycode uint32, state KeyState) error
	NotifyModifiers(surface SurfaceID, mods Modifiers) error

	// Make the given keyboard the one the seat reports keys and modifiers from
	SetKeyboard(device DeviceID) error
	SetCapabilities(caps Capabilities)
}

// Backend normalizes a windowing system into one event stream plus Commands
type Backend interface {
	Commands

	// Start brings up the backend and returns the socket clients should connect to
	Start() (Socket, error)
	// Run blocks, delivering events to sink strictly in order, until Terminate is called
	// or the backend shuts down. sink is only ever called from the loop
	Run(sink func(Event)) error
	// Post queues an event for delivery on the loop. Safe to call from any goroutine
	Post(ev Event) error
	// Terminate makes Run return after the event currently being handled
	Terminate()
	Close() error
}
