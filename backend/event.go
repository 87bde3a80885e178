package backend

import (
	"fmt"
	"time"
)

type EventType int

const (
	EventUnknown = EventType(iota)
	EventDeviceAdded
	EventDeviceDestroyed
	EventOutputAdded
	EventOutputRemoved
	EventOutputFrame
	EventOutputModeChanged
	EventPointerMotion
	EventPointerMotionAbsolute
	EventPointerButton
	EventPointerAxis
	EventPointerFrame
	EventKey
	EventModifiers
	EventSurfaceNew
	EventSurfaceMapped
	EventSurfaceUnmapped
	EventSurfaceDestroyed
	EventDeferred
	EventShutdown
	eventTypeCount
)

var eventTypeNames = [eventTypeCount]string{
	EventUnknown:               "unknown",
	EventDeviceAdded:           "device-added",
	EventDeviceDestroyed:       "device-destroyed",
	EventOutputAdded:           "output-added",
	EventOutputRemoved:         "output-removed",
	EventOutputFrame:           "output-frame",
	EventOutputModeChanged:     "output-mode-changed",
	EventPointerMotion:         "pointer-motion",
	EventPointerMotionAbsolute: "pointer-motion-absolute",
	EventPointerButton:         "pointer-button",
	EventPointerAxis:           "pointer-axis",
	EventPointerFrame:          "pointer-frame",
	EventKey:                   "key",
	EventModifiers:             "modifiers",
	EventSurfaceNew:            "surface-new",
	EventSurfaceMapped:         "surface-mapped",
	EventSurfaceUnmapped:       "surface-unmapped",
	EventSurfaceDestroyed:      "surface-destroyed",
	EventDeferred:              "deferred",
	EventShutdown:              "shutdown",
}

func (t EventType) String() string {
	if t < 0 || t >= eventTypeCount {
		return fmt.Sprintf("event(%d)", int(t))
	}
	return eventTypeNames[t]
}

// Event is anything a backend delivers to the event loop
type Event interface {
	Type() EventType
}

// Owned events belong to a single entity and are routed through that entity's listeners
type Owned interface {
	Event
	Owner() EntityKey
}

type EntityKind int

const (
	EntityDevice = EntityKind(iota + 1)
	EntityOutput
	EntitySurface
)

// EntityKey identifies the owner of a set of listeners
type EntityKey struct {
	Kind EntityKind
	ID   uint64
}

func (k EntityKey) String() string {
	switch k.Kind {
	case EntityDevice:
		return fmt.Sprintf("device#%d", k.ID)
	case EntityOutput:
		return fmt.Sprintf("output#%d", k.ID)
	case EntitySurface:
		return fmt.Sprintf("surface#%d", k.ID)
	default:
		return fmt.Sprintf("entity#%d", k.ID)
	}
}

// Identity handles handed out by a backend. Zero is never a valid handle
type (
	DeviceID  uint64
	OutputID  uint64
	SurfaceID uint64
)

func (id DeviceID) Key() EntityKey  { return EntityKey{Kind: EntityDevice, ID: uint64(id)} }
func (id OutputID) Key() EntityKey  { return EntityKey{Kind: EntityOutput, ID: uint64(id)} }
func (id SurfaceID) Key() EntityKey { return EntityKey{Kind: EntitySurface, ID: uint64(id)} }

type DeviceKind int

const (
	DeviceOther = DeviceKind(iota)
	DeviceKeyboard
	DevicePointer
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceKeyboard:
		return "keyboard"
	case DevicePointer:
		return "pointer"
	default:
		return "other"
	}
}

// A video mode an output supports
type Mode struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Refresh   int  `json:"refresh_mhz"` // millihertz
	Preferred bool `json:"preferred"`
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%d", m.Width, m.Height, m.Refresh)
}

// Keyboard modifier bits. Values match wlr_keyboard_modifier and the X11 modifier masks
type Modifiers uint32

const (
	ModShift = Modifiers(1 << iota)
	ModCaps
	ModCtrl
	ModAlt
	ModMod2
	ModMod3
	ModLogo
	ModMod5
)

// Keysyms as defined by xkbcommon/X11. Only the ones the router cares about
type Keysym uint32

const (
	KeysymTab    = Keysym(0xff09)
	KeysymEscape = Keysym(0xff1b)
	KeysymF1     = Keysym(0xffbe)
)

type KeyState uint32

const (
	KeyReleased = KeyState(iota)
	KeyPressed
)

type ButtonState uint32

const (
	ButtonReleased = ButtonState(iota)
	ButtonPressed
)

type AxisOrientation uint32

const (
	AxisVertical = AxisOrientation(iota)
	AxisHorizontal
)

type AxisSource uint32

const (
	AxisSourceWheel = AxisSource(iota)
	AxisSourceFinger
	AxisSourceContinuous
	AxisSourceWheelTilt
)

// Role is the tagged variant a new surface is admitted with
type Role int

const (
	RoleToplevel = Role(iota)
	RoleLayer
	RoleOverrideRedirect
)

func (r Role) String() string {
	switch r {
	case RoleToplevel:
		return "toplevel"
	case RoleLayer:
		return "layer"
	case RoleOverrideRedirect:
		return "override-redirect"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

type Edge int

const (
	EdgeNone = Edge(iota)
	EdgeTop
	EdgeBottom
	EdgeLeft
	EdgeRight
)

// Placement data of a layer surface (bars, docks, panels)
type LayerInfo struct {
	Output        OutputID // zero means the output the surface appears on is up to the core
	Edge          Edge
	ExclusiveZone int
}

type (
	DeviceAdded struct {
		Device DeviceID
		Kind   DeviceKind
		Name   string
	}

	DeviceDestroyed struct {
		Device DeviceID
	}

	OutputAdded struct {
		Output OutputID
		Name   string
		Modes  []Mode
		// Current size, used when the output has no modes (nested and hosted outputs)
		Width  int
		Height int
	}

	OutputRemoved struct {
		Output OutputID
	}

	OutputFrame struct {
		Output OutputID
		Time   time.Time
	}

	OutputModeChanged struct {
		Output OutputID
		Width  int
		Height int
	}

	// Relative pointer motion
	PointerMotion struct {
		Device DeviceID
		Time   uint32
		DX, DY float64
	}

	// Absolute pointer motion, X and Y normalized to [0,1] over the whole layout
	PointerMotionAbsolute struct {
		Device DeviceID
		Time   uint32
		X, Y   float64
	}

	PointerButton struct {
		Device DeviceID
		Time   uint32
		Button uint32
		State  ButtonState
	}

	PointerAxis struct {
		Device        DeviceID
		Time          uint32
		Source        AxisSource
		Orientation   AxisOrientation
		Delta         float64
		DeltaDiscrete int32
	}

	PointerFrame struct{}

	Key struct {
		Device    DeviceID
		Time      uint32
		Keycode   uint32
		State     KeyState
		Keysyms   []Keysym
		Modifiers Modifiers
	}

	ModifiersChanged struct {
		Device    DeviceID
		Modifiers Modifiers
	}

	SurfaceNew struct {
		Surface SurfaceID
		Role    Role
		AppID   string
		Title   string
		Layer   LayerInfo // only meaningful for RoleLayer
	}

	SurfaceMapped struct {
		Surface SurfaceID
	}

	SurfaceUnmapped struct {
		Surface SurfaceID
	}

	SurfaceDestroyed struct {
		Surface SurfaceID
	}

	// Work scheduled to run on the loop, e.g. timer callbacks
	Deferred struct {
		Fn func()
	}

	Shutdown struct {
		Reason string
	}
)

func (DeviceAdded) Type() EventType           { return EventDeviceAdded }
func (DeviceDestroyed) Type() EventType       { return EventDeviceDestroyed }
func (OutputAdded) Type() EventType           { return EventOutputAdded }
func (OutputRemoved) Type() EventType         { return EventOutputRemoved }
func (OutputFrame) Type() EventType           { return EventOutputFrame }
func (OutputModeChanged) Type() EventType     { return EventOutputModeChanged }
func (PointerMotion) Type() EventType         { return EventPointerMotion }
func (PointerMotionAbsolute) Type() EventType { return EventPointerMotionAbsolute }
func (PointerButton) Type() EventType         { return EventPointerButton }
func (PointerAxis) Type() EventType           { return EventPointerAxis }
func (PointerFrame) Type() EventType          { return EventPointerFrame }
func (Key) Type() EventType                   { return EventKey }
func (ModifiersChanged) Type() EventType      { return EventModifiers }
func (SurfaceNew) Type() EventType            { return EventSurfaceNew }
func (SurfaceMapped) Type() EventType         { return EventSurfaceMapped }
func (SurfaceUnmapped) Type() EventType       { return EventSurfaceUnmapped }
func (SurfaceDestroyed) Type() EventType      { return EventSurfaceDestroyed }
func (Deferred) Type() EventType              { return EventDeferred }
func (Shutdown) Type() EventType              { return EventShutdown }

func (e DeviceDestroyed) Owner() EntityKey   { return e.Device.Key() }
func (e Key) Owner() EntityKey               { return e.Device.Key() }
func (e ModifiersChanged) Owner() EntityKey  { return e.Device.Key() }
func (e OutputRemoved) Owner() EntityKey     { return e.Output.Key() }
func (e OutputFrame) Owner() EntityKey       { return e.Output.Key() }
func (e OutputModeChanged) Owner() EntityKey { return e.Output.Key() }
func (e SurfaceMapped) Owner() EntityKey     { return e.Surface.Key() }
func (e SurfaceUnmapped) Owner() EntityKey   { return e.Surface.Key() }
func (e SurfaceDestroyed) Owner() EntityKey  { return e.Surface.Key() }

// PreferredMode returns the mode flagged as preferred, falling back to the first one
func (e OutputAdded) PreferredMode() (Mode, bool) {
	for _, m := range e.Modes {
		if m.Preferred {
			return m, true
		}
	}
	if len(e.Modes) > 0 {
		return e.Modes[0], true
	}
	return Mode{}, false
}
