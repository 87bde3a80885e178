package wlr

import (
	"fmt"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"github.com/swaywm/go-wlroots/xkb"
)

func (b *Backend) handleNewInput(dev wlroots.InputDevice) {
	kind := backend.DeviceOther
	switch dev.Type() {
	case wlroots.InputDeviceTypePointer:
		// All pointer handling is proxied through wlr_cursor
		b.cursor.AttachInputDevice(dev)
		kind = backend.DevicePointer
	case wlroots.InputDeviceTypeKeyboard:
		b.setupKeyboard(dev)
		kind = backend.DeviceKeyboard
	}

	id := backend.DeviceID(b.ids.alloc())
	b.ids.devices.add(uint64(id), dev)
	dev.OnDestroy(b.handleDeviceDestroy)
	b.emit(backend.DeviceAdded{Device: id, Kind: kind, Name: kind.String()})
}

func (b *Backend) setupKeyboard(dev wlroots.InputDevice) {
	keyboard := dev.Keyboard()

	// Keymap with the defaults, e.g. layout = "us"
	context := xkb.NewContext(xkb.KeySymFlagNoFlags)
	keymap := context.KeyMap()
	keyboard.SetKeymap(keymap)
	keymap.Destroy()
	context.Destroy()
	keyboard.SetRepeatInfo(25, 600)

	keyboard.OnModifiers(b.handleModifiers)
	keyboard.OnKey(b.handleKey)
}

func (b *Backend) handleDeviceDestroy(dev wlroots.InputDevice) {
	id, ok := b.ids.devices.remove(dev)
	if !ok {
		return
	}
	b.emit(backend.DeviceDestroyed{Device: backend.DeviceID(id)})
}

func (b *Backend) deviceID(dev wlroots.InputDevice) backend.DeviceID {
	id, _ := b.ids.devices.id(dev)
	return backend.DeviceID(id)
}

func (b *Backend) handleKey(keyboard wlroots.Keyboard, time uint32, keyCode uint32, updateState bool, state wlroots.KeyState) {
	// libinput keycode to xkbcommon
	syms := keyboard.XKBState().Syms(xkb.KeyCode(keyCode + 8))
	keysyms := make([]backend.Keysym, 0, len(syms))
	for _, sym := range syms {
		keysyms = append(keysyms, backend.Keysym(sym))
	}
	b.emit(backend.Key{
		Device:    b.deviceID(keyboard.Base()),
		Time:      time,
		Keycode:   keyCode,
		State:     backend.KeyState(state),
		Keysyms:   keysyms,
		Modifiers: backend.Modifiers(keyboard.Modifiers()),
	})
}

func (b *Backend) handleModifiers(keyboard wlroots.Keyboard) {
	b.emit(backend.ModifiersChanged{
		Device:    b.deviceID(keyboard.Base()),
		Modifiers: backend.Modifiers(keyboard.Modifiers()),
	})
}

// Cursor events come in from whatever pointer device produced them

func (b *Backend) handleCursorMotion(dev wlroots.InputDevice, time uint32, dx float64, dy float64) {
	b.emit(backend.PointerMotion{Device: b.deviceID(dev), Time: time, DX: dx, DY: dy})
}

func (b *Backend) handleCursorMotionAbsolute(dev wlroots.InputDevice, time uint32, x float64, y float64) {
	b.emit(backend.PointerMotionAbsolute{Device: b.deviceID(dev), Time: time, X: x, Y: y})
}

func (b *Backend) handleCursorButton(dev wlroots.InputDevice, time uint32, button uint32, state wlroots.ButtonState) {
	b.emit(backend.PointerButton{Device: b.deviceID(dev), Time: time, Button: button, State: backend.ButtonState(state)})
}

func (b *Backend) handleCursorAxis(dev wlroots.InputDevice, time uint32, source wlroots.AxisSource, orientation wlroots.AxisOrientation, delta float64, deltaDiscrete int32) {
	b.emit(backend.PointerAxis{
		Device:        b.deviceID(dev),
		Time:          time,
		Source:        backend.AxisSource(source),
		Orientation:   backend.AxisOrientation(orientation),
		Delta:         delta,
		DeltaDiscrete: deltaDiscrete,
	})
}

func (b *Backend) handleCursorFrame() {
	b.emit(backend.PointerFrame{})
}

// Raised by the seat when a client provides a cursor image
func (b *Backend) handleSetCursorRequest(client wlroots.SeatClient, surface wlroots.Surface, _ uint32, hotspotX int32, hotspotY int32) {
	// Any client can send this, only the one with pointer focus gets its way
	if b.seat.PointerState().FocusedClient() == client {
		b.cursor.SetSurface(surface, hotspotX, hotspotY)
	}
}

// WarpCursor moves the cursor image to layout coordinates the core already clamped
func (b *Backend) WarpCursor(x, y float64) {
	b.cursor.Move(wlroots.InputDevice{}, x-b.cursor.X(), y-b.cursor.Y())
	if b.seat.PointerState().FocusedSurface().Nil() {
		b.cursor.SetXCursor(b.cursorMgr, "default")
	}
}

func (b *Backend) SetKeyboard(id backend.DeviceID) error {
	dev, ok := b.ids.devices.get(uint64(id))
	if !ok || dev.Type() != wlroots.InputDeviceTypeKeyboard {
		return fmt.Errorf("%w: keyboard %d", backend.ErrUnknownHandle, id)
	}
	b.seat.SetKeyboard(dev)
	return nil
}

func (b *Backend) SetCapabilities(caps backend.Capabilities) {
	seatCaps := wlroots.SeatCapabilityPointer
	if caps&backend.CapPointer == 0 {
		seatCaps &^= wlroots.SeatCapabilityPointer
	}
	if caps&backend.CapKeyboard != 0 {
		seatCaps |= wlroots.SeatCapabilityKeyboard
	}
	logrus.WithField("capabilities", caps).Debugln("Seat capabilities changed")
	b.seat.SetCapabilities(seatCaps)
}

// Forwarding to a surface through the seat. wlroots skips duplicate enter events

func (b *Backend) NotifyKeyboardEnter(id backend.SurfaceID, mods backend.Modifiers) error {
	xdgSurface, err := b.surface(id)
	if err != nil {
		return err
	}
	b.seat.NotifyKeyboardEnter(xdgSurface.Surface(), b.seat.Keyboard())
	return nil
}

func (b *Backend) NotifyPointerMotion(id backend.SurfaceID, time uint32, sx, sy float64) error {
	xdgSurface, err := b.surface(id)
	if err != nil {
		b.seat.ClearPointerFocus()
		return err
	}
	b.seat.NotifyPointerEnter(xdgSurface.Surface(), sx, sy)
	b.seat.NotifyPointerMotion(time, sx, sy)
	return nil
}

func (b *Backend) NotifyPointerButton(id backend.SurfaceID, time uint32, button uint32, state backend.ButtonState) error {
	if _, err := b.surface(id); err != nil {
		return err
	}
	b.seat.NotifyPointerButton(time, button, wlroots.ButtonState(state))
	return nil
}

func (b *Backend) NotifyPointerAxis(id backend.SurfaceID, ev backend.PointerAxis) error {
	if _, err := b.surface(id); err != nil {
		return err
	}
	b.seat.NotifyPointerAxis(ev.Time, wlroots.AxisOrientation(ev.Orientation), ev.Delta, ev.DeltaDiscrete, wlroots.AxisSource(ev.Source))
	return nil
}

func (b *Backend) NotifyPointerFrame(id backend.SurfaceID) {
	b.seat.NotifyPointerFrame()
}

func (b *Backend) NotifyKey(id backend.SurfaceID, time uint32, keycode uint32, state backend.KeyState) error {
	if _, err := b.surface(id); err != nil {
		return err
	}
	b.seat.NotifyKeyboardKey(time, keycode, wlroots.KeyState(state))
	return nil
}

func (b *Backend) NotifyModifiers(id backend.SurfaceID, mods backend.Modifiers) error {
	if _, err := b.surface(id); err != nil {
		return err
	}
	b.seat.NotifyKeyboardModifiers(b.seat.Keyboard())
	return nil
}
