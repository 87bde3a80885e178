package wm

import (
	"slices"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/sirupsen/logrus"
)

func (server *Server) handleCursorMotion(ev backend.PointerMotion) error {
	server.moveCursor(server.seat.X+ev.DX, server.seat.Y+ev.DY, ev.Time)
	return nil
}

// Absolute motion comes normalized to 0..1 over the whole layout,
// e.g. when running nested and the pointer enters the window from any edge
func (server *Server) handleCursorMotionAbsolute(ev backend.PointerMotionAbsolute) error {
	bounds := server.outputs.Bounds()
	x := float64(bounds.X) + ev.X*float64(bounds.Width)
	y := float64(bounds.Y) + ev.Y*float64(bounds.Height)
	server.moveCursor(x, y, ev.Time)
	return nil
}

// moveCursor never changes focus, the focused window just gets told where the pointer is
func (server *Server) moveCursor(x, y float64, time uint32) {
	if bounds := server.outputs.Bounds(); !bounds.Empty() {
		x, y = bounds.Clamp(x, y)
	}
	server.seat.X, server.seat.Y = x, y
	server.backend.WarpCursor(x, y)

	id, ok := server.focus.Focused()
	if !ok {
		return
	}
	w, err := server.windows.Get(id)
	if err != nil {
		return
	}
	sx := x - float64(w.Geometry.X)
	sy := y - float64(w.Geometry.Y)
	if err = server.backend.NotifyPointerMotion(id, time, sx, sy); err != nil {
		logrus.WithError(err).WithField("window", id).Debugln("Failed to forward motion")
	}
}

// clampCursor pulls the pointer back inside the layout after outputs changed
func (server *Server) clampCursor() {
	bounds := server.outputs.Bounds()
	if bounds.Empty() {
		return
	}
	x, y := bounds.Clamp(server.seat.X, server.seat.Y)
	if x != server.seat.X || y != server.seat.Y {
		server.seat.X, server.seat.Y = x, y
		server.backend.WarpCursor(x, y)
	}
}

func (server *Server) handleCursorButton(ev backend.PointerButton) error {
	if id, ok := server.focus.Focused(); ok {
		return server.backend.NotifyPointerButton(id, ev.Time, ev.Button, ev.State)
	}
	return nil
}

func (server *Server) handleCursorAxis(ev backend.PointerAxis) error {
	if id, ok := server.focus.Focused(); ok {
		return server.backend.NotifyPointerAxis(id, ev)
	}
	return nil
}

// Frames group several pointer events, e.g. two axis events at the same time
func (server *Server) handleCursorFrame(_ backend.PointerFrame) error {
	if id, ok := server.focus.Focused(); ok {
		server.backend.NotifyPointerFrame(id)
	}
	return nil
}

func (server *Server) handleKey(ev backend.Key) error {
	// With alt held down, a pressed key might be one of ours
	if ev.Modifiers&backend.ModAlt != 0 && ev.State == backend.KeyPressed {
		handled := false
		for _, sym := range ev.Keysyms {
			if server.handleKeyBinding(sym) {
				handled = true
			}
		}
		if handled {
			return nil
		}
	}

	server.bindKeyboard(ev.Device)
	if id, ok := server.focus.Focused(); ok {
		return server.backend.NotifyKey(id, ev.Time, ev.Keycode, ev.State)
	}
	return nil
}

func (server *Server) handleModifiers(ev backend.ModifiersChanged) error {
	server.bindKeyboard(ev.Device)
	server.seat.Modifiers = ev.Modifiers
	if id, ok := server.focus.Focused(); ok {
		return server.backend.NotifyModifiers(id, ev.Modifiers)
	}
	return nil
}

// bindKeyboard makes the keyboard that was used last the one of the seat
func (server *Server) bindKeyboard(dev backend.DeviceID) {
	if server.seat.Keyboard == dev {
		return
	}
	if err := server.backend.SetKeyboard(dev); err != nil {
		logrus.WithError(err).WithField("device", dev).Warnln("Failed to set seat keyboard")
		return
	}
	server.seat.Keyboard = dev
}

// Assumes alt is held down
func (server *Server) handleKeyBinding(sym backend.Keysym) bool {
	switch sym {
	case backend.KeysymEscape:
		server.Terminate()
	case backend.KeysymF1:
		if err := server.CycleFocus(); err != nil {
			logrus.WithError(err).Debugln("Failed to cycle focus")
		}
	default:
		return false
	}
	return true
}

// CycleFocus focuses the window after the focused one on the same output, wrapping around.
// Without focus the first window of the center output gets it
func (server *Server) CycleFocus() error {
	var list []backend.SurfaceID
	id, focused := server.focus.Focused()
	if focused {
		w, err := server.windows.Get(id)
		if err != nil {
			return err
		}
		list = server.windows.List(w.Output)
	} else if o := server.outputs.CenterOutput(); o != nil {
		list = server.windows.List(o.ID)
	}
	if len(list) == 0 {
		return nil
	}
	next := list[0]
	if focused {
		next = list[(slices.Index(list, id)+1)%len(list)]
	}
	return server.focus.Focus(next, server.seat.Modifiers)
}
