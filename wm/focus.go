package wm

import (
	"errors"
	"fmt"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/sirupsen/logrus"
)

var ErrNotFocusable = errors.New("window can't be focused")

// FocusManager holds the single focused window of the seat. Zero means unfocused
type FocusManager struct {
	cmds    backend.Commands
	windows *WindowRegistry
	outputs *OutputRegistry
	focused backend.SurfaceID
}

func NewFocusManager(cmds backend.Commands, windows *WindowRegistry, outputs *OutputRegistry) *FocusManager {
	return &FocusManager{
		cmds:    cmds,
		windows: windows,
		outputs: outputs,
	}
}

// Focused returns the focused window, if any
func (f *FocusManager) Focused() (backend.SurfaceID, bool) {
	return f.focused, f.focused != 0
}

// Focus moves keyboard focus to the window.
// Focusing the focused window again does nothing.
// Only mapped toplevels on an existing output can be focused
func (f *FocusManager) Focus(id backend.SurfaceID, mods backend.Modifiers) error {
	if id == f.focused {
		return nil
	}
	w, err := f.windows.Get(id)
	if err != nil {
		return err
	}
	if !w.Managed() || !w.Mapped {
		return fmt.Errorf("%w: %d is not a mapped toplevel", ErrNotFocusable, id)
	}
	if _, err = f.outputs.Get(w.Output); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFocusable, err)
	}

	if prev := f.focused; prev != 0 {
		// Lets the client know it lost focus so it can e.g. stop drawing a caret
		if err = f.cmds.SetWindowActivated(prev, false); err != nil {
			logrus.WithError(err).WithField("window", prev).Debugln("Failed to deactivate previous window")
		}
	}
	f.focused = id
	if err = f.cmds.SetWindowActivated(id, true); err != nil {
		return fmt.Errorf("activate window %d: %w", id, err)
	}
	if err = f.cmds.NotifyKeyboardEnter(id, mods); err != nil {
		return fmt.Errorf("keyboard enter on window %d: %w", id, err)
	}
	logrus.WithField("window", id).Debugln("Focused window")
	return nil
}

// Clear drops focus without telling anyone. The next Focus call sends the enter
func (f *FocusManager) Clear() {
	if f.focused != 0 {
		logrus.WithField("window", f.focused).Debugln("Focus cleared")
	}
	f.focused = 0
}
