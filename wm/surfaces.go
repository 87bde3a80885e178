package wm

import (
	"fmt"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/sirupsen/logrus"
)

// The role gets decided once, here. Everything after dispatches on the stored role
func (server *Server) handleNewSurface(ev backend.SurfaceNew) error {
	logrus.WithFields(logrus.Fields{
		"surface": ev.Surface,
		"role":    ev.Role,
		"app_id":  ev.AppID,
	}).Debugln("New surface inbound")

	switch ev.Role {
	case backend.RoleToplevel, backend.RoleLayer, backend.RoleOverrideRedirect:
	default:
		return fmt.Errorf("surface %d has unknown role %s", ev.Surface, ev.Role)
	}
	w, err := server.windows.Create(ev.Surface, ev.Role, ev.AppID)
	if err != nil {
		return err
	}
	w.Title = ev.Title
	w.Layer = ev.Layer

	key := ev.Surface.Key()
	server.dispatcher.Listen(key, backend.EventSurfaceDestroyed, on(server.handleSurfaceDestroyed))
	// Override redirect surfaces place themselves, we only track them
	if ev.Role != backend.RoleOverrideRedirect {
		server.dispatcher.Listen(key, backend.EventSurfaceMapped, on(server.handleMap))
		server.dispatcher.Listen(key, backend.EventSurfaceUnmapped, on(server.handleUnmap))
	}
	return nil
}

// mapTarget is the output under the pointer, or the center one
func (server *Server) mapTarget() *Output {
	if o := server.outputs.OutputAt(server.seat.X, server.seat.Y); o != nil {
		return o
	}
	return server.outputs.CenterOutput()
}

// New windows steal focus
func (server *Server) handleMap(ev backend.SurfaceMapped) error {
	w, err := server.windows.Get(ev.Surface)
	if err != nil {
		return err
	}
	if w.Role == backend.RoleLayer {
		return server.mapLayer(w)
	}

	target := server.mapTarget()
	if target == nil {
		w.Orphaned = true
		logrus.WithField("window", w.ID).Warnln("Window mapped without any output, holding it back")
		return nil
	}
	if err = server.windows.Map(w.ID, target.ID, target.Usable()); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"window": w.ID,
		"app_id": w.AppID,
		"output": target.Name,
	}).Debugln("Window mapped")
	server.arrange(target)
	return server.focus.Focus(w.ID, server.seat.Modifiers)
}

func (server *Server) handleUnmap(ev backend.SurfaceUnmapped) error {
	w, err := server.windows.Get(ev.Surface)
	if err != nil {
		return err
	}
	if w.Role == backend.RoleLayer {
		return server.unmapLayer(w)
	}
	if !w.Mapped {
		// Held back or orphaned, the client took it down before it got an output
		w.Orphaned = false
		return nil
	}

	focused, _ := server.focus.Focused()
	wasFocused := focused == w.ID
	if wasFocused {
		server.focus.Clear()
	}
	from, err := server.windows.Unmap(w.ID)
	if err != nil {
		return err
	}
	server.arrangeID(from)
	if wasFocused {
		server.refocus(from)
	}
	return nil
}

func (server *Server) handleSurfaceDestroyed(ev backend.SurfaceDestroyed) error {
	w, err := server.windows.Get(ev.Surface)
	if err != nil {
		return err
	}
	if w.Role == backend.RoleLayer && w.Mapped {
		if err = server.unmapLayer(w); err != nil {
			logrus.WithError(err).WithField("surface", w.ID).Debugln("Failed to unmap destroyed layer surface")
		}
	}

	focused, _ := server.focus.Focused()
	wasFocused := focused == w.ID
	if wasFocused {
		server.focus.Clear()
	}
	from, err := server.windows.Destroy(w.ID)
	if err != nil {
		return err
	}
	logrus.WithField("surface", ev.Surface).Debugln("Surface destroyed")
	if from != 0 {
		server.arrangeID(from)
		if wasFocused {
			server.refocus(from)
		}
	}
	return nil
}

// refocus hands focus to the last window of the output, if there is one
func (server *Server) refocus(output backend.OutputID) {
	list := server.windows.List(output)
	if len(list) == 0 {
		return
	}
	if err := server.focus.Focus(list[len(list)-1], server.seat.Modifiers); err != nil {
		logrus.WithError(err).Debugln("Failed to refocus")
	}
}
