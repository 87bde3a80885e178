package x11

import (
	"slices"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/sirupsen/logrus"
)

// refreshMonitors queries randr and queues whatever changed since the last time
func (b *Backend) refreshMonitors() error {
	current, err := b.queryMonitors()
	if err != nil {
		return err
	}
	// The core places outputs left to right in the order they appear
	slices.SortStableFunc(current, func(x, y Monitor) int {
		if x.X != y.X {
			return x.X - y.X
		}
		return x.Y - y.Y
	})

	change := diffMonitors(b.monitors, current)
	events := []backend.Event{}
	b.lock.Lock()
	for _, name := range change.removed {
		events = append(events, backend.OutputRemoved{Output: b.outputs[name]})
		delete(b.outputs, name)
		b.order = slices.DeleteFunc(b.order, func(n string) bool { return n == name })
	}
	for _, m := range change.added {
		b.nextOut++
		b.outputs[m.Name] = b.nextOut
		b.order = append(b.order, m.Name)
		events = append(events, backend.OutputAdded{
			Output: b.nextOut,
			Name:   m.Name,
			Modes:  m.Modes,
			Width:  m.Width,
			Height: m.Height,
		})
	}
	for _, m := range change.resized {
		events = append(events, backend.OutputModeChanged{Output: b.outputs[m.Name], Width: m.Width, Height: m.Height})
	}
	b.monitors = current
	b.lock.Unlock()

	for _, ev := range events {
		b.send(ev)
	}
	return nil
}

func (b *Backend) handleRootConfigure(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
	if ev.Window != b.root {
		return
	}
	logrus.WithFields(logrus.Fields{
		"width":  ev.Width,
		"height": ev.Height,
	}).Debugln("Root window changed, re-reading monitors")
	if err := b.refreshMonitors(); err != nil {
		logrus.WithError(err).Warnln("Failed to re-read monitors")
	}
}

// adoptExisting manages the windows that were mapped before we started
func (b *Backend) adoptExisting() {
	tree, err := xproto.QueryTree(b.xu.Conn(), b.root).Reply()
	if err != nil {
		logrus.WithError(err).Warnln("Failed to list existing windows")
		return
	}
	for _, win := range tree.Children {
		attr, err := xproto.GetWindowAttributes(b.xu.Conn(), win).Reply()
		if err != nil || attr.MapState != xproto.MapStateViewable {
			continue
		}
		if attr.OverrideRedirect {
			b.trackOverride(win)
			continue
		}
		b.manage(win)
		b.send(backend.SurfaceMapped{Surface: backend.SurfaceID(win)})
	}
}

// manage starts tracking a client window and announces it
func (b *Backend) manage(win xproto.Window) {
	role, layer := b.classify(win)
	b.known[win] = role

	if err := xwindow.New(b.xu, win).Listen(xproto.EventMaskStructureNotify); err != nil {
		logrus.WithError(err).WithField("window", win).Warnln("Failed to listen on window")
	}
	xevent.UnmapNotifyFun(b.handleUnmapNotify).Connect(b.xu, win)
	xevent.DestroyNotifyFun(b.handleDestroyNotify).Connect(b.xu, win)

	b.send(backend.SurfaceNew{
		Surface: backend.SurfaceID(win),
		Role:    role,
		AppID:   b.appID(win),
		Title:   b.title(win),
		Layer:   layer,
	})
}

// Override redirect windows place themselves, they're only tracked
func (b *Backend) trackOverride(win xproto.Window) {
	if _, ok := b.known[win]; ok {
		return
	}
	b.known[win] = backend.RoleOverrideRedirect
	if err := xwindow.New(b.xu, win).Listen(xproto.EventMaskStructureNotify); err != nil {
		logrus.WithError(err).WithField("window", win).Debugln("Failed to listen on override redirect window")
	}
	xevent.DestroyNotifyFun(b.handleDestroyNotify).Connect(b.xu, win)
	b.send(backend.SurfaceNew{Surface: backend.SurfaceID(win), Role: backend.RoleOverrideRedirect})
}

func (b *Backend) handleCreateNotify(xu *xgbutil.XUtil, ev xevent.CreateNotifyEvent) {
	if ev.OverrideRedirect {
		b.trackOverride(ev.Window)
	}
}

func (b *Backend) handleMapRequest(xu *xgbutil.XUtil, ev xevent.MapRequestEvent) {
	win := ev.Window
	if _, ok := b.known[win]; !ok {
		b.manage(win)
	}
	if err := xproto.MapWindowChecked(xu.Conn(), win).Check(); err != nil {
		logrus.WithError(err).WithField("window", win).Warnln("Failed to map window")
		return
	}
	if err := icccm.WmStateSet(xu, win, &icccm.WmState{State: icccm.StateNormal}); err != nil {
		logrus.WithError(err).WithField("window", win).Debugln("Failed to set WM_STATE")
	}
	b.send(backend.SurfaceMapped{Surface: backend.SurfaceID(win)})
}

// With substructure notify on the root, each unmap and destroy shows up twice.
// Only the copy reported to the window itself counts
func (b *Backend) handleUnmapNotify(xu *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
	if ev.Event != ev.Window {
		return
	}
	b.send(backend.SurfaceUnmapped{Surface: backend.SurfaceID(ev.Window)})
}

func (b *Backend) handleDestroyNotify(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
	if ev.Event != ev.Window {
		return
	}
	delete(b.known, ev.Window)
	xevent.Detach(xu, ev.Window)
	b.send(backend.SurfaceDestroyed{Surface: backend.SurfaceID(ev.Window)})
}

// Managed toplevels get the geometry the core decided, everything else gets what it asked for
func (b *Backend) handleConfigureRequest(xu *xgbutil.XUtil, ev xevent.ConfigureRequestEvent) {
	if role, ok := b.known[ev.Window]; ok && role == backend.RoleToplevel {
		b.sendConfigureNotify(ev.Window)
		return
	}
	mask, values := configureValues(ev.ConfigureRequestEvent)
	if mask == 0 {
		return
	}
	if err := xproto.ConfigureWindowChecked(xu.Conn(), ev.Window, mask, values).Check(); err != nil {
		logrus.WithError(err).WithField("window", ev.Window).Debugln("Failed to configure window")
	}
}

// sendConfigureNotify tells a client its geometry did not change the way it asked
func (b *Backend) sendConfigureNotify(win xproto.Window) {
	g, err := xproto.GetGeometry(b.xu.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return
	}
	ev := xproto.ConfigureNotifyEvent{
		Event:            win,
		Window:           win,
		AboveSibling:     xproto.WindowNone,
		X:                g.X,
		Y:                g.Y,
		Width:            g.Width,
		Height:           g.Height,
		BorderWidth:      g.BorderWidth,
		OverrideRedirect: false,
	}
	xproto.SendEvent(b.xu.Conn(), false, win, xproto.EventMaskStructureNotify, string(ev.Bytes()))
}

// configureValues builds the value list of a ConfigureWindow request, in the order X wants them
func configureValues(ev *xproto.ConfigureRequestEvent) (uint16, []uint32) {
	var mask uint16
	var values []uint32
	add := func(bit uint16, value uint32) {
		if ev.ValueMask&bit != 0 {
			mask |= bit
			values = append(values, value)
		}
	}
	add(xproto.ConfigWindowX, uint32(int32(ev.X)))
	add(xproto.ConfigWindowY, uint32(int32(ev.Y)))
	add(xproto.ConfigWindowWidth, uint32(ev.Width))
	add(xproto.ConfigWindowHeight, uint32(ev.Height))
	add(xproto.ConfigWindowBorderWidth, uint32(ev.BorderWidth))
	add(xproto.ConfigWindowSibling, uint32(ev.Sibling))
	add(xproto.ConfigWindowStackMode, uint32(ev.StackMode))
	return mask, values
}

// classify docks as layer surfaces, everything else is a toplevel
func (b *Backend) classify(win xproto.Window) (backend.Role, backend.LayerInfo) {
	types, err := ewmh.WmWindowTypeGet(b.xu, win)
	if err != nil || !slices.Contains(types, "_NET_WM_WINDOW_TYPE_DOCK") {
		return backend.RoleToplevel, backend.LayerInfo{}
	}
	if sp, err := ewmh.WmStrutPartialGet(b.xu, win); err == nil {
		return backend.RoleLayer, strutLayer(sp.Left, sp.Right, sp.Top, sp.Bottom)
	}
	// Some docks only set _NET_WM_STRUT (no partial ranges)
	if s, err := ewmh.WmStrutGet(b.xu, win); err == nil {
		return backend.RoleLayer, strutLayer(s.Left, s.Right, s.Top, s.Bottom)
	}
	return backend.RoleLayer, backend.LayerInfo{}
}

// strutLayer picks the edge with the biggest strut
func strutLayer(left, right, top, bottom uint) backend.LayerInfo {
	info := backend.LayerInfo{}
	for _, s := range []struct {
		edge backend.Edge
		size uint
	}{
		{backend.EdgeTop, top},
		{backend.EdgeBottom, bottom},
		{backend.EdgeLeft, left},
		{backend.EdgeRight, right},
	} {
		if int(s.size) > info.ExclusiveZone {
			info = backend.LayerInfo{Edge: s.edge, ExclusiveZone: int(s.size)}
		}
	}
	return info
}

func (b *Backend) appID(win xproto.Window) string {
	class, err := icccm.WmClassGet(b.xu, win)
	if err != nil {
		return ""
	}
	return class.Class
}

func (b *Backend) title(win xproto.Window) string {
	name, err := ewmh.WmNameGet(b.xu, win)
	if name == "" || err != nil {
		name, _ = icccm.WmNameGet(b.xu, win)
	}
	return name
}
