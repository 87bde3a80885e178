package wm

import (
	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/geom"
	"github.com/mstarongithub/way2kiosk/tiler"
	"github.com/sirupsen/logrus"
)

// arrange computes and applies the geometry of every window on the output
func (server *Server) arrange(o *Output) {
	ids := server.windows.List(o.ID)
	rects := tiler.Arrange(tiler.Area{Full: o.Geometry, Usable: o.Usable()}, len(ids), server.layout)
	for i, id := range ids {
		w, err := server.windows.Get(id)
		if err != nil {
			continue
		}
		w.Geometry = rects[i]
		if err = server.backend.SetWindowGeometry(id, rects[i]); err != nil {
			logrus.WithError(err).WithField("window", id).Warnln("Failed to set window geometry")
		}
	}
	o.Layout = LayoutState{
		Policy:     server.layout.Policy,
		Windows:    ids,
		Rects:      rects,
		Generation: o.Layout.Generation + 1,
	}
	logrus.WithFields(logrus.Fields{
		"output":  o.Name,
		"layout":  server.layout.Policy,
		"windows": len(ids),
	}).Debugln("Arranged output")
}

func (server *Server) arrangeID(id backend.OutputID) {
	o, err := server.outputs.Get(id)
	if err != nil {
		logrus.WithError(err).Debugln("Not arranging gone output")
		return
	}
	server.arrange(o)
}

func (server *Server) arrangeAll() {
	for _, o := range server.outputs.List() {
		server.arrange(o)
	}
}

// layerPlacement returns where a layer surface goes on the output and what it reserves there.
// before is what other layer surfaces already claimed, so bars on one edge stack up
func layerPlacement(o *Output, info backend.LayerInfo, before geom.Insets) (geom.Rect, geom.Insets) {
	g := o.Geometry
	zone := info.ExclusiveZone
	if zone <= 0 {
		return g, geom.Insets{}
	}
	switch info.Edge {
	case backend.EdgeTop:
		return geom.Rect{X: g.X, Y: g.Y + before.Top, Width: g.Width, Height: zone}, geom.Insets{Top: zone}
	case backend.EdgeBottom:
		return geom.Rect{X: g.X, Y: g.Bottom() - before.Bottom - zone, Width: g.Width, Height: zone}, geom.Insets{Bottom: zone}
	case backend.EdgeLeft:
		return geom.Rect{X: g.X + before.Left, Y: g.Y, Width: zone, Height: g.Height}, geom.Insets{Left: zone}
	case backend.EdgeRight:
		return geom.Rect{X: g.Right() - before.Right - zone, Y: g.Y, Width: zone, Height: g.Height}, geom.Insets{Right: zone}
	default:
		return g, geom.Insets{}
	}
}

// placeLayers recomputes every layer surface of the output in id order, together with the reservations
func (server *Server) placeLayers(o *Output) {
	clear(o.reservations)
	for _, w := range server.windows.All() {
		if w.Role != backend.RoleLayer || !w.Mapped || w.Output != o.ID {
			continue
		}
		rect, in := layerPlacement(o, w.Layer, o.Reserved())
		if err := server.outputs.Reserve(o.ID, w.ID, in); err != nil {
			logrus.WithError(err).Warnln("Failed to reserve space")
		}
		w.Geometry = rect
		if err := server.backend.SetWindowGeometry(w.ID, rect); err != nil {
			logrus.WithError(err).WithField("surface", w.ID).Warnln("Failed to place layer surface")
		}
	}
}

func (server *Server) mapLayer(w *Window) error {
	var target *Output
	if w.Layer.Output != 0 {
		target, _ = server.outputs.Get(w.Layer.Output)
	}
	if target == nil {
		target = server.mapTarget()
	}
	if target == nil {
		logrus.WithField("surface", w.ID).Warnln("Layer surface mapped without any output, ignoring")
		return nil
	}
	if err := server.windows.Place(w.ID, target.ID, target.Geometry); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"surface": w.ID,
		"output":  target.Name,
		"edge":    w.Layer.Edge,
		"zone":    w.Layer.ExclusiveZone,
	}).Debugln("Layer surface mapped")
	server.placeLayers(target)
	server.arrange(target)
	return nil
}

func (server *Server) unmapLayer(w *Window) error {
	if !w.Mapped {
		return nil
	}
	w.Mapped = false
	w.Output = 0
	if o := server.outputs.Release(w.ID); o != nil {
		server.placeLayers(o)
		server.arrange(o)
	}
	return nil
}
