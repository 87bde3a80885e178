package wlr

import (
	"fmt"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/geom"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
)

// Raised when xdg-shell receives a new surface from a client, either a toplevel or a popup
func (b *Backend) handleNewXDGSurface(xdgSurface wlroots.XDGSurface) {
	logrus.WithField("surface", xdgSurface).Debugln("New surface inbound")

	// Popups hang off their parent's scene tree and never concern the core
	if xdgSurface.Role() == wlroots.XDGSurfaceRolePopup {
		parent := xdgSurface.Popup().Parent()
		if parent.Nil() {
			logrus.WithField("surface", xdgSurface).Warnln("Popup without a parent, ignoring")
			return
		}
		xdgSurface.SetData(parent.XDGSurface().SceneTree().NewXDGSurface(xdgSurface))
		return
	}
	if xdgSurface.Role() != wlroots.XDGSurfaceRoleTopLevel {
		logrus.WithFields(logrus.Fields{
			"surface": xdgSurface,
			"role":    xdgSurface.Role(),
		}).Warnln("Surface without a known role, ignoring")
		return
	}

	xdgSurface.SetData(b.scene.Tree().NewXDGSurface(xdgSurface.TopLevel().Base()))

	id := backend.SurfaceID(b.ids.alloc())
	b.ids.surfaces.add(uint64(id), xdgSurface)
	xdgSurface.OnMap(b.handleMap)
	xdgSurface.OnUnmap(b.handleUnmap)
	xdgSurface.OnDestroy(b.handleSurfaceDestroy)

	toplevel := xdgSurface.TopLevel()
	b.emit(backend.SurfaceNew{
		Surface: id,
		Role:    backend.RoleToplevel,
		AppID:   toplevel.AppID(),
		Title:   toplevel.Title(),
	})
}

func (b *Backend) handleMap(xdgSurface wlroots.XDGSurface) {
	if id, ok := b.ids.surfaces.id(xdgSurface); ok {
		b.emit(backend.SurfaceMapped{Surface: backend.SurfaceID(id)})
	}
}

func (b *Backend) handleUnmap(xdgSurface wlroots.XDGSurface) {
	if id, ok := b.ids.surfaces.id(xdgSurface); ok {
		b.emit(backend.SurfaceUnmapped{Surface: backend.SurfaceID(id)})
	}
}

func (b *Backend) handleSurfaceDestroy(xdgSurface wlroots.XDGSurface) {
	if id, ok := b.ids.surfaces.remove(xdgSurface); ok {
		b.emit(backend.SurfaceDestroyed{Surface: backend.SurfaceID(id)})
	}
}

func (b *Backend) surface(id backend.SurfaceID) (wlroots.XDGSurface, error) {
	xdgSurface, ok := b.ids.surfaces.get(uint64(id))
	if !ok {
		return xdgSurface, fmt.Errorf("%w: surface %d", backend.ErrUnknownHandle, id)
	}
	return xdgSurface, nil
}

func (b *Backend) SetWindowGeometry(id backend.SurfaceID, rect geom.Rect) error {
	xdgSurface, err := b.surface(id)
	if err != nil {
		return err
	}
	xdgSurface.SceneTree().Node().SetPosition(float64(rect.X), float64(rect.Y))
	xdgSurface.TopLevelSetSize(uint32(rect.Width), uint32(rect.Height))
	return nil
}

// Activation lets the client repaint accordingly, e.g. stop displaying a caret.
// The activated window moves to the front
func (b *Backend) SetWindowActivated(id backend.SurfaceID, activated bool) error {
	xdgSurface, err := b.surface(id)
	if err != nil {
		return err
	}
	if activated {
		xdgSurface.SceneTree().Node().RaiseToTop()
	}
	xdgSurface.TopLevel().SetActivated(activated)
	return nil
}
