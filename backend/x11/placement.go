package x11

import (
	"github.com/mstarongithub/way2kiosk/common/geom"
)

// placement relates where the core put an output to where the X server has it
type placement struct {
	core   geom.Rect
	screen geom.Rect
}

// corePlacements mirrors the core's layout: outputs side by side at y = 0
// in the order they were announced. Caller holds the lock
func corePlacements(order []string, monitors []Monitor) []placement {
	byName := make(map[string]Monitor, len(monitors))
	for _, m := range monitors {
		byName[m.Name] = m
	}
	places := make([]placement, 0, len(order))
	x := 0
	for _, name := range order {
		m, ok := byName[name]
		if !ok {
			continue
		}
		places = append(places, placement{
			core:   geom.Rect{X: x, Width: m.Width, Height: m.Height},
			screen: geom.Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		})
		x += m.Width
	}
	return places
}

// toScreen moves a rect from core coordinates onto the monitor it belongs to.
// The monitor is picked by the rect's center, then by its origin
func toScreen(places []placement, rect geom.Rect) geom.Rect {
	cx := float64(rect.X) + float64(rect.Width)/2
	cy := float64(rect.Y) + float64(rect.Height)/2
	for _, points := range [][2]float64{{cx, cy}, {float64(rect.X), float64(rect.Y)}} {
		for _, p := range places {
			if p.core.Contains(points[0], points[1]) {
				rect.X += p.screen.X - p.core.X
				rect.Y += p.screen.Y - p.core.Y
				return rect
			}
		}
	}
	return rect
}

func (b *Backend) toScreen(rect geom.Rect) geom.Rect {
	b.lock.Lock()
	defer b.lock.Unlock()
	return toScreen(corePlacements(b.order, b.monitors), rect)
}
