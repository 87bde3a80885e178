package x11

import (
	"testing"

	"github.com/mstarongithub/way2kiosk/common/geom"
	"github.com/stretchr/testify/assert"
)

func TestToScreenVerticalStack(t *testing.T) {
	monitors := []Monitor{
		{Name: "DP-1", Width: 1920, Height: 1080},
		{Name: "DP-2", Y: 1080, Width: 1920, Height: 1080},
	}
	places := corePlacements([]string{"DP-1", "DP-2"}, monitors)

	// Second output sits right of the first in the core, below it on screen
	got := toScreen(places, geom.Rect{X: 1930, Y: 10, Width: 1900, Height: 1060})
	assert.Equal(t, geom.Rect{X: 10, Y: 1090, Width: 1900, Height: 1060}, got)

	got = toScreen(places, geom.Rect{X: 10, Y: 10, Width: 100, Height: 100})
	assert.Equal(t, geom.Rect{X: 10, Y: 10, Width: 100, Height: 100}, got)
}

func TestToScreenPluggedInOnTheLeft(t *testing.T) {
	// HDMI-1 was announced second but X puts it left of DP-1
	monitors := []Monitor{
		{Name: "HDMI-1", Width: 1280, Height: 1024},
		{Name: "DP-1", X: 1280, Width: 1920, Height: 1080},
	}
	places := corePlacements([]string{"DP-1", "HDMI-1"}, monitors)

	got := toScreen(places, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080})
	assert.Equal(t, 1280, got.X)
	got = toScreen(places, geom.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024})
	assert.Equal(t, 0, got.X)
}

func TestToScreenAfterRemovingFirst(t *testing.T) {
	monitors := []Monitor{{Name: "DP-2", X: 1920, Width: 1920, Height: 1080}}
	places := corePlacements([]string{"DP-2"}, monitors)

	// The core re-flows the survivor to x = 0, X keeps it where it was
	got := toScreen(places, geom.Rect{X: 10, Y: 10, Width: 1900, Height: 1060})
	assert.Equal(t, 1930, got.X)
}

func TestToScreenOutsideEveryOutput(t *testing.T) {
	places := corePlacements([]string{"DP-1"}, []Monitor{{Name: "DP-1", X: 100, Width: 800, Height: 600}})
	rect := geom.Rect{X: 5000, Y: 5000, Width: 10, Height: 10}
	assert.Equal(t, rect, toScreen(places, rect))
}
