package wm

import (
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/geom"
	"github.com/mstarongithub/way2kiosk/common/ipc"
	"github.com/mstarongithub/way2kiosk/tiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputsPlacedLeftToRight(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1280, 1024)
	h.send(backend.OutputAdded{Output: 3, Name: "WL-1", Width: 800, Height: 600})

	outputs := h.server.Outputs().List()
	require.Len(t, outputs, 3)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, outputs[0].Geometry)
	assert.Equal(t, geom.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}, outputs[1].Geometry)
	assert.Equal(t, geom.Rect{X: 3200, Y: 0, Width: 800, Height: 600}, outputs[2].Geometry)
	assert.Equal(t, []backend.OutputID{1, 2, 3}, h.fake.enabled)
	assert.Equal(t, 1920, h.fake.modes[1].Width)
	_, hasMode := h.fake.modes[3]
	assert.False(t, hasMode, "output without modes got a mode set")
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 4000, Height: 1080}, h.server.Outputs().Bounds())
}

func TestOutputNotRegisteredWhenEnableFails(t *testing.T) {
	h := newHarness(tileConfig())
	h.fake.failEnable = true
	h.addOutput(1, "DP-1", 1920, 1080)
	assert.Equal(t, 0, h.server.Outputs().Len())
}

func TestCenterOutput(t *testing.T) {
	h := newHarness(tileConfig())
	assert.Nil(t, h.server.Outputs().CenterOutput())

	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1920, 1080)
	assert.Equal(t, backend.OutputID(1), h.server.Outputs().CenterOutput().ID)

	// The survivor slides over to the origin
	h.send(backend.OutputRemoved{Output: 1})
	assert.Equal(t, backend.OutputID(2), h.server.Outputs().CenterOutput().ID)
}

func TestOutputLookups(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "HDMI-A-1", 1280, 720)

	o, err := h.server.Outputs().ByName("HDMI-A-1")
	require.NoError(t, err)
	assert.Equal(t, backend.OutputID(2), o.ID)

	_, err = h.server.Outputs().ByName("VGA-1")
	assert.ErrorIs(t, err, ErrUnknownOutput)
	_, err = h.server.Outputs().Get(9)
	assert.ErrorIs(t, err, ErrUnknownOutput)

	assert.Equal(t, backend.OutputID(2), h.server.Outputs().OutputAt(2000, 100).ID)
	assert.Nil(t, h.server.Outputs().OutputAt(2000, 900))
}

func TestMapFocusesAndArranges(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.mapWindow(10)
	h.mapWindow(11)

	assert.Equal(t, backend.SurfaceID(11), h.focused())
	assert.Equal(t, []string{"activate 10 true", "enter 10", "activate 10 false", "activate 11 true", "enter 11"},
		slices.DeleteFunc(slices.Clone(h.fake.calls), func(c string) bool {
			return c[:6] == "enable" || c[:4] == "mode"
		}))
	assert.Equal(t, 1147, h.fake.geometry[10].Width)
	assert.Equal(t, 10, h.fake.geometry[10].X)
	assert.Equal(t, []backend.SurfaceID{10, 11}, h.server.Windows().List(1))
	require.NoError(t, h.server.Check())
}

func TestMapTargetIsOutputUnderPointer(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1920, 1080)
	h.send(backend.PointerMotion{DX: 2500, DY: 300})
	h.mapWindow(10)

	w, err := h.server.Windows().Get(10)
	require.NoError(t, err)
	assert.Equal(t, backend.OutputID(2), w.Output)
}

func TestFocusClearedOnUnmapAndDestroy(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)

	h.mapWindow(10)
	require.Equal(t, backend.SurfaceID(10), h.focused())
	h.send(backend.SurfaceUnmapped{Surface: 10})
	assert.Equal(t, backend.SurfaceID(0), h.focused())

	h.send(backend.SurfaceMapped{Surface: 10})
	require.Equal(t, backend.SurfaceID(10), h.focused())
	h.send(backend.SurfaceDestroyed{Surface: 10})
	assert.Equal(t, backend.SurfaceID(0), h.focused())
	_, err := h.server.Windows().Get(10)
	assert.ErrorIs(t, err, ErrUnknownWindow)
	require.NoError(t, h.server.Check())
}

func TestRemainingWindowRefocused(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.mapWindow(10)
	h.mapWindow(11)
	h.mapWindow(12)

	h.send(backend.SurfaceDestroyed{Surface: 12})
	assert.Equal(t, backend.SurfaceID(11), h.focused())
	// Unmapping something unfocused leaves focus alone
	h.send(backend.SurfaceUnmapped{Surface: 10})
	assert.Equal(t, backend.SurfaceID(11), h.focused())
	assert.True(t, h.fake.activated[11])
	require.NoError(t, h.server.Check())
}

func TestFocusIgnoresUnmappedAndRepeated(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.mapWindow(10)
	h.send(backend.SurfaceNew{Surface: 11, Role: backend.RoleToplevel})

	calls := len(h.fake.calls)
	require.NoError(t, h.server.FocusWindow(10))
	assert.Len(t, h.fake.calls, calls, "refocusing the focused window issued commands")

	assert.ErrorIs(t, h.server.FocusWindow(11), ErrNotFocusable)
	assert.ErrorIs(t, h.server.FocusWindow(99), ErrUnknownWindow)
	assert.Equal(t, backend.SurfaceID(10), h.focused())
}

func TestOutputRemovalReassignsToCenter(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1920, 1080)
	h.mapWindow(10)
	h.send(backend.PointerMotion{DX: 2000})
	h.mapWindow(20)
	h.mapWindow(21)
	require.Equal(t, []backend.SurfaceID{20, 21}, h.server.Windows().List(2))

	dest, err := h.server.Outputs().Get(1)
	require.NoError(t, err)
	before := dest.Layout.Generation

	h.send(backend.OutputRemoved{Output: 2})
	assert.Equal(t, []backend.SurfaceID{10, 20, 21}, h.server.Windows().List(1))
	assert.Equal(t, before+1, dest.Layout.Generation, "destination must be arranged exactly once")
	assert.Equal(t, backend.SurfaceID(21), h.focused())
	assert.False(t, h.server.dispatcher.Listening(backend.OutputID(2).Key()))
	assert.Less(t, h.server.Seat().X, 1920.0)
	require.NoError(t, h.server.Check())
}

func TestRemovingFirstOutputShiftsTheRest(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1920, 1080)
	h.send(backend.PointerMotion{DX: 2000})
	h.mapWindow(20)
	require.Equal(t, geom.Rect{X: 1930, Y: 10, Width: 1900, Height: 1060}, h.fake.geometry[20])

	h.send(backend.OutputRemoved{Output: 1})
	o, err := h.server.Outputs().Get(2)
	require.NoError(t, err)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, o.Geometry)
	assert.Equal(t, geom.Rect{X: 10, Y: 10, Width: 1900, Height: 1060}, h.fake.geometry[20])
	assert.Less(t, h.server.Seat().X, 1920.0)
	require.NoError(t, h.server.Check())
}

func TestRemovingMiddleOutputShiftsOnlyTheRight(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1280, 1024)
	h.addOutput(3, "DP-3", 1920, 1080)
	h.mapWindow(10)
	left, _ := h.server.Outputs().Get(1)
	right, _ := h.server.Outputs().Get(3)
	require.Equal(t, 3200, right.Geometry.X)
	before := left.Layout.Generation

	h.send(backend.OutputRemoved{Output: 2})
	assert.Equal(t, 1920, right.Geometry.X)
	assert.Equal(t, before, left.Layout.Generation, "nothing moved onto the left output")
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 3840, Height: 1080}, h.server.Outputs().Bounds())
}

func TestOutputResizeShiftsNeighbours(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "WL-1", 1920, 1080)
	h.addOutput(2, "WL-2", 1920, 1080)
	h.send(backend.PointerMotion{DX: 2000})
	h.mapWindow(20)

	h.send(backend.OutputModeChanged{Output: 1, Width: 1280, Height: 720})
	o, err := h.server.Outputs().Get(2)
	require.NoError(t, err)
	assert.Equal(t, 1280, o.Geometry.X)
	assert.Equal(t, geom.Rect{X: 1290, Y: 10, Width: 1900, Height: 1060}, h.fake.geometry[20])
}

func TestLastOutputRemovalUnmapsEverything(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.mapWindow(10)
	h.mapWindow(11)

	h.send(backend.OutputRemoved{Output: 1})
	assert.Equal(t, backend.SurfaceID(0), h.focused())
	for _, id := range []backend.SurfaceID{10, 11} {
		w, err := h.server.Windows().Get(id)
		require.NoError(t, err)
		assert.False(t, w.Mapped)
		assert.Equal(t, backend.OutputID(0), w.Output)
	}
	require.NoError(t, h.server.Check())

	// They come back once there is somewhere to put them
	h.addOutput(2, "DP-2", 1280, 720)
	assert.Equal(t, []backend.SurfaceID{10, 11}, h.server.Windows().List(2))
	assert.Equal(t, backend.SurfaceID(11), h.focused())
	require.NoError(t, h.server.Check())
}

func TestWindowListInvariantUnderRandomEvents(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1920, 1080)

	rng := rand.New(rand.NewSource(42))
	known := map[backend.SurfaceID]bool{}
	for step := 0; step < 2000; step++ {
		id := backend.SurfaceID(rng.Intn(12) + 1)
		if !known[id] {
			h.send(backend.SurfaceNew{Surface: id, Role: backend.RoleToplevel})
			known[id] = true
		}
		switch rng.Intn(5) {
		case 0, 1:
			h.send(backend.SurfaceMapped{Surface: id})
		case 2:
			h.send(backend.SurfaceUnmapped{Surface: id})
		case 3:
			h.send(backend.SurfaceDestroyed{Surface: id})
			delete(known, id)
		case 4:
			h.send(backend.PointerMotion{DX: float64(rng.Intn(4000) - 2000)})
		}
		require.NoError(t, h.server.Check(), "step %d", step)

		mapped := 0
		for _, w := range h.server.Windows().All() {
			if w.Mapped {
				mapped++
			}
		}
		listed := len(h.server.Windows().List(1)) + len(h.server.Windows().List(2))
		require.Equal(t, mapped, listed, "step %d", step)
	}
}

func TestReservedKeys(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.send(backend.DeviceAdded{Device: 5, Kind: backend.DeviceKeyboard, Name: "kbd"})
	h.mapWindow(10)
	h.mapWindow(11)
	h.mapWindow(12)

	// Alt+F1 cycles within the output, wrapping around
	h.send(backend.Key{Device: 5, Keycode: 59, State: backend.KeyPressed, Keysyms: []backend.Keysym{backend.KeysymF1}, Modifiers: backend.ModAlt})
	assert.Equal(t, backend.SurfaceID(10), h.focused())
	h.send(backend.Key{Device: 5, Keycode: 59, State: backend.KeyPressed, Keysyms: []backend.Keysym{backend.KeysymF1}, Modifiers: backend.ModAlt})
	assert.Equal(t, backend.SurfaceID(11), h.focused())
	assert.Empty(t, h.fake.keys, "reserved keys must not be forwarded")

	// Released, or without alt, it's just a key
	h.send(backend.Key{Device: 5, Keycode: 59, State: backend.KeyReleased, Keysyms: []backend.Keysym{backend.KeysymF1}, Modifiers: backend.ModAlt})
	h.send(backend.Key{Device: 5, Keycode: 1, State: backend.KeyPressed, Keysyms: []backend.Keysym{backend.KeysymEscape}})
	assert.Equal(t, []uint32{59, 1}, h.fake.keys)
	assert.False(t, h.fake.terminated)

	h.send(backend.Key{Device: 5, Keycode: 1, State: backend.KeyPressed, Keysyms: []backend.Keysym{backend.KeysymEscape}, Modifiers: backend.ModAlt | backend.ModShift})
	assert.True(t, h.fake.terminated)
	assert.Equal(t, []uint32{59, 1}, h.fake.keys)
}

func TestLastUsedKeyboardWins(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.send(backend.DeviceAdded{Device: 5, Kind: backend.DeviceKeyboard})
	h.send(backend.DeviceAdded{Device: 6, Kind: backend.DeviceKeyboard})
	assert.Equal(t, backend.DeviceID(6), h.fake.keyboard)

	h.send(backend.ModifiersChanged{Device: 5, Modifiers: backend.ModShift})
	assert.Equal(t, backend.DeviceID(5), h.fake.keyboard)
	assert.Equal(t, backend.ModShift, h.server.Seat().Modifiers)

	h.send(backend.Key{Device: 6, Keycode: 30, State: backend.KeyPressed})
	assert.Equal(t, backend.DeviceID(6), h.fake.keyboard)

	// Gone keyboards hand over to what is left
	h.send(backend.DeviceDestroyed{Device: 6})
	assert.Equal(t, backend.DeviceID(5), h.fake.keyboard)
}

func TestCapabilities(t *testing.T) {
	h := newHarness(tileConfig())
	h.send(backend.DeviceAdded{Device: 1, Kind: backend.DevicePointer})
	assert.Equal(t, backend.CapPointer, h.fake.caps)
	h.send(backend.DeviceAdded{Device: 2, Kind: backend.DeviceKeyboard})
	assert.Equal(t, backend.CapPointer|backend.CapKeyboard, h.fake.caps)
	h.send(backend.DeviceDestroyed{Device: 2})
	assert.Equal(t, backend.CapPointer, h.fake.caps)
}

func TestDeviceListenersTornDown(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.send(backend.DeviceAdded{Device: 5, Kind: backend.DeviceKeyboard})
	h.mapWindow(10)
	h.send(backend.DeviceDestroyed{Device: 5})
	assert.False(t, h.server.dispatcher.Listening(backend.DeviceID(5).Key()))

	// A late key from the dead device goes nowhere
	h.send(backend.Key{Device: 5, Keycode: 30, State: backend.KeyPressed})
	assert.Empty(t, h.fake.keys)
}

func TestPointerMotionClampsAndForwards(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.mapWindow(10)

	h.send(backend.PointerMotion{Time: 7, DX: 100, DY: 50})
	assert.Equal(t, []string{"10@7 90,40"}, h.fake.motion)

	h.send(backend.PointerMotion{Time: 8, DX: 5000, DY: -5000})
	assert.Equal(t, 1919.0, h.server.Seat().X)
	assert.Equal(t, 0.0, h.server.Seat().Y)

	h.send(backend.PointerMotionAbsolute{Time: 9, X: 0.5, Y: 0.5})
	assert.Equal(t, 960.0, h.server.Seat().X)
	assert.Equal(t, 540.0, h.server.Seat().Y)
	assert.Equal(t, 3, h.fake.warps)
	assert.Equal(t, backend.SurfaceID(10), h.focused(), "motion must not change focus")
}

func TestPointerEventsForwardedToFocused(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	// Nothing focused, nothing forwarded
	h.send(backend.PointerButton{Button: 272, State: backend.ButtonPressed})
	h.mapWindow(10)
	h.fake.calls = nil
	h.send(
		backend.PointerButton{Button: 272, State: backend.ButtonPressed},
		backend.PointerAxis{Delta: 15},
		backend.PointerFrame{},
	)
	assert.Equal(t, []string{"button 10 272", "axis 10", "frame 10"}, h.fake.calls)
}

func TestSetLayoutRearrangesEverything(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1920, 1080)
	h.mapWindow(10)
	h.mapWindow(11)

	cfg := tileConfig()
	cfg.Policy = tiler.PolicyKiosk
	h.server.SetLayout(cfg)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, h.fake.geometry[10])
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, h.fake.geometry[11])
	o, _ := h.server.Outputs().Get(2)
	assert.Equal(t, tiler.PolicyKiosk, o.Layout.Policy)

	cfg.MasterFactor = 500
	h.server.SetLayout(cfg)
	assert.Equal(t, tiler.MaxMasterFactor, h.server.Layout().MasterFactor)
}

func TestLayerSurfaceReservesSpace(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.mapWindow(10)
	h.send(
		backend.SurfaceNew{Surface: 50, Role: backend.RoleLayer, Layer: backend.LayerInfo{Edge: backend.EdgeTop, ExclusiveZone: 30}},
		backend.SurfaceMapped{Surface: 50},
	)

	area, err := h.server.Outputs().UsableArea(1)
	require.NoError(t, err)
	assert.Equal(t, geom.Rect{X: 0, Y: 30, Width: 1920, Height: 1050}, area)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 30}, h.fake.geometry[50])
	assert.Equal(t, 40, h.fake.geometry[10].Y)
	assert.Equal(t, backend.SurfaceID(10), h.focused(), "layer surfaces never take focus")
	require.NoError(t, h.server.Check())

	h.send(backend.SurfaceDestroyed{Surface: 50})
	area, err = h.server.Outputs().UsableArea(1)
	require.NoError(t, err)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, area)
	assert.Equal(t, 10, h.fake.geometry[10].Y)
}

func TestOverrideRedirectIsOnlyTracked(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.send(
		backend.SurfaceNew{Surface: 60, Role: backend.RoleOverrideRedirect},
		backend.SurfaceMapped{Surface: 60},
	)
	assert.Empty(t, h.server.Windows().List(1))
	assert.Equal(t, backend.SurfaceID(0), h.focused())
	_, err := h.server.Windows().Get(60)
	require.NoError(t, err)

	h.send(backend.SurfaceDestroyed{Surface: 60})
	_, err = h.server.Windows().Get(60)
	assert.ErrorIs(t, err, ErrUnknownWindow)
}

func TestOutputModeChange(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "WL-1", 1280, 720)
	h.mapWindow(10)
	h.send(backend.OutputModeChanged{Output: 1, Width: 1920, Height: 1080})
	assert.Equal(t, geom.Rect{X: 10, Y: 10, Width: 1900, Height: 1060}, h.fake.geometry[10])
}

func TestFramesCommitted(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.send(backend.OutputFrame{Output: 1}, backend.OutputFrame{Output: 1}, backend.OutputFrame{Output: 7})
	assert.Equal(t, 2, h.fake.frames[1])
	assert.Zero(t, h.fake.frames[7])
}

func TestDeferredWorkRunsOnLoop(t *testing.T) {
	h := newHarness(tileConfig())
	ran := false
	require.NoError(t, h.server.Post(func() { ran = true }))
	assert.False(t, ran)
	require.NoError(t, h.server.Run())
	assert.True(t, ran)
	assert.ErrorIs(t, h.server.dispatcher.Handle(backend.EventKey, nil), ErrSealed)
}

func TestAfterFuncPostsToLoop(t *testing.T) {
	h := newHarness(tileConfig())
	h.server.AfterFunc(time.Millisecond, func() {})
	ev := <-h.fake.queue.Events()
	_, ok := ev.(backend.Deferred)
	assert.True(t, ok)
}

func TestSnapshots(t *testing.T) {
	h := newHarness(tileConfig())
	h.addOutput(1, "DP-1", 1920, 1080)
	h.addOutput(2, "DP-2", 1280, 720)
	h.mapWindow(10)

	res := h.server.OutputInfo(ipc.OutputRequest{IncludeModes: true, SpecifiesOutput: true, TargetOutput: "DP-1"})
	require.Equal(t, 1, res.OutputsFound)
	assert.Equal(t, []uint64{10}, res.Outputs[0].Windows)
	assert.Len(t, res.OutputModes["DP-1"], 1)

	windows := h.server.WindowInfo()
	require.Len(t, windows.Windows, 1)
	assert.Equal(t, uint64(10), windows.Focused)
	assert.Equal(t, "tile", windows.Layout)
	assert.True(t, windows.Windows[0].Focused)
}

func TestShutdownTerminates(t *testing.T) {
	h := newHarness(tileConfig())
	h.send(backend.Shutdown{Reason: "backend gone"})
	assert.True(t, h.fake.terminated)
}
