package wm

import (
	"fmt"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/geom"
	"github.com/mstarongithub/way2kiosk/tiler"
)

// fakeBackend records every command it gets
type fakeBackend struct {
	calls      []string
	enabled    []backend.OutputID
	modes      map[backend.OutputID]backend.Mode
	geometry   map[backend.SurfaceID]geom.Rect
	activated  map[backend.SurfaceID]bool
	entered    []backend.SurfaceID
	keys       []uint32
	motion     []string
	warps      int
	frames     map[backend.OutputID]int
	keyboard   backend.DeviceID
	caps       backend.Capabilities
	terminated bool
	queue      *backend.Queue

	failEnable bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		modes:     map[backend.OutputID]backend.Mode{},
		geometry:  map[backend.SurfaceID]geom.Rect{},
		activated: map[backend.SurfaceID]bool{},
		frames:    map[backend.OutputID]int{},
		queue:     backend.NewQueue(16),
	}
}

func (f *fakeBackend) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeBackend) EnableOutput(output backend.OutputID) error {
	if f.failEnable {
		return backend.ErrUnknownHandle
	}
	f.enabled = append(f.enabled, output)
	f.record("enable %d", output)
	return nil
}

func (f *fakeBackend) SetOutputMode(output backend.OutputID, mode backend.Mode) error {
	f.modes[output] = mode
	f.record("mode %d %s", output, mode)
	return nil
}

func (f *fakeBackend) CommitFrame(output backend.OutputID) error {
	f.frames[output]++
	return nil
}

func (f *fakeBackend) WarpCursor(x, y float64) {
	f.warps++
}

func (f *fakeBackend) SetWindowGeometry(surface backend.SurfaceID, rect geom.Rect) error {
	f.geometry[surface] = rect
	return nil
}

func (f *fakeBackend) SetWindowActivated(surface backend.SurfaceID, activated bool) error {
	f.activated[surface] = activated
	f.record("activate %d %t", surface, activated)
	return nil
}

func (f *fakeBackend) NotifyKeyboardEnter(surface backend.SurfaceID, mods backend.Modifiers) error {
	f.entered = append(f.entered, surface)
	f.record("enter %d", surface)
	return nil
}

func (f *fakeBackend) NotifyPointerMotion(surface backend.SurfaceID, time uint32, sx, sy float64) error {
	f.motion = append(f.motion, fmt.Sprintf("%d@%d %.0f,%.0f", surface, time, sx, sy))
	return nil
}

func (f *fakeBackend) NotifyPointerButton(surface backend.SurfaceID, time uint32, button uint32, state backend.ButtonState) error {
	f.record("button %d %d", surface, button)
	return nil
}

func (f *fakeBackend) NotifyPointerAxis(surface backend.SurfaceID, ev backend.PointerAxis) error {
	f.record("axis %d", surface)
	return nil
}

func (f *fakeBackend) NotifyPointerFrame(surface backend.SurfaceID) {
	f.record("frame %d", surface)
}

func (f *fakeBackend) NotifyKey(surface backend.SurfaceID, time uint32, keycode uint32, state backend.KeyState) error {
	f.keys = append(f.keys, keycode)
	return nil
}

func (f *fakeBackend) NotifyModifiers(surface backend.SurfaceID, mods backend.Modifiers) error {
	f.record("modifiers %d %d", surface, mods)
	return nil
}

func (f *fakeBackend) SetKeyboard(device backend.DeviceID) error {
	f.keyboard = device
	return nil
}

func (f *fakeBackend) SetCapabilities(caps backend.Capabilities) {
	f.caps = caps
}

func (f *fakeBackend) Start() (backend.Socket, error) {
	return backend.Socket{EnvVar: "WAYLAND_DISPLAY", Name: "wayland-test"}, nil
}

// Run delivers queued events until terminated or the queue runs dry
func (f *fakeBackend) Run(sink func(backend.Event)) error {
	for !f.terminated {
		ev, ok := f.queue.TryReceive()
		if !ok {
			return nil
		}
		sink(ev)
	}
	return nil
}

func (f *fakeBackend) Post(ev backend.Event) error {
	return f.queue.Send(ev)
}

func (f *fakeBackend) Terminate() {
	f.terminated = true
}

func (f *fakeBackend) Close() error {
	f.queue.Close()
	return nil
}

// harness drives a server over the fake backend
type harness struct {
	fake   *fakeBackend
	server *Server
}

func newHarness(cfg tiler.LayoutConfig) *harness {
	fake := newFakeBackend()
	return &harness{fake: fake, server: NewServer(fake, cfg)}
}

func tileConfig() tiler.LayoutConfig {
	cfg := tiler.DefaultLayoutConfig()
	cfg.Policy = tiler.PolicyTile
	return cfg
}

func (h *harness) send(evs ...backend.Event) {
	for _, ev := range evs {
		h.server.Dispatch(ev)
	}
}

func (h *harness) addOutput(id backend.OutputID, name string, width, height int) {
	h.send(backend.OutputAdded{
		Output: id,
		Name:   name,
		Modes:  []backend.Mode{{Width: width, Height: height, Refresh: 60000, Preferred: true}},
	})
}

func (h *harness) mapWindow(id backend.SurfaceID) {
	h.send(
		backend.SurfaceNew{Surface: id, Role: backend.RoleToplevel, AppID: fmt.Sprintf("app-%d", id)},
		backend.SurfaceMapped{Surface: id},
	)
}

func (h *harness) focused() backend.SurfaceID {
	id, _ := h.server.Focus().Focused()
	return id
}
