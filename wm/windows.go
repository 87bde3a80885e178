package wm

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/geom"
)

var (
	ErrUnknownWindow   = errors.New("unknown window")
	ErrDuplicateWindow = errors.New("window already registered")
	ErrNotManaged      = errors.New("surface is not a managed window")
	ErrAlreadyMapped   = errors.New("window already mapped")
	ErrNotMapped       = errors.New("window not mapped")
)

type Window struct {
	ID    backend.SurfaceID
	Role  backend.Role
	AppID string
	Title string
	// Weak reference, zero if the window sits on no output
	Output   backend.OutputID
	Geometry geom.Rect
	Mapped   bool
	// Only set for layer surfaces
	Layer backend.LayerInfo
	// Set when the window lost its output and no other one was left to take it
	Orphaned bool
}

// Managed reports whether the window takes part in arrangement and focus
func (w *Window) Managed() bool {
	return w.Role == backend.RoleToplevel
}

// WindowRegistry owns every window. Everything else refers to windows by id only.
// Each output has one ordered list of mapped toplevels, order decides master and stack
type WindowRegistry struct {
	windows map[backend.SurfaceID]*Window
	lists   map[backend.OutputID][]backend.SurfaceID
}

func NewWindowRegistry() *WindowRegistry {
	return &WindowRegistry{
		windows: map[backend.SurfaceID]*Window{},
		lists:   map[backend.OutputID][]backend.SurfaceID{},
	}
}

func (r *WindowRegistry) Create(id backend.SurfaceID, role backend.Role, appID string) (*Window, error) {
	if _, ok := r.windows[id]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateWindow, id)
	}
	w := &Window{ID: id, Role: role, AppID: appID}
	r.windows[id] = w
	return w, nil
}

func (r *WindowRegistry) Get(id backend.SurfaceID) (*Window, error) {
	w, ok := r.windows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWindow, id)
	}
	return w, nil
}

// Map appends the window to the output's list and gives it the usable area as a starting geometry
func (r *WindowRegistry) Map(id backend.SurfaceID, output backend.OutputID, usable geom.Rect) error {
	w, err := r.Get(id)
	if err != nil {
		return err
	}
	if !w.Managed() {
		return fmt.Errorf("%w: %d is a %s surface", ErrNotManaged, id, w.Role)
	}
	if w.Mapped {
		return fmt.Errorf("%w: %d", ErrAlreadyMapped, id)
	}
	w.Mapped = true
	w.Orphaned = false
	w.Output = output
	w.Geometry = usable
	r.lists[output] = append(r.lists[output], id)
	return nil
}

// Unmap takes the window off its list, survivors keep their order.
// Returns the output the window was on
func (r *WindowRegistry) Unmap(id backend.SurfaceID) (backend.OutputID, error) {
	w, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	if !w.Mapped {
		return 0, fmt.Errorf("%w: %d", ErrNotMapped, id)
	}
	from := w.Output
	r.detach(w)
	return from, nil
}

// Destroy forgets the window, unmapping it first if needed.
// Returns the output it was mapped on, zero if it wasn't
func (r *WindowRegistry) Destroy(id backend.SurfaceID) (backend.OutputID, error) {
	w, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	var from backend.OutputID
	if w.Mapped {
		from = w.Output
		r.detach(w)
	}
	delete(r.windows, id)
	return from, nil
}

func (r *WindowRegistry) detach(w *Window) {
	list := r.lists[w.Output]
	if i := slices.Index(list, w.ID); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	if len(list) == 0 {
		delete(r.lists, w.Output)
	} else {
		r.lists[w.Output] = list
	}
	w.Mapped = false
	w.Output = 0
}

// Reassign appends every window of from to the end of to's list, keeping their order.
// Returns the moved windows
func (r *WindowRegistry) Reassign(from, to backend.OutputID) []backend.SurfaceID {
	moved := r.lists[from]
	delete(r.lists, from)
	if from == to || len(moved) == 0 {
		if len(moved) > 0 {
			r.lists[from] = moved
		}
		return nil
	}
	for _, id := range moved {
		r.windows[id].Output = to
	}
	r.lists[to] = append(r.lists[to], moved...)
	return slices.Clone(moved)
}

// Orphan unmaps every window of the output and flags them so they can come back
// once an output shows up again
func (r *WindowRegistry) Orphan(output backend.OutputID) []backend.SurfaceID {
	orphaned := slices.Clone(r.lists[output])
	for _, id := range orphaned {
		w := r.windows[id]
		r.detach(w)
		w.Orphaned = true
	}
	return orphaned
}

// Orphans returns the ids of orphaned windows in ascending order
func (r *WindowRegistry) Orphans() []backend.SurfaceID {
	ids := []backend.SurfaceID{}
	for id, w := range r.windows {
		if w.Orphaned {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// List returns a copy of the output's window list
func (r *WindowRegistry) List(output backend.OutputID) []backend.SurfaceID {
	return slices.Clone(r.lists[output])
}

// Outputs returns every output that currently has a non-empty list, ascending
func (r *WindowRegistry) Outputs() []backend.OutputID {
	ids := make([]backend.OutputID, 0, len(r.lists))
	for id := range r.lists {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// All returns every known window, ordered by id
func (r *WindowRegistry) All() []*Window {
	all := make([]*Window, 0, len(r.windows))
	for _, w := range r.windows {
		all = append(all, w)
	}
	slices.SortFunc(all, func(a, b *Window) int {
		return int(a.ID) - int(b.ID)
	})
	return all
}

func (r *WindowRegistry) Len() int {
	return len(r.windows)
}

// Check verifies that the lists and the mapped flags agree:
// every mapped window sits in exactly one list, the one of its output, exactly once.
// Nothing else is in any list
func (r *WindowRegistry) Check() error {
	seen := map[backend.SurfaceID]backend.OutputID{}
	for output, list := range r.lists {
		if len(list) == 0 {
			return fmt.Errorf("output %d has an empty list entry", output)
		}
		for _, id := range list {
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("window %d listed on output %d and %d", id, prev, output)
			}
			seen[id] = output
			w, ok := r.windows[id]
			if !ok {
				return fmt.Errorf("destroyed window %d still listed on output %d", id, output)
			}
			if !w.Mapped {
				return fmt.Errorf("unmapped window %d listed on output %d", id, output)
			}
			if !w.Managed() {
				return fmt.Errorf("%s surface %d listed on output %d", w.Role, id, output)
			}
			if w.Output != output {
				return fmt.Errorf("window %d listed on output %d but owned by %d", id, output, w.Output)
			}
		}
	}
	for id, w := range r.windows {
		if w.Mapped && w.Managed() {
			if _, ok := seen[id]; !ok {
				return fmt.Errorf("mapped window %d is in no list", id)
			}
		}
	}
	return nil
}

// Place shows a layer surface at rect on the output. Layer surfaces never join a list
func (r *WindowRegistry) Place(id backend.SurfaceID, output backend.OutputID, rect geom.Rect) error {
	w, err := r.Get(id)
	if err != nil {
		return err
	}
	if w.Role != backend.RoleLayer {
		return fmt.Errorf("%w: %d is a %s surface", ErrNotManaged, id, w.Role)
	}
	w.Mapped = true
	w.Output = output
	w.Geometry = rect
	return nil
}
