package wm

import (
	"errors"
	"fmt"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/geom"
	"github.com/mstarongithub/way2kiosk/tiler"
	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
)

var (
	ErrUnknownOutput   = errors.New("unknown output")
	ErrDuplicateOutput = errors.New("output already registered")
	ErrOutputNoSize    = errors.New("output has no size")
)

// The last arrangement computed for an output
type LayoutState struct {
	Policy  tiler.Policy
	Windows []backend.SurfaceID
	Rects   []geom.Rect
	// Increases by one every time the output gets arranged
	Generation uint64
}

type Output struct {
	ID       backend.OutputID
	Name     string
	Modes    []backend.Mode
	Geometry geom.Rect
	// Registration order, lower is older
	Seq    uint64
	Layout LayoutState

	reservations map[backend.SurfaceID]geom.Insets
}

// Reserved is the sum of everything bars and docks claimed on this output
func (o *Output) Reserved() geom.Insets {
	total := geom.Insets{}
	for _, in := range o.reservations {
		total = total.Add(in)
	}
	return total
}

// Usable is the part of the output windows get arranged in
func (o *Output) Usable() geom.Rect {
	return o.Geometry.Shrink(o.Reserved())
}

// OutputRegistry keeps all known outputs in the order they were added
type OutputRegistry struct {
	cmds    backend.Commands
	outputs []*Output
	nextSeq uint64
}

func NewOutputRegistry(cmds backend.Commands) *OutputRegistry {
	return &OutputRegistry{cmds: cmds}
}

// Add enables the output, picks its preferred mode and places it right of every known output.
// The output only becomes visible to the rest of the registry once the backend accepted all that
func (r *OutputRegistry) Add(ev backend.OutputAdded) (*Output, error) {
	if _, err := r.Get(ev.Output); err == nil {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateOutput, ev.Output)
	}
	if err := r.cmds.EnableOutput(ev.Output); err != nil {
		return nil, fmt.Errorf("enable output %s: %w", ev.Name, err)
	}

	width, height := ev.Width, ev.Height
	if mode, ok := ev.PreferredMode(); ok {
		if err := r.cmds.SetOutputMode(ev.Output, mode); err != nil {
			return nil, fmt.Errorf("set mode %s on output %s: %w", mode, ev.Name, err)
		}
		width, height = mode.Width, mode.Height
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %s reports %dx%d", ErrOutputNoSize, ev.Name, width, height)
	}

	// Left to right auto placement, reflow keeps it that way
	x := 0
	for _, o := range r.outputs {
		x = max(x, o.Geometry.Right())
	}
	o := &Output{
		ID:           ev.Output,
		Name:         ev.Name,
		Modes:        ev.Modes,
		Geometry:     geom.Rect{X: x, Y: 0, Width: width, Height: height},
		Seq:          r.nextSeq,
		reservations: map[backend.SurfaceID]geom.Insets{},
	}
	r.nextSeq++
	r.outputs = append(r.outputs, o)
	logrus.WithFields(logrus.Fields{
		"name":     o.Name,
		"geometry": o.Geometry,
	}).Infoln("Output added")
	return o, nil
}

// Remove drops the output from the registry and closes the gap it leaves.
// Returns the outputs that moved. Windows are the caller's business
func (r *OutputRegistry) Remove(id backend.OutputID) (*Output, []*Output, error) {
	for i, o := range r.outputs {
		if o.ID == id {
			r.outputs = append(r.outputs[:i:i], r.outputs[i+1:]...)
			logrus.WithField("name", o.Name).Infoln("Output removed")
			return o, r.reflow(), nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %d", ErrUnknownOutput, id)
}

// reflow packs outputs left to right at y = 0 in registration order, the way
// wlroots' auto layout places them. Returns the outputs whose position changed
func (r *OutputRegistry) reflow() []*Output {
	moved := []*Output{}
	x := 0
	for _, o := range r.outputs {
		if o.Geometry.X != x || o.Geometry.Y != 0 {
			o.Geometry.X, o.Geometry.Y = x, 0
			moved = append(moved, o)
		}
		x += o.Geometry.Width
	}
	return moved
}

// List returns all outputs in registration order
func (r *OutputRegistry) List() []*Output {
	out := make([]*Output, len(r.outputs))
	copy(out, r.outputs)
	return out
}

func (r *OutputRegistry) Len() int {
	return len(r.outputs)
}

func (r *OutputRegistry) Get(id backend.OutputID) (*Output, error) {
	for _, o := range r.outputs {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownOutput, id)
}

func (r *OutputRegistry) ByName(name string) (*Output, error) {
	filtered := sliceutils.Filter(r.outputs, func(o *Output) bool {
		return o.Name == name
	})
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
	return filtered[0], nil
}

func (r *OutputRegistry) UsableArea(id backend.OutputID) (geom.Rect, error) {
	o, err := r.Get(id)
	if err != nil {
		return geom.Rect{}, err
	}
	return o.Usable(), nil
}

// OutputAt returns the output containing the point, nil if there is none
func (r *OutputRegistry) OutputAt(x, y float64) *Output {
	filtered := sliceutils.Filter(r.outputs, func(o *Output) bool {
		return o.Geometry.Contains(x, y)
	})
	if len(filtered) == 0 {
		return nil
	}
	return filtered[0]
}

// CenterOutput is where things go when nothing else decides.
// That's the output containing the layout origin, otherwise the oldest one
func (r *OutputRegistry) CenterOutput() *Output {
	if o := r.OutputAt(0, 0); o != nil {
		return o
	}
	if len(r.outputs) > 0 {
		return r.outputs[0]
	}
	return nil
}

// Reserve sets the space the given surface claims on the output.
// An empty reservation removes it
func (r *OutputRegistry) Reserve(id backend.OutputID, owner backend.SurfaceID, in geom.Insets) error {
	o, err := r.Get(id)
	if err != nil {
		return err
	}
	if in == (geom.Insets{}) {
		delete(o.reservations, owner)
		return nil
	}
	o.reservations[owner] = in
	return nil
}

// Release drops whatever owner reserved, on any output.
// Returns the output that changed, nil if nothing did
func (r *OutputRegistry) Release(owner backend.SurfaceID) *Output {
	for _, o := range r.outputs {
		if _, ok := o.reservations[owner]; ok {
			delete(o.reservations, owner)
			return o
		}
	}
	return nil
}

// Resize updates the size of an output, e.g. when the nested window got resized.
// Outputs right of it shift along, those are returned as moved
func (r *OutputRegistry) Resize(id backend.OutputID, width, height int) (*Output, []*Output, error) {
	o, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("%w: %s resized to %dx%d", ErrOutputNoSize, o.Name, width, height)
	}
	o.Geometry.Width = width
	o.Geometry.Height = height
	return o, r.reflow(), nil
}

// Bounds is the smallest rectangle containing every output
func (r *OutputRegistry) Bounds() geom.Rect {
	bounds := geom.Rect{}
	for _, o := range r.outputs {
		bounds = bounds.Union(o.Geometry)
	}
	return bounds
}
