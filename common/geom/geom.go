package geom

import "fmt"

// A rectangle in output-layout coordinates
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Space reserved along the edges of an output, e.g. for bars and docks
type Insets struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Contains reports whether the point lies inside r. The right and bottom edges are exclusive
func (r Rect) Contains(x, y float64) bool {
	return x >= float64(r.X) && x < float64(r.X+r.Width) &&
		y >= float64(r.Y) && y < float64(r.Y+r.Height)
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right is the first column right of r
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom is the first row below r
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Inset shrinks r by n on all four sides. Width and height never drop below 1
func (r Rect) Inset(n int) Rect {
	return r.Shrink(Insets{Top: n, Bottom: n, Left: n, Right: n})
}

// Shrink removes the given insets from r
func (r Rect) Shrink(in Insets) Rect {
	out := Rect{
		X:      r.X + in.Left,
		Y:      r.Y + in.Top,
		Width:  r.Width - in.Left - in.Right,
		Height: r.Height - in.Top - in.Bottom,
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

// Union returns the smallest rectangle containing both r and o.
// An empty rectangle is treated as absent
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	out := Rect{X: min(r.X, o.X), Y: min(r.Y, o.Y)}
	out.Width = max(r.Right(), o.Right()) - out.X
	out.Height = max(r.Bottom(), o.Bottom()) - out.Y
	return out
}

// Clamp moves the point to the closest position inside r
func (r Rect) Clamp(x, y float64) (float64, float64) {
	if r.Empty() {
		return x, y
	}
	maxX := float64(r.Right() - 1)
	maxY := float64(r.Bottom() - 1)
	x = min(max(x, float64(r.X)), maxX)
	y = min(max(y, float64(r.Y)), maxY)
	return x, y
}

// Add stacks two reservations, e.g. two bars on the same edge
func (in Insets) Add(o Insets) Insets {
	return Insets{
		Top:    in.Top + o.Top,
		Bottom: in.Bottom + o.Bottom,
		Left:   in.Left + o.Left,
		Right:  in.Right + o.Right,
	}
}
