package tiler

import (
	"math"

	"github.com/mstarongithub/way2kiosk/common/geom"
)

// Area is the space an output offers to its windows
type Area struct {
	// Full output geometry, used by the kiosk policy
	Full geom.Rect
	// Full minus reserved edges (bars, docks)
	Usable geom.Rect
}

// Arrange computes the geometry of n windows on one output.
// The result is parallel to the window list: index i belongs to the i-th window in attach order.
// Pure and deterministic, so calling it twice with the same input yields the same rectangles
func Arrange(area Area, n int, cfg LayoutConfig) []geom.Rect {
	if n <= 0 {
		return nil
	}
	cfg = cfg.Clamped()
	switch cfg.Policy {
	case PolicyTile:
		return tile(area.Usable, n, cfg)
	case PolicyMonocle:
		return monocle(area.Usable, n, cfg.Gap)
	case PolicyGrid:
		return grid(area.Usable, n, cfg.Gap)
	default:
		return kiosk(area.Full, n)
	}
}

// Every window gets the whole output, gaps don't apply
func kiosk(full geom.Rect, n int) []geom.Rect {
	out := make([]geom.Rect, n)
	for i := range out {
		out[i] = full
	}
	return out
}

func monocle(usable geom.Rect, n int, gap int) []geom.Rect {
	out := make([]geom.Rect, n)
	inner := usable.Inset(gap)
	for i := range out {
		out[i] = inner
	}
	return out
}

// Master column on the left, the remaining windows stacked on the right
func tile(usable geom.Rect, n int, cfg LayoutConfig) []geom.Rect {
	gap := cfg.Gap
	masters := min(cfg.MasterCount, n)
	stacked := n - masters

	if stacked == 0 {
		col := geom.Rect{X: usable.X + gap, Y: usable.Y, Width: usable.Width - 2*gap, Height: usable.Height}
		return column(col, masters, gap)
	}

	masterWidth := usable.Width*cfg.MasterFactor/100 - gap/2
	master := geom.Rect{X: usable.X + gap, Y: usable.Y, Width: max(masterWidth, 1), Height: usable.Height}

	stackX := master.Right() + gap
	stack := geom.Rect{X: stackX, Y: usable.Y, Width: max(usable.Right()-gap-stackX, 1), Height: usable.Height}

	return append(column(master, masters, gap), column(stack, stacked, gap)...)
}

// Splits a column into k windows of equal height separated and surrounded by gap.
// The last window absorbs the rounding remainder so the column is filled exactly
func column(col geom.Rect, k int, gap int) []geom.Rect {
	avail := col.Height - (k+1)*gap
	height := max(avail/k, 1)
	out := make([]geom.Rect, k)
	for i := range out {
		out[i] = geom.Rect{
			X:      col.X,
			Y:      col.Y + gap + i*(height+gap),
			Width:  col.Width,
			Height: height,
		}
	}
	if rest := avail - height*k; rest > 0 {
		out[k-1].Height += rest
	}
	return out
}

// GridDimensions determines rows and columns for n windows
func GridDimensions(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = int(math.Ceil(float64(n) / float64(cols)))
	return rows, cols
}

func grid(usable geom.Rect, n int, gap int) []geom.Rect {
	rows, cols := GridDimensions(n)
	cellWidth := usable.Width / cols
	cellHeight := usable.Height / rows

	out := make([]geom.Rect, n)
	for i := range out {
		row := i / cols
		col := i % cols
		cell := geom.Rect{
			X:      usable.X + col*cellWidth,
			Y:      usable.Y + row*cellHeight,
			Width:  cellWidth,
			Height: cellHeight,
		}
		out[i] = cell.Inset(gap)
	}
	return out
}
