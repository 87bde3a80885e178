package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/mstarongithub/way2kiosk/backend"
)

// Monitor represents a physical display as randr reports it
type Monitor struct {
	Name   string
	X      int
	Y      int
	Width  int
	Height int
	Modes  []backend.Mode
}

// queryMonitors retrieves all active monitors using XRandR.
// Falls back to the root window when randr has nothing to say, e.g. Xvfb
func (b *Backend) queryMonitors() ([]Monitor, error) {
	monitors, err := b.randrMonitors()
	if err == nil && len(monitors) > 0 {
		return monitors, nil
	}
	rootGeom, gerr := xproto.GetGeometry(b.xu.Conn(), xproto.Drawable(b.root)).Reply()
	if gerr != nil {
		if err != nil {
			return nil, fmt.Errorf("randr: %w, root geometry: %w", err, gerr)
		}
		return nil, gerr
	}
	return []Monitor{{
		Name:   "screen",
		Width:  int(rootGeom.Width),
		Height: int(rootGeom.Height),
	}}, nil
}

func (b *Backend) randrMonitors() ([]Monitor, error) {
	conn := b.xu.Conn()
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}
	resources, err := randr.GetScreenResources(conn, b.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	// Query each CRTC for active monitors
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		mon := Monitor{
			Name:   fmt.Sprintf("Monitor%d", i),
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
		outputInfo, err := randr.GetOutputInfo(conn, crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			mon.Name = string(outputInfo.Name)
			mon.Modes = outputModes(resources.Modes, outputInfo.Modes, uint32(crtcInfo.Mode))
		}
		monitors = append(monitors, mon)
	}
	return monitors, nil
}

// outputModes resolves the mode ids of an output.
// The mode the CRTC currently runs is flagged preferred: hosted, the server keeps whatever mode it has
func outputModes(all []randr.ModeInfo, ids []randr.Mode, current uint32) []backend.Mode {
	byID := map[uint32]randr.ModeInfo{}
	for _, info := range all {
		byID[info.Id] = info
	}
	modes := make([]backend.Mode, 0, len(ids))
	for _, id := range ids {
		info, ok := byID[uint32(id)]
		if !ok {
			continue
		}
		modes = append(modes, backend.Mode{
			Width:     int(info.Width),
			Height:    int(info.Height),
			Refresh:   refreshMilliHz(info),
			Preferred: info.Id == current,
		})
	}
	return modes
}

func refreshMilliHz(info randr.ModeInfo) int {
	total := uint64(info.Htotal) * uint64(info.Vtotal)
	if total == 0 {
		return 0
	}
	return int(uint64(info.DotClock) * 1000 / total)
}

type monitorChange struct {
	added   []Monitor
	removed []string
	resized []Monitor
}

// diffMonitors works out what changed between two randr snapshots, keyed by name
func diffMonitors(old, current []Monitor) monitorChange {
	change := monitorChange{}
	before := map[string]Monitor{}
	for _, m := range old {
		before[m.Name] = m
	}
	seen := map[string]bool{}
	for _, m := range current {
		seen[m.Name] = true
		prev, ok := before[m.Name]
		switch {
		case !ok:
			change.added = append(change.added, m)
		case prev.Width != m.Width || prev.Height != m.Height:
			change.resized = append(change.resized, m)
		}
	}
	for _, m := range old {
		if !seen[m.Name] {
			change.removed = append(change.removed, m.Name)
		}
	}
	return change
}
