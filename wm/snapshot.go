package wm

import (
	"github.com/mstarongithub/way2kiosk/common/ipc"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
)

// OutputInfo answers an output request from the current registry state. Loop only
func (server *Server) OutputInfo(req ipc.OutputRequest) ipc.OutputResponse {
	outputs := server.outputs.List()
	if req.SpecifiesOutput {
		outputs = sliceutils.Filter(outputs, func(o *Output) bool {
			return o.Name == req.TargetOutput
		})
	}
	res := ipc.OutputResponse{
		Outputs:      make([]ipc.Output, 0, len(outputs)),
		OutputsFound: len(outputs),
	}
	if req.IncludeModes {
		res.OutputModes = map[string][]ipc.OutputMode{}
	}
	for _, o := range outputs {
		windows := []uint64{}
		for _, id := range server.windows.List(o.ID) {
			windows = append(windows, uint64(id))
		}
		res.Outputs = append(res.Outputs, ipc.Output{
			ID:         uint64(o.ID),
			Name:       o.Name,
			Geometry:   o.Geometry,
			Usable:     o.Usable(),
			Windows:    windows,
			Generation: o.Layout.Generation,
		})
		if req.IncludeModes {
			modes := make([]ipc.OutputMode, 0, len(o.Modes))
			for _, m := range o.Modes {
				modes = append(modes, ipc.OutputMode{
					Height:      m.Height,
					Width:       m.Width,
					RefreshRate: m.Refresh,
					Preferred:   m.Preferred,
				})
			}
			res.OutputModes[o.Name] = modes
		}
	}
	return res
}

// WindowInfo lists every known surface. Loop only
func (server *Server) WindowInfo() ipc.WindowResponse {
	focused, _ := server.focus.Focused()
	res := ipc.WindowResponse{
		Windows: []ipc.Window{},
		Layout:  server.layout.Policy.String(),
		Focused: uint64(focused),
	}
	for _, w := range server.windows.All() {
		res.Windows = append(res.Windows, ipc.Window{
			ID:       uint64(w.ID),
			Role:     w.Role.String(),
			AppID:    w.AppID,
			Title:    w.Title,
			Output:   uint64(w.Output),
			Geometry: w.Geometry,
			Mapped:   w.Mapped,
			Focused:  w.ID == focused,
		})
	}
	return res
}
