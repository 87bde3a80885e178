package wm

import (
	"time"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/ipc"
	"github.com/mstarongithub/way2kiosk/tiler"
)

const DefaultQueryTimeout = 2 * time.Second

// Remote drives a running server from other goroutines, e.g. the console or the config watcher.
// Every call is a round trip through the loop
type Remote struct {
	server  *Server
	timeout time.Duration
}

func NewRemote(server *Server, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Remote{server: server, timeout: timeout}
}

func (r *Remote) Outputs(req ipc.OutputRequest) (ipc.OutputResponse, error) {
	return Query(r.server, r.timeout, func() ipc.OutputResponse {
		return r.server.OutputInfo(req)
	})
}

func (r *Remote) Windows() (ipc.WindowResponse, error) {
	return Query(r.server, r.timeout, r.server.WindowInfo)
}

func (r *Remote) Focus(id uint64) error {
	return r.call(func() error {
		return r.server.FocusWindow(backend.SurfaceID(id))
	})
}

func (r *Remote) CycleFocus() error {
	return r.call(r.server.CycleFocus)
}

// SetPolicy switches the layout policy, keeping gap and master settings
func (r *Remote) SetPolicy(p tiler.Policy) error {
	return r.call(func() error {
		cfg := r.server.Layout()
		cfg.Policy = p
		r.server.SetLayout(cfg)
		return nil
	})
}

func (r *Remote) SetLayout(cfg tiler.LayoutConfig) error {
	return r.call(func() error {
		r.server.SetLayout(cfg)
		return nil
	})
}

func (r *Remote) Quit() {
	r.server.Terminate()
}

func (r *Remote) call(fn func() error) error {
	res, err := Query(r.server, r.timeout, fn)
	if err != nil {
		return err
	}
	return res
}
