package wlr

import (
	"fmt"
	"time"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
)

func (b *Backend) handleNewOutput(output wlroots.Output) {
	logrus.WithField("name", output.Name()).Debugln("New output added")

	// Must be done once, before commiting the output
	output.InitRender(b.allocator, b.renderer)

	id := backend.OutputID(b.ids.alloc())
	b.ids.outputs.add(uint64(id), output)

	output.OnFrame(b.handleFrame)
	output.OnRequestState(b.handleOutputRequestState)
	output.OnDestroy(b.handleOutputDestroy)

	// Outputs are arranged left to right in the order they appear, same as the core does
	lOutput := b.outputLayout.AddOutputAuto(output)
	sceneOutput := b.scene.NewOutput(output)
	b.sceneLayout.AddOutput(lOutput, sceneOutput)

	if err := output.SetTitle(fmt.Sprintf("way2kiosk - %s", output.Name())); err != nil {
		logrus.WithError(err).Debugln("Output has no title to set")
	}

	width, height := output.EffectiveResolution()
	b.emit(backend.OutputAdded{
		Output: id,
		Name:   output.Name(),
		Modes:  outputModes(output),
		Width:  width,
		Height: height,
	})
}

func outputModes(output wlroots.Output) []backend.Mode {
	modes := []backend.Mode{}
	for _, m := range output.Modes() {
		modes = append(modes, backend.Mode{
			Width:     int(m.Width()),
			Height:    int(m.Height()),
			Refresh:   int(m.Refresh()),
			Preferred: m.Preferred(),
		})
	}
	return modes
}

// Called every time an output is ready to display a frame, generally at its refresh rate
func (b *Backend) handleFrame(output wlroots.Output) {
	id, ok := b.ids.outputs.id(output)
	if !ok {
		return
	}
	b.emit(backend.OutputFrame{Output: backend.OutputID(id), Time: time.Now()})
}

// Nested outputs request a new mode when their window is resized
func (b *Backend) handleOutputRequestState(output wlroots.Output, state wlroots.OutputState) {
	logrus.WithField("name", output.Name()).Debugln("New state request for output")
	output.CommitState(state)

	id, ok := b.ids.outputs.id(output)
	if !ok {
		return
	}
	width, height := output.EffectiveResolution()
	b.emit(backend.OutputModeChanged{Output: backend.OutputID(id), Width: width, Height: height})
}

func (b *Backend) handleOutputDestroy(output wlroots.Output) {
	logrus.WithField("name", output.Name()).Debugln("Output getting destroyed")
	id, ok := b.ids.outputs.remove(output)
	if !ok {
		return
	}
	b.emit(backend.OutputRemoved{Output: backend.OutputID(id)})
}

func (b *Backend) output(id backend.OutputID) (wlroots.Output, error) {
	output, ok := b.ids.outputs.get(uint64(id))
	if !ok {
		return output, fmt.Errorf("%w: output %d", backend.ErrUnknownHandle, id)
	}
	return output, nil
}

// EnableOutput turns the output on with its preferred mode, both in one commit
func (b *Backend) EnableOutput(id backend.OutputID) error {
	output, err := b.output(id)
	if err != nil {
		return err
	}
	oState := wlroots.NewOutputState()
	oState.StateInit()
	oState.StateSetEnabled(true)
	if mode, err := output.PrefferedMode(); err == nil {
		oState.SetMode(mode)
	}
	defer oState.Finish()
	return commit(output, oState, "enable")
}

// SetOutputMode applies the first mode of the output matching the requested one
func (b *Backend) SetOutputMode(id backend.OutputID, mode backend.Mode) error {
	output, err := b.output(id)
	if err != nil {
		return err
	}
	for _, m := range output.Modes() {
		if int(m.Width()) != mode.Width || int(m.Height()) != mode.Height {
			continue
		}
		if mode.Refresh != 0 && int(m.Refresh()) != mode.Refresh {
			continue
		}
		oState := wlroots.NewOutputState()
		oState.StateInit()
		oState.StateSetEnabled(true)
		oState.SetMode(m)
		defer oState.Finish()
		return commit(output, oState, fmt.Sprintf("set mode %s on", mode))
	}
	return fmt.Errorf("output %d has no mode %s", id, mode)
}

type stateCommitter interface {
	Name() string
	CommitState(wlroots.OutputState) bool
}

// wlroots rejects a state it cannot apply, e.g. a mode the connector refuses
func commit(output stateCommitter, state wlroots.OutputState, what string) error {
	if !output.CommitState(state) {
		return fmt.Errorf("%w: %s output %s", ErrCommitFailed, what, output.Name())
	}
	return nil
}

// Render the scene if needed and commit the output
func (b *Backend) CommitFrame(id backend.OutputID) error {
	output, err := b.output(id)
	if err != nil {
		return err
	}
	sOut, err := b.scene.SceneOutput(output)
	if err != nil {
		return err
	}
	sOut.Commit()
	sOut.SendFrameDone(time.Now())
	return nil
}
