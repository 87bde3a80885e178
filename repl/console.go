package repl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mstarongithub/way2kiosk/common/ipc"
	"github.com/mstarongithub/way2kiosk/launcher"
	"github.com/mstarongithub/way2kiosk/tiler"
	"github.com/sirupsen/logrus"
)

// Session is what the console needs from a running core
type Session interface {
	Outputs(req ipc.OutputRequest) (ipc.OutputResponse, error)
	Windows() (ipc.WindowResponse, error)
	Focus(id uint64) error
	CycleFocus() error
	SetPolicy(p tiler.Policy) error
	Quit()
}

const helpText = `Commands:
	outputs          list outputs with their windows
	modes <output>   list the modes of an output
	windows          list windows and focus
	focus [id]       focus a window, or the next one on the focused output
	layout <policy>  switch to kiosk, tile, monocle or grid
	run <command>    start a command through the shell
	quit             stop the compositor`

// Console answers operator commands on stdin, e.g. while debugging a kiosk
type Console struct {
	session  Session
	launcher *launcher.Launcher
}

func NewConsole(session Session, l *launcher.Launcher) *Console {
	return &Console{session: session, launcher: l}
}

// Unpacks a slice into arguments
// If the slice has less elements than variables passed in, the rest of the variables are not modified
// If the slice has more elements than the variables passed in, the additional elements are ignored
func unpack[T any](toUnpack []T, unpackInto ...*T) {
	for i := range min(len(toUnpack), len(unpackInto)) {
		*unpackInto[i] = toUnpack[i]
	}
}

// Handle is a MessageHandler. Failed commands are answered, they don't end the repl
func (c *Console) Handle(input string, r *Repl) (string, error) {
	var cmd, args string
	unpack(strings.SplitN(input, " ", 2), &cmd, &args)
	args = strings.TrimSpace(args)
	logrus.WithFields(logrus.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debugln("Parsed console command")

	switch cmd {
	case "outputs":
		return answer(c.session.Outputs(ipc.OutputRequest{}))
	case "modes":
		if args == "" {
			return "Output has to be specified", nil
		}
		res, err := c.session.Outputs(ipc.OutputRequest{IncludeModes: true, SpecifiesOutput: true, TargetOutput: args})
		if err == nil && res.OutputsFound == 0 {
			return fmt.Sprintf("Output %s not found", args), nil
		}
		return answer(res.OutputModes[args], err)
	case "windows":
		return answer(c.session.Windows())
	case "focus":
		if args == "" {
			return result("Focused next window", c.session.CycleFocus())
		}
		id, err := strconv.ParseUint(args, 10, 64)
		if err != nil {
			return fmt.Sprintf("Bad window id %q", args), nil
		}
		return result(fmt.Sprintf("Focused window %d", id), c.session.Focus(id))
	case "layout":
		p, err := tiler.ParsePolicy(args)
		if err != nil {
			return "Error: " + err.Error(), nil
		}
		return result("Layout "+p.String(), c.session.SetPolicy(p))
	case "run":
		if args == "" {
			return "Nothing to run", nil
		}
		proc, err := c.launcher.Spawn(args)
		if err != nil {
			return "Error: " + err.Error(), nil
		}
		return fmt.Sprintf("Running %s (pid %d)", args, proc.Pid), nil
	case "quit":
		c.session.Quit()
		return "Quitting", ErrStop
	case "help":
		return helpText, nil
	default:
		return "Unknown command, try help", nil
	}
}

func answer[T any](v T, err error) (string, error) {
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func result(ok string, err error) (string, error) {
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	return ok, nil
}
