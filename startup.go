package main

import (
	"fmt"
	"os"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/backend/wlr"
	"github.com/mstarongithub/way2kiosk/backend/x11"
	"github.com/mstarongithub/way2kiosk/config"
	"github.com/mstarongithub/way2kiosk/launcher"
	"github.com/mstarongithub/way2kiosk/repl"
	"github.com/mstarongithub/way2kiosk/wm"
	"github.com/sirupsen/logrus"
)

func newBackend(kind string) (backend.Backend, error) {
	if kind == "x11" {
		return x11.New(), nil
	}
	wlr.BridgeLogs()
	return wlr.New(kind)
}

// run brings up the backend and blocks in the event loop until something terminates it.
// Errors are returned rather than exiting so the deferred cleanup still happens
func run(kind string, opts options) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	conf := config.Load(path, logrus.StandardLogger())

	b, err := newBackend(kind)
	if err != nil {
		return err
	}
	defer b.Close()
	socket, err := b.Start()
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	if res := os.Getenv(socket.EnvVar); res != "" {
		logrus.WithField(socket.EnvVar, res).Debugln("Display already set, overwriting")
	}
	if err = os.Setenv(socket.EnvVar, socket.Name); err != nil {
		return fmt.Errorf("exporting socket: %w", err)
	}

	server := wm.NewServer(b, conf.Layout)
	remote := wm.NewRemote(server, wm.DefaultQueryTimeout)
	apps := launcher.New()

	commands := conf.Commands()
	server.AfterFunc(conf.AutostartDelay, func() {
		logrus.WithField("count", len(commands)).Infoln("Starting apps")
		apps.StartAll(commands)
	})

	watcher, err := config.Watch(path, logrus.StandardLogger(), func(c *config.Config) {
		if err := remote.SetLayout(c.Layout); err != nil {
			logrus.WithError(err).Warnln("Failed to apply reloaded config")
		}
	})
	if err != nil {
		logrus.WithError(err).Warnln("Config changes will not be picked up")
	} else {
		defer watcher.Close()
	}

	if opts.repl {
		go func() {
			console := repl.NewConsole(remote, apps)
			logrus.Debugln("Starting repl")
			if err := repl.NewRepl(nil, nil).Run(console.Handle); err != nil {
				logrus.WithError(err).Warnln("Repl stopped")
			}
		}()
	}

	if err = server.Run(); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}
