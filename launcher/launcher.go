// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package launcher

import (
	"errors"
	"io"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"
)

const DefaultShell = "/bin/sh"

// Launcher starts shell commands as detached children
type Launcher struct {
	Shell string
	// Where the children's stdout and stderr go. Nil discards
	Output io.Writer
}

func New() *Launcher {
	return &Launcher{Shell: DefaultShell}
}

// A started child
type Process struct {
	Command  string
	Pid      int
	done     chan struct{}
	exitCode int
}

// Wait blocks until the child exited and returns its exit code, -1 if it got killed
func (p *Process) Wait() int {
	<-p.done
	return p.exitCode
}

// Spawn runs command through the shell in a session of its own, so it outlives us
// and doesn't get our terminal's signals.
// Only failing to start is an error, the exit status is logged once the child is gone
func (l *Launcher) Spawn(command string) (*Process, error) {
	shell := l.Shell
	if shell == "" {
		shell = DefaultShell
	}
	cmd := exec.Command(shell, "-c", command)
	cmd.Stdout = l.Output
	cmd.Stderr = l.Output
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).WithField("command", command).Errorln("Command failed to start")
		return nil, err
	}

	p := &Process{
		Command: command,
		Pid:     cmd.Process.Pid,
		done:    make(chan struct{}),
	}
	logrus.WithFields(logrus.Fields{
		"command": command,
		"pid":     p.Pid,
	}).Infoln("Started command")
	go func() {
		defer close(p.done)
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.exitCode = exitErr.ExitCode()
			logrus.WithError(err).WithFields(logrus.Fields{
				"exit-code": p.exitCode,
				"command":   command,
			}).Warningln("Bad command completion")
			return
		}
		if err != nil {
			p.exitCode = -1
			logrus.WithError(err).WithField("command", command).Warningln("Waiting for command failed")
			return
		}
		logrus.WithField("command", command).Debugln("Command finished")
	}()
	return p, nil
}

// StartAll spawns every command in order. Failures are logged and skipped
func (l *Launcher) StartAll(commands []string) []*Process {
	started := make([]*Process, 0, len(commands))
	for _, command := range commands {
		p, err := l.Spawn(command)
		if err != nil {
			continue
		}
		started = append(started, p)
	}
	return started
}
