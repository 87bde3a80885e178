// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/mstarongithub/way2kiosk/backend/wlr"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	logLevel   string
	repl       bool
}

func backendKinds() []string {
	return append(wlr.Kinds(), "x11")
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "way2kiosk <wayland|drm|x11>",
		Short: "way2kiosk - a kiosk and tiling display server",
		Long: `way2kiosk runs applications fullscreen or tiled, one seat, no decorations.
wayland runs nested inside another compositor, drm takes over the GPU directly,
x11 manages the windows of an already running X server.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one backend, one of %v", backendKinds())
			}
			if !slices.Contains(backendKinds(), args[0]) {
				return fmt.Errorf("unknown backend %q, expected one of %v", args[0], backendKinds())
			}
			return nil
		},
		ValidArgs: backendKinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to the config file (default $HOME/.hackeros/Hacker-Mode/config.toml)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "one of panic, fatal, error, warn, info, debug, trace")
	cmd.Flags().BoolVar(&opts.repl, "repl", false, "read commands from stdin, type help for a list")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
