// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/adrg/xdg"
	"github.com/mstarongithub/way2kiosk/tiler"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

const DefaultAutostartDelay = 500 * time.Millisecond

// Config is everything way2kiosk reads from its config file
type Config struct {
	Layout tiler.LayoutConfig
	// Commands to autostart, keyed by an arbitrary name
	Apps map[string]string
	// How long to wait after the socket is up before launching Apps
	AutostartDelay time.Duration
}

// What the file on disk looks like. Pointers tell "unset" apart from zero
type fileConfig struct {
	Config struct {
		Gap              *int   `toml:"gap"`
		MasterFactor     *int   `toml:"master_factor"`
		MasterCount      *int   `toml:"master_count"`
		Layout           string `toml:"layout"`
		AutostartDelayMs *int   `toml:"autostart_delay_ms"`
	} `toml:"config"`
	// Values that aren't strings are skipped with a warning
	Apps map[string]any `toml:"apps"`
}

// Defaults: kiosk policy, gap 10, master factor 60, nothing to autostart
func Default() *Config {
	return &Config{
		Layout:         tiler.DefaultLayoutConfig(),
		Apps:           map[string]string{},
		AutostartDelay: DefaultAutostartDelay,
	}
}

// DefaultPath is ~/.hackeros/Hacker-Mode/config.toml
func DefaultPath() string {
	return filepath.Join(xdg.Home, ".hackeros", "Hacker-Mode", "config.toml")
}

// Commands returns the autostart commands ordered by their key
func (c *Config) Commands() []string {
	keys := make([]string, 0, len(c.Apps))
	for k := range c.Apps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cmds := make([]string, 0, len(keys))
	for _, k := range keys {
		cmds = append(cmds, c.Apps[k])
	}
	return cmds
}

// Parse decodes a config file.
// A malformed document is an error, the position is included when the decoder knows it.
// Out of range values are not: they get clamped and reported as warnings
func Parse(data []byte) (*Config, []string, error) {
	var raw fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, nil, fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, nil, err
	}

	cfg := Default()
	warnings := []string{}
	if raw.Config.Gap != nil {
		cfg.Layout.Gap = *raw.Config.Gap
	}
	if raw.Config.MasterFactor != nil {
		cfg.Layout.MasterFactor = *raw.Config.MasterFactor
	}
	if raw.Config.MasterCount != nil {
		cfg.Layout.MasterCount = *raw.Config.MasterCount
	}
	if raw.Config.Layout != "" {
		policy, err := tiler.ParsePolicy(raw.Config.Layout)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("layout: %s, using %s", err, cfg.Layout.Policy))
		} else {
			cfg.Layout.Policy = policy
		}
	}
	if raw.Config.AutostartDelayMs != nil {
		if *raw.Config.AutostartDelayMs < 0 {
			warnings = append(warnings, fmt.Sprintf("autostart_delay_ms must be >= 0, got %d", *raw.Config.AutostartDelayMs))
		} else {
			cfg.AutostartDelay = time.Duration(*raw.Config.AutostartDelayMs) * time.Millisecond
		}
	}
	if err := cfg.Layout.Validate(); err != nil {
		warnings = append(warnings, err.Error())
		cfg.Layout = cfg.Layout.Clamped()
	}

	for key, value := range raw.Apps {
		cmd, ok := value.(string)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("apps.%s is not a string, skipping", key))
			continue
		}
		cfg.Apps[key] = cmd
	}
	sort.Strings(warnings)
	return cfg, warnings, nil
}

// Load reads the config file at path.
// Never fails: a missing or malformed file yields the defaults and a logged warning
func Load(path string, log logrus.FieldLogger) *Config {
	log = log.WithField("path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warnln("Config file not found, using defaults")
		} else {
			log.WithError(err).Warnln("Failed to read config file, using defaults")
		}
		return Default()
	}

	cfg, warnings, err := Parse(data)
	if err != nil {
		log.WithError(err).Warnln("Failed to parse config file, using defaults")
		return Default()
	}
	for _, w := range warnings {
		log.Warnln("Config: " + w)
	}
	log.WithFields(logrus.Fields{
		"layout":        cfg.Layout.Policy,
		"gap":           cfg.Layout.Gap,
		"master_factor": cfg.Layout.MasterFactor,
		"master_count":  cfg.Layout.MasterCount,
		"apps":          len(cfg.Apps),
	}).Debugln("Loaded config")
	return cfg
}
