// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"testing"
	"time"

	"github.com/hashicorp/procpipe/ci"
	"github.com/hashicorp/procpipe/version"
	"github.com/shoenig/test/must"
)

func TestConfig_Merge(t *testing.T) {
	ci.Parallel(t)

	base := DefaultConfig()
	base.Env["A"] = "1"
	base.Commands["show"] = &Command{Name: "show", Path: "wg"}

	other := &Config{
		LogLevel:     "DEBUG",
		Verbose:      true,
		PollInterval: time.Second,
		Capture:      &Capture{Stderr: boolToPtr(false)},
		Env:          map[string]string{"A": "2", "B": "3"},
		Commands: map[string]*Command{
			"show": {Name: "show", Path: "/usr/bin/wg", Args: []string{"show"}},
		},
	}

	result := base.Merge(other)
	must.Eq(t, "DEBUG", result.LogLevel)
	must.True(t, result.Verbose)
	must.Eq(t, time.Second, result.PollInterval)
	must.True(t, *result.Capture.Stdout)
	must.False(t, *result.Capture.Stderr)
	must.MapEq(t, map[string]string{"A": "2", "B": "3"}, result.Env)
	must.Eq(t, "/usr/bin/wg", result.Commands["show"].Path)

	// neither side is modified
	must.Eq(t, "INFO", base.LogLevel)
	must.True(t, *base.Capture.Stderr)
	must.Eq(t, "1", base.Env["A"])
	must.Eq(t, "wg", base.Commands["show"].Path)

	other.Commands["show"].Args[0] = "changed"
	must.Eq(t, "show", result.Commands["show"].Args[0])

	must.Eq(t, base.LogLevel, base.Merge(nil).LogLevel)
}

func TestConfig_Validate(t *testing.T) {
	ci.Parallel(t)

	must.NoError(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.LogLevel = "loud"
	c.PollInterval = 0
	c.Timeout = -time.Second
	c.Commands["broken"] = &Command{Name: "broken"}

	err := c.Validate()
	must.ErrorContains(t, err, `invalid log level "loud"`)
	must.ErrorContains(t, err, "poll_interval must be positive")
	must.ErrorContains(t, err, "timeout must not be negative")
	must.ErrorContains(t, err, `command "broken": missing path`)
}

func TestConfig_ProcessConfig(t *testing.T) {
	ci.Parallel(t)

	c := DefaultConfig()
	c.Dir = "/srv"
	c.Verbose = true
	c.Capture.Stderr = boolToPtr(false)
	c.Env = map[string]string{"B": "global", "A": "global"}
	c.Commands["up"] = &Command{
		Name: "up",
		Path: "wg-quick",
		Args: []string{"up"},
		Dir:  "/etc/wireguard",
		Env:  map[string]string{"A": "alias"},
	}

	t.Run("plain", func(t *testing.T) {
		cfg := c.ProcessConfig("ls", []string{"-l"})
		must.Eq(t, "ls", cfg.Executable)
		must.Eq(t, []string{"-l"}, cfg.Args)
		must.Eq(t, "/srv", cfg.Dir)
		must.True(t, cfg.Verbose)
		must.True(t, cfg.CaptureStdout)
		must.False(t, cfg.CaptureStderr)
		must.Eq(t, []string{"A=global", "B=global"}, cfg.Env)
	})

	t.Run("alias", func(t *testing.T) {
		cfg := c.ProcessConfig("up", []string{"wg0"})
		must.Eq(t, "wg-quick", cfg.Executable)
		must.Eq(t, []string{"up", "wg0"}, cfg.Args)
		must.Eq(t, "/etc/wireguard", cfg.Dir)
		must.Eq(t, []string{"A=alias", "B=global"}, cfg.Env)

		// the alias itself is left untouched
		must.Eq(t, []string{"up"}, c.Commands["up"].Args)
		must.Eq(t, "global", c.Env["A"])
	})
}

func TestConfig_CommandNames(t *testing.T) {
	ci.Parallel(t)

	c := DefaultConfig()
	must.SliceEmpty(t, c.CommandNames())

	c.Commands["up"] = &Command{}
	c.Commands["down"] = &Command{}
	must.Eq(t, []string{"down", "up"}, c.CommandNames())
}

func TestConfig_checkVersion(t *testing.T) {
	ci.Parallel(t)

	v := &version.Info{Version: "0.3.1", Prerelease: "dev"}

	must.NoError(t, checkVersion(">= 0.3", v))
	must.NoError(t, checkVersion("~> 0.3.0", v))
	must.ErrorContains(t, checkVersion(">= 1.0", v), `does not satisfy required_version ">= 1.0"`)
	must.ErrorContains(t, checkVersion("not a version", v), "invalid required_version")

	c := DefaultConfig()
	c.RequiredVersion = "< 0.0.1"
	must.ErrorContains(t, c.Validate(), "does not satisfy required_version")
}
