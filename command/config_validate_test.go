// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/procpipe/ci"
	"github.com/shoenig/test/must"
)

func TestConfigValidateCommand_FailWithEmptyDir(t *testing.T) {
	ci.Parallel(t)
	fh := t.TempDir()

	ui := cli.NewMockUi()
	cmd := &ConfigValidateCommand{Meta: Meta{Ui: ui}}

	code := cmd.Run([]string{fh})
	must.One(t, code)
	must.StrContains(t, ui.ErrorWriter.String(), "No configuration files found")
}

func TestConfigValidateCommand_FailWithNoArgs(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &ConfigValidateCommand{Meta: Meta{Ui: ui}}

	must.One(t, cmd.Run(nil))
	must.StrContains(t, ui.ErrorWriter.String(), "procpipe config validate -help")
}

func TestConfigValidateCommand_SucceedWithMinimalConfigFile(t *testing.T) {
	ci.Parallel(t)
	fh := t.TempDir()

	fp := filepath.Join(fh, "config.hcl")
	err := os.WriteFile(fp, []byte(`log_level = "debug"
command "show" {
  path = "wg"
  args = ["show", "wg0"]
  dir  = "/etc/wireguard"
}`), 0644)
	must.NoError(t, err)

	ui := cli.NewMockUi()
	cmd := &ConfigValidateCommand{Meta: Meta{Ui: ui}}

	code := cmd.Run([]string{fh})
	must.Zero(t, code)

	out := ui.OutputWriter.String()
	must.StrContains(t, out, "Configuration is valid!")
	must.StrContains(t, out, "Command Aliases")
	must.StrContains(t, out, "show   wg show wg0  /etc/wireguard")
}

func TestConfigValidateCommand_MergesPaths(t *testing.T) {
	ci.Parallel(t)
	fh := t.TempDir()

	first := filepath.Join(fh, "first.hcl")
	must.NoError(t, os.WriteFile(first, []byte(`command "broken" {}`), 0644))

	second := filepath.Join(fh, "second.hcl")
	must.NoError(t, os.WriteFile(second, []byte(`command "broken" { path = "true" }`), 0644))

	ui := cli.NewMockUi()
	cmd := &ConfigValidateCommand{Meta: Meta{Ui: ui}}

	must.One(t, cmd.Run([]string{first}))
	must.StrContains(t, ui.ErrorWriter.String(), `command "broken": missing path`)

	ui = cli.NewMockUi()
	cmd = &ConfigValidateCommand{Meta: Meta{Ui: ui}}
	must.Zero(t, cmd.Run([]string{first, second}))
}

func TestConfigValidateCommand_FailOnParseBadConfigFile(t *testing.T) {
	ci.Parallel(t)
	fh := t.TempDir()

	fp := filepath.Join(fh, "config.hcl")
	err := os.WriteFile(fp, []byte(`a: b`), 0644)
	must.NoError(t, err)

	ui := cli.NewMockUi()
	cmd := &ConfigValidateCommand{Meta: Meta{Ui: ui}}

	code := cmd.Run([]string{fh})
	must.One(t, code)
}

func TestConfigValidateCommand_FailOnValidateBadConfigFile(t *testing.T) {
	ci.Parallel(t)
	fh := t.TempDir()

	fp := filepath.Join(fh, "config.hcl")
	err := os.WriteFile(fp, []byte(`poll_interval = "-1s"`), 0644)
	must.NoError(t, err)

	ui := cli.NewMockUi()
	cmd := &ConfigValidateCommand{Meta: Meta{Ui: ui}}

	code := cmd.Run([]string{fh})
	must.One(t, code)
	must.StrContains(t, ui.ErrorWriter.String(), "Configuration is invalid")
	must.StrContains(t, ui.ErrorWriter.String(), "poll_interval must be positive")
}
