// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package command

import (
	"io"
	"testing"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/procpipe/ci"
	"github.com/shoenig/test/must"
)

func TestOutputCommand_Implements(t *testing.T) {
	ci.Parallel(t)
	var _ cli.Command = &OutputCommand{}
}

func TestOutputCommand_Run(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &OutputCommand{Meta: Meta{Ui: ui, LogOutput: io.Discard}}

	code := cmd.Run([]string{"-config", testConfig(t, ""), "task", "echo", "hello", "stderr", "hidden"})
	must.Zero(t, code)
	must.Eq(t, "hello\n", ui.OutputWriter.String())
	must.Eq(t, "", ui.ErrorWriter.String())
}

func TestOutputCommand_NoTrim(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &OutputCommand{Meta: Meta{Ui: ui, LogOutput: io.Discard}}

	code := cmd.Run([]string{"-config", testConfig(t, ""), "-trim=false", "task", "echo", "hello"})
	must.Zero(t, code)
	must.Eq(t, "hello\n\n", ui.OutputWriter.String())
}

func TestOutputCommand_Fails(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &OutputCommand{Meta: Meta{Ui: ui, LogOutput: io.Discard}}

	code := cmd.Run([]string{"-config", testConfig(t, ""),
		"task", "echo", "partial", "stderr", "boom", "exit", "2"})
	must.Eq(t, 2, code)
	must.Eq(t, "partial\n", ui.OutputWriter.String())
	must.StrContains(t, ui.ErrorWriter.String(), "failed with exit code 2")
	must.StrContains(t, ui.ErrorWriter.String(), "boom")
}

func TestOutputCommand_NotFound(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &OutputCommand{Meta: Meta{Ui: ui, LogOutput: io.Discard}}

	must.Eq(t, 127, cmd.Run([]string{"procpipe-missing-executable"}))
	must.StrContains(t, ui.ErrorWriter.String(), "failed to launch")
}

func TestOutputCommand_NoArgs(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &OutputCommand{Meta: Meta{Ui: ui}}

	must.One(t, cmd.Run(nil))
	must.StrContains(t, ui.ErrorWriter.String(), "procpipe output -help")
}
