// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"github.com/hashicorp/cli"
	"github.com/hashicorp/procpipe/version"
)

// VersionCommand is a Command implementation prints the version.
type VersionCommand struct {
	Version *version.Info
	Ui      cli.Ui
}

func (c *VersionCommand) Help() string {
	return ""
}

func (c *VersionCommand) Name() string { return "version" }

func (c *VersionCommand) Run(_ []string) int {
	c.Ui.Output(c.Version.Full())
	return 0
}

func (c *VersionCommand) Synopsis() string {
	return "Prints the procpipe version"
}
