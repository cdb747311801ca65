// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"strings"

	"github.com/hashicorp/cli"
)

type ConfigCommand struct {
	Meta
}

func (c *ConfigCommand) Help() string {
	helpText := `
Usage: procpipe config <subcommand> [options] [args]

  This command groups subcommands for interacting with procpipe
  configuration files.

  Validate a configuration file or a directory of .hcl files:

      $ procpipe config validate /etc/procpipe.d

  Please see the individual subcommand help for detailed usage information.
`
	return strings.TrimSpace(helpText)
}

func (c *ConfigCommand) Synopsis() string {
	return "Interact with configurations"
}

func (c *ConfigCommand) Name() string { return "config" }

func (c *ConfigCommand) Run(_ []string) int {
	return cli.RunResultHelp
}
