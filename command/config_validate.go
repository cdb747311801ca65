// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"strings"

	"github.com/hashicorp/procpipe/config"
	"github.com/posener/complete"
)

type ConfigValidateCommand struct {
	Meta
}

func (c *ConfigValidateCommand) Help() string {
	helpText := `
Usage: procpipe config validate [options] <config_path...>

  Performs a thorough sanity test on procpipe configuration files. For each
  file or directory given, the validate command will attempt to parse the
  contents just as "procpipe run -config" would and then check the result
  for values that cannot be used, such as an alias without a path.

  Multiple paths are merged in the order given, later ones overriding
  earlier ones.

General Options:

  ` + generalOptionsUsage(FlagSetNone)
	return strings.TrimSpace(helpText)
}

func (c *ConfigValidateCommand) Synopsis() string {
	return "Validate config files/directories"
}

func (c *ConfigValidateCommand) AutocompleteFlags() complete.Flags {
	return c.Meta.AutocompleteFlags(FlagSetNone)
}

func (c *ConfigValidateCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictOr(complete.PredictFiles("*.hcl"), complete.PredictDirs("*"))
}

func (c *ConfigValidateCommand) Name() string { return "config validate" }

func (c *ConfigValidateCommand) Run(args []string) int {
	flags := c.Meta.FlagSet(c.Name(), FlagSetNone)
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return 1
	}

	paths := flags.Args()
	if len(paths) < 1 {
		c.Ui.Error("This command takes at least one argument: <config_path>")
		c.Ui.Error(commandErrorText(c))
		return 1
	}

	cfg := config.DefaultConfig()
	loaded := 0
	for _, path := range paths {
		file, err := config.LoadConfig(path)
		if err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
		loaded += len(file.Files)
		cfg = cfg.Merge(file)
	}

	if loaded == 0 {
		c.Ui.Error(fmt.Sprintf("No configuration files found in %s", strings.Join(paths, ", ")))
		return 1
	}

	if err := cfg.Validate(); err != nil {
		c.Ui.Error(errorText("Configuration is invalid", err))
		return 1
	}

	c.Ui.Output("Configuration is valid!")

	names := cfg.CommandNames()
	if len(names) == 0 {
		return 0
	}

	rows := make([]string, 0, len(names)+1)
	rows = append(rows, "Alias|Command|Dir")
	for _, name := range names {
		alias := cfg.Commands[name]
		pcfg := cfg.ProcessConfig(name, nil)
		rows = append(rows, fmt.Sprintf("%s|%s|%s", name, pcfg, alias.Dir))
	}
	c.Ui.Output("")
	c.Ui.Output(c.Colorize().Color("[bold]Command Aliases[reset]"))
	c.Ui.Output(formatList(rows))
	return 0
}
