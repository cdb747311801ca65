// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"strings"

	"github.com/hashicorp/procpipe/process"
	"github.com/hashicorp/procpipe/runner"
	"github.com/posener/complete"
)

type OutputCommand struct {
	Meta
}

func (c *OutputCommand) Help() string {
	helpText := `
Usage: procpipe output [options] <command> [args...]

  Run a command, or a command alias defined in the configuration, to
  completion and print what it wrote to its standard output. Error output is
  only shown when the command fails, in which case its exit code is returned.

General Options:

  ` + generalOptionsUsage(FlagSetConfig) + `

Output Options:

  -trim
    Remove the trailing newline of the output. Defaults to true.
`
	return strings.TrimSpace(helpText)
}

func (c *OutputCommand) Synopsis() string {
	return "Run a command and print its output once it exits"
}

func (c *OutputCommand) AutocompleteFlags() complete.Flags {
	return mergeAutocompleteFlags(c.Meta.AutocompleteFlags(FlagSetConfig),
		complete.Flags{
			"-trim": complete.PredictNothing,
		})
}

func (c *OutputCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictFiles("*")
}

func (c *OutputCommand) Name() string { return "output" }

func (c *OutputCommand) Run(args []string) int {
	var trim bool

	flags := c.Meta.FlagSet(c.Name(), FlagSetConfig)
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.BoolVar(&trim, "trim", true, "")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	args = flags.Args()
	if len(args) < 1 {
		c.Ui.Error("This command takes at least one argument: <command>")
		c.Ui.Error(commandErrorText(c))
		return 1
	}

	cfg, err := c.loadConfig()
	if err != nil {
		c.Ui.Error(errorText("Error loading configuration", err))
		return 1
	}

	logger := c.logger(cfg)
	ui := c.ui(cfg, logger)

	pcfg := cfg.ProcessConfig(args[0], args[1:])
	r := runner.New(logger, cfg.Verbose)
	r.Dir = pcfg.Dir
	r.Env = pcfg.Env

	out, err := r.Output(pcfg.Executable, pcfg.Args...)
	if trim {
		out = strings.TrimSuffix(out, "\n")
	}

	var exitErr *runner.ExitError
	switch {
	case errors.As(err, &exitErr):
		if out != "" {
			ui.Output(out)
		}
		ui.Error(exitErr.Error())
		if stderr := strings.TrimSpace(string(exitErr.Stderr)); stderr != "" {
			ui.Error(stderr)
		}
		if code := exitErr.Status.ExitCode(); code > 0 {
			return code
		}
		return 1
	case errors.Is(err, process.ErrNotFound):
		ui.Error(err.Error())
		return 127
	case err != nil:
		ui.Error(err.Error())
		return 1
	}

	ui.Output(out)
	return 0
}
