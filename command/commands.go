// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"os"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/procpipe/version"
	colorable "github.com/mattn/go-colorable"
)

const (
	// EnvProcpipeCLINoColor is an env var that toggles colored UI output.
	EnvProcpipeCLINoColor = `PROCPIPE_CLI_NO_COLOR`

	// EnvProcpipeCLIForceColor is an env var that forces colored UI output.
	EnvProcpipeCLIForceColor = `PROCPIPE_CLI_FORCE_COLOR`

	// EnvProcpipeConfig is an env var naming the configuration file or
	// directory used when -config is not given.
	EnvProcpipeConfig = `PROCPIPE_CONFIG`
)

// NamedCommand is implemented by commands that know their own name.
type NamedCommand interface {
	Name() string
}

// Commands returns the mapping of CLI commands for procpipe. The meta
// parameter lets you set meta options for all commands.
func Commands(metaPtr *Meta) map[string]cli.CommandFactory {
	if metaPtr == nil {
		metaPtr = new(Meta)
	}

	meta := *metaPtr
	if meta.Ui == nil {
		meta.Ui = &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      colorable.NewColorableStdout(),
			ErrorWriter: colorable.NewColorableStderr(),
		}
	}

	all := map[string]cli.CommandFactory{
		"config": func() (cli.Command, error) {
			return &ConfigCommand{
				Meta: meta,
			}, nil
		},
		"config validate": func() (cli.Command, error) {
			return &ConfigValidateCommand{
				Meta: meta,
			}, nil
		},
		"output": func() (cli.Command, error) {
			return &OutputCommand{
				Meta: meta,
			}, nil
		},
		"run": func() (cli.Command, error) {
			return &RunCommand{
				Meta: meta,
			}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{
				Version: version.Get(),
				Ui:      meta.Ui,
			}, nil
		},
	}

	return all
}
