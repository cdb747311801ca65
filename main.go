// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/procpipe/command"
	"github.com/hashicorp/procpipe/version"
)

func main() {
	os.Exit(Run(os.Args[1:]))
}

func Run(args []string) int {
	// Parse flags into env vars for global use
	args = setupEnv(args)

	meta := new(command.Meta)
	meta.SetupUi(args)

	commands := command.Commands(meta)
	cli := &cli.CLI{
		Name:                       "procpipe",
		Version:                    version.Get().Full(),
		Args:                       args,
		Commands:                   commands,
		Autocomplete:               true,
		AutocompleteNoDefaultFlags: true,
		HelpFunc:                   helpFunc(commands),
		HelpWriter:                 os.Stdout,
	}

	exitCode, err := cli.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err.Error())
		return 1
	}

	return exitCode
}

// setupEnv turns the global color flags into environment variables so that
// every command sees them.
func setupEnv(args []string) []string {
	noColor := false
	forceColor := false
	for _, arg := range args {
		// Check if color is set
		if arg == "-no-color" || arg == "--no-color" {
			noColor = true
		} else if arg == "-force-color" || arg == "--force-color" {
			forceColor = true
		}
	}

	// Put back into the env for later
	if noColor {
		os.Setenv(command.EnvProcpipeCLINoColor, "true")
	}
	if forceColor {
		os.Setenv(command.EnvProcpipeCLIForceColor, "true")
	}

	return args
}

// helpFunc lists the top level commands only, subcommands are listed by the
// help of their parent.
func helpFunc(commands map[string]cli.CommandFactory) cli.HelpFunc {
	return func(all map[string]cli.CommandFactory) string {
		var b strings.Builder
		b.WriteString("Usage: procpipe [-version] [-help] [-autocomplete-(un)install] <command> [args]\n\n")
		b.WriteString("Available commands are:\n")

		names := make([]string, 0, len(all))
		width := 0
		for name := range all {
			if strings.Contains(name, " ") {
				continue
			}
			names = append(names, name)
			if len(name) > width {
				width = len(name)
			}
		}
		sort.Strings(names)

		for _, name := range names {
			cmd, err := commands[name]()
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "    %-*s    %s\n", width, name, cmd.Synopsis())
		}
		return b.String()
	}
}
