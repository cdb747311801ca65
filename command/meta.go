// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/procpipe/config"
	"github.com/hashicorp/procpipe/helper/logging"
	colorable "github.com/mattn/go-colorable"
	"github.com/mitchellh/colorstring"
	"github.com/mitchellh/go-homedir"
	"github.com/posener/complete"
	"golang.org/x/term"
)

// FlagSetFlags is an enum to define what flags are present in the
// default FlagSet returned by Meta.FlagSet.
type FlagSetFlags uint

const (
	FlagSetNone    FlagSetFlags = 0
	FlagSetConfig  FlagSetFlags = 1 << iota
	FlagSetDefault              = FlagSetConfig
)

// Meta contains the meta-options and functionality that nearly every
// procpipe command inherits.
type Meta struct {
	Ui cli.Ui

	// LogOutput receives the logs of commands. Defaults to stderr.
	LogOutput io.Writer

	// Whether to not-colorize output
	noColor bool

	// Whether to force colorized output
	forceColor bool

	// These are set by the command line flags.
	configPath string
	logLevel   string
	logJSON    bool
	verbose    bool
}

// FlagSet returns a FlagSet with the common flags that every
// command implements. The exact behavior of FlagSet can be configured
// using the flags as the second parameter, for example to disable
// configuration loading on commands that don't need it.
func (m *Meta) FlagSet(n string, fs FlagSetFlags) *flag.FlagSet {
	f := flag.NewFlagSet(n, flag.ContinueOnError)

	// note: color flags are present on every command since errors are
	// always colored
	f.BoolVar(&m.noColor, "no-color", false, "")
	f.BoolVar(&m.forceColor, "force-color", false, "")

	if fs&FlagSetConfig != 0 {
		f.StringVar(&m.configPath, "config", os.Getenv(EnvProcpipeConfig), "")
		f.StringVar(&m.logLevel, "log-level", "", "")
		f.BoolVar(&m.logJSON, "log-json", false, "")
		f.BoolVar(&m.verbose, "verbose", false, "")
	}

	f.SetOutput(&uiErrorWriter{ui: m.Ui})

	return f
}

// AutocompleteFlags returns a set of flag completions for the given flag set.
func (m *Meta) AutocompleteFlags(fs FlagSetFlags) complete.Flags {
	flags := complete.Flags{
		"-no-color":    complete.PredictNothing,
		"-force-color": complete.PredictNothing,
	}
	if fs&FlagSetConfig == 0 {
		return flags
	}

	return mergeAutocompleteFlags(flags, complete.Flags{
		"-config":    complete.PredictOr(complete.PredictFiles("*.hcl"), complete.PredictDirs("*")),
		"-log-level": complete.PredictSet("TRACE", "DEBUG", "INFO", "WARN", "ERROR"),
		"-log-json":  complete.PredictNothing,
		"-verbose":   complete.PredictNothing,
	})
}

// loadConfig returns the default configuration overlaid with the file or
// directory given by -config and then with the command line flags.
func (m *Meta) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	if m.configPath != "" {
		path, err := homedir.Expand(m.configPath)
		if err != nil {
			return nil, err
		}
		file, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(file)
	}

	if m.logLevel != "" {
		cfg.LogLevel = m.logLevel
	}
	if m.logJSON {
		cfg.LogJSON = true
	}
	if m.verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger returns the logger of a command run with cfg.
func (m *Meta) logger(cfg *config.Config) hclog.Logger {
	out := m.LogOutput
	if out == nil {
		out = os.Stderr
	}

	// hclog can only detect terminals behind files
	color := hclog.ColorOff
	if _, ok := out.(*os.File); ok && !cfg.LogJSON && !m.noColor {
		color = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "procpipe",
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: cfg.LogJSON,
		Output:     out,
		Color:      color,
	})
}

// ui returns the Ui a command run with cfg writes its messages to. With
// JSON logging messages become log lines too.
func (m *Meta) ui(cfg *config.Config, logger hclog.Logger) cli.Ui {
	if cfg.LogJSON {
		return &logging.HcLogUI{Log: logger}
	}
	return m.Ui
}

func (m *Meta) Colorize() *colorstring.Colorize {
	_, coloredUi := m.Ui.(*cli.ColoredUi)

	return &colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: !coloredUi || m.noColor,
		Reset:   true,
	}
}

func (m *Meta) SetupUi(args []string) {
	noColor := os.Getenv(EnvProcpipeCLINoColor) != ""
	forceColor := os.Getenv(EnvProcpipeCLIForceColor) != ""

	for _, arg := range args {
		// Check if color is set
		if arg == "-no-color" || arg == "--no-color" {
			noColor = true
		} else if arg == "-force-color" || arg == "--force-color" {
			forceColor = true
		}
	}

	m.Ui = &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      colorable.NewColorableStdout(),
		ErrorWriter: colorable.NewColorableStderr(),
	}

	// Only use colored UI if not disabled and stdout is a tty or colors are
	// forced.
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	useColor := !noColor && (isTerminal || forceColor)
	if useColor {
		m.Ui = &cli.ColoredUi{
			ErrorColor: cli.UiColorRed,
			WarnColor:  cli.UiColorYellow,
			InfoColor:  cli.UiColorGreen,
			Ui:         m.Ui,
		}
	}
}

// generalOptionsUsage returns the help string for the global options.
func generalOptionsUsage(fs FlagSetFlags) string {
	configText := `
  -config=<path>
    Path to a configuration file or a directory of .hcl configuration files.
    Overrides the PROCPIPE_CONFIG environment variable if set.

  -log-level=<level>
    Level of the logs of procpipe itself, one of TRACE, DEBUG, INFO, WARN and
    ERROR. Defaults to the log_level of the configuration, or INFO.

  -log-json
    Output logs, and messages, as JSON lines.

  -verbose
    Log the command line of every command before running it.
`

	// note: that although very few commands use color explicitly, all of them
	// return red-colored text on error so we want the color flags to always be
	// present in the help messages.
	colorText := `
  -no-color
    Disables colored command output. Alternatively, PROCPIPE_CLI_NO_COLOR may
    be set. This option takes precedence over -force-color.

  -force-color
    Forces colored command output. This can be used in cases where the usual
    terminal detection fails. Alternatively, PROCPIPE_CLI_FORCE_COLOR may be
    set. This option has no effect if -no-color is also used.
`

	helpText := colorText
	if fs&FlagSetConfig != 0 {
		helpText = configText + colorText
	}
	return strings.TrimSpace(helpText)
}

// errorText formats an error for the Ui.
func errorText(msg string, err error) string {
	return fmt.Sprintf("%s: %s", msg, err)
}
