// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-envparse"
	flaghelper "github.com/hashicorp/procpipe/helper/flags"
	"github.com/hashicorp/procpipe/process"
	"github.com/mitchellh/go-homedir"
	"github.com/posener/complete"
)

type RunCommand struct {
	Meta

	// Stdin is forwarded to the command with -stdin. Defaults to os.Stdin.
	Stdin io.Reader
}

func (c *RunCommand) Help() string {
	helpText := `
Usage: procpipe run [options] <command> [args...]

  Run a command, or a command alias defined in the configuration, and stream
  its output line by line until it exits. The exit code of the command is the
  exit code of procpipe run, 128 plus the signal number if it was killed.

  The command runs in its own process group. Any process it leaves behind is
  killed once it exits.

General Options:

  ` + generalOptionsUsage(FlagSetConfig) + `

Run Options:

  -stdin
    Forward lines read from the standard input of procpipe to the command.
    Without it the command's standard input is closed.

  -timeout=<duration>
    Kill the command and its process group when it runs longer than the
    given duration. Overrides the timeout of the configuration.

  -no-capture
    Let the command write to the terminal directly instead of reading its
    output through pipes.

  -dir=<path>
    Working directory of the command.

  -env=<key=value>
    Add a variable to the environment of the command. May be repeated.

  -env-file=<path>
    Add the variables of a file of KEY=VALUE lines to the environment of the
    command. Variables given with -env take precedence.

  -prefix
    Prefix every line with the stream it was read from.
`
	return strings.TrimSpace(helpText)
}

func (c *RunCommand) Synopsis() string {
	return "Run a command and stream its output"
}

func (c *RunCommand) AutocompleteFlags() complete.Flags {
	return mergeAutocompleteFlags(c.Meta.AutocompleteFlags(FlagSetConfig),
		complete.Flags{
			"-stdin":      complete.PredictNothing,
			"-timeout":    complete.PredictAnything,
			"-no-capture": complete.PredictNothing,
			"-dir":        complete.PredictDirs("*"),
			"-env":        complete.PredictAnything,
			"-env-file":   complete.PredictFiles("*"),
			"-prefix":     complete.PredictNothing,
		})
}

func (c *RunCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictOr(
		complete.PredictFunc(func(complete.Args) []string {
			cfg, err := c.loadConfig()
			if err != nil {
				return nil
			}
			return cfg.CommandNames()
		}),
		complete.PredictFiles("*"),
	)
}

func (c *RunCommand) Name() string { return "run" }

func (c *RunCommand) Run(args []string) int {
	var stdin, noCapture, prefix bool
	var timeout time.Duration
	var dir, envFile string
	var env flaghelper.KVFlag

	flags := c.Meta.FlagSet(c.Name(), FlagSetConfig)
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.BoolVar(&stdin, "stdin", false, "")
	flags.DurationVar(&timeout, "timeout", 0, "")
	flags.BoolVar(&noCapture, "no-capture", false, "")
	flags.StringVar(&dir, "dir", "", "")
	flags.Var(&env, "env", "")
	flags.StringVar(&envFile, "env-file", "", "")
	flags.BoolVar(&prefix, "prefix", false, "")

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
	if timeout == 0 {
		timeout = cfg.Timeout
	}
	if timeout < 0 {
		c.Ui.Error("The -timeout value must not be negative")
		return 1
	}

	logger := c.logger(cfg)
	ui := c.ui(cfg, logger)

	pcfg := cfg.ProcessConfig(args[0], args[1:])
	pcfg.Logger = logger
	if dir != "" {
		if pcfg.Dir, err = homedir.Expand(dir); err != nil {
			c.Ui.Error(errorText("Error expanding -dir", err))
			return 1
		}
	}
	if envFile != "" {
		fileEnv, err := readEnvFile(envFile)
		if err != nil {
			c.Ui.Error(errorText("Error reading -env-file", err))
			return 1
		}
		pcfg.Env = append(pcfg.Env, fileEnv...)
	}
	pcfg.Env = append(pcfg.Env, env...)
	if noCapture {
		pcfg.CaptureStdout = false
		pcfg.CaptureStderr = false
	}

	proc, err := process.Spawn(pcfg)
	if err != nil {
		ui.Error(err.Error())
		if errors.Is(err, process.ErrNotFound) {
			return 127
		}
		return 1
	}
	defer proc.Close()

	var lines <-chan string
	if stdin {
		done := make(chan struct{})
		defer close(done)
		lines = c.forwardStdin(done)
	} else if err := proc.CloseStdin(); err != nil {
		logger.Warn("failed to close stdin", "error", err)
	}

	out := &lineWriter{ui: ui}
	if prefix {
		colorize := c.Colorize()
		out.stdoutPrefix = colorize.Color("[green]stdout |[reset] ")
		out.stderrPrefix = colorize.Color("[red]stderr |[reset] ")
	}

	start := time.Now()
	var deadline time.Time
	if timeout > 0 {
		deadline = start.Add(timeout)
	}

	var stdout, stderr bytes.Buffer
	timedOut := false
	for {
		lines = forwardLines(proc, lines)

		if proc.OutputClosed() {
			time.Sleep(cfg.PollInterval)
		} else {
			proc.PollInto(&stdout, &stderr, cfg.PollInterval)
			out.write(&stdout, &stderr)
		}

		if !proc.IsAlive() {
			// whatever the command wrote before exiting may still be queued
			for !proc.OutputClosed() && proc.PollInto(&stdout, &stderr, 0) {
				out.write(&stdout, &stderr)
			}
			break
		}

		if !timedOut && !deadline.IsZero() && time.Now().After(deadline) {
			timedOut = true
			ui.Warn(wrapAtLength(fmt.Sprintf(
				"Command %s did not finish within %s and is being killed along with any process it started.",
				pcfg, timeout)))
			if err := proc.TerminateAll(); err != nil {
				logger.Warn("failed to terminate command", "error", err)
			}
		}
	}
	out.flush(&stdout, &stderr)

	status, err := proc.Wait()
	if err != nil {
		ui.Error(errorText("Error waiting for command", err))
		return 1
	}

	if cfg.Verbose {
		ui.Output(formatKV([]string{
			fmt.Sprintf("Command|%s", pcfg),
			fmt.Sprintf("PID|%d", proc.Pid()),
			fmt.Sprintf("Status|%s", status),
			fmt.Sprintf("Duration|%s", time.Since(start).Round(time.Millisecond)),
			fmt.Sprintf("Stdout|%s in %s lines", humanize.Bytes(out.stdoutBytes), humanize.Comma(out.stdoutLines)),
			fmt.Sprintf("Stderr|%s in %s lines", humanize.Bytes(out.stderrBytes), humanize.Comma(out.stderrLines)),
		}))
	}

	code := status.ExitCode()
	if code < 0 {
		return 1
	}
	return code
}

// readEnvFile parses a file of KEY=VALUE lines into assignments sorted by
// key.
func readEnvFile(path string) ([]string, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vars, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}

// forwardStdin scans the lines of Stdin in the background until it is
// exhausted or done is closed. The returned channel is closed at end of
// input.
func (c *RunCommand) forwardStdin(done <-chan struct{}) <-chan string {
	r := c.Stdin
	if r == nil {
		r = os.Stdin
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// forwardLines sends the lines already read from stdin to proc. Once input
// is exhausted the stdin of proc is closed and nil is returned.
func forwardLines(proc *process.Process, lines <-chan string) <-chan string {
	for lines != nil {
		select {
		case line, ok := <-lines:
			if !ok {
				_ = proc.CloseStdin()
				return nil
			}
			if err := proc.SendLine(line); err != nil {
				// the command stopped reading, input is dropped
				_ = proc.CloseStdin()
				return nil
			}
		default:
			return lines
		}
	}
	return nil
}

// lineWriter hands the complete lines of each stream to the Ui and keeps
// count of what it wrote.
type lineWriter struct {
	ui cli.Ui

	stdoutPrefix string
	stderrPrefix string

	stdoutBytes, stderrBytes uint64
	stdoutLines, stderrLines int64
}

func (w *lineWriter) write(stdout, stderr *bytes.Buffer) {
	for _, line := range splitLines(stdout) {
		w.stdout(line)
	}
	for _, line := range splitLines(stderr) {
		w.stderr(line)
	}
}

// flush writes the unterminated lines left at the end of each stream.
func (w *lineWriter) flush(stdout, stderr *bytes.Buffer) {
	w.write(stdout, stderr)
	if stdout.Len() > 0 {
		w.stdout(stdout.String())
		w.stdoutBytes--
		stdout.Reset()
	}
	if stderr.Len() > 0 {
		w.stderr(stderr.String())
		w.stderrBytes--
		stderr.Reset()
	}
}

func (w *lineWriter) stdout(line string) {
	w.stdoutBytes += uint64(len(line)) + 1
	w.stdoutLines++
	w.ui.Output(w.stdoutPrefix + line)
}

func (w *lineWriter) stderr(line string) {
	w.stderrBytes += uint64(len(line)) + 1
	w.stderrLines++
	w.ui.Error(w.stderrPrefix + line)
}
