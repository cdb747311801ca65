// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package runner runs external commands to completion on top of the process
// package, for callers that drive other tools the way a shell script would.
package runner

import (
	"bytes"
	"fmt"

	"github.com/armon/circbuf"
	"github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics/compat"
	"github.com/hashicorp/procpipe/lib/fdio"
	"github.com/hashicorp/procpipe/process"
)

// maxStderr bounds the error output kept by Output, only the tail of a
// larger output is returned.
const maxStderr = 64 * 1024

// Runner spawns commands with a shared logger, verbosity and environment.
type Runner struct {
	logger  hclog.Logger
	verbose bool

	// Dir and Env apply to every command unless overridden per call.
	Dir string
	Env []string
}

// New returns a Runner. When verbose is set the command line of every non
// quiet command is logged before it runs.
func New(logger hclog.Logger, verbose bool) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{
		logger:  logger.Named("runner"),
		verbose: verbose,
	}
}

// ExitError is returned when a command ran but did not exit successfully.
type ExitError struct {
	Command string
	Status  process.ExitStatus

	// Stderr holds the error output that was captured, if any.
	Stderr []byte
}

func (e *ExitError) Error() string {
	if e.Status.Exited {
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.Status.Code)
	}
	return fmt.Sprintf("command %s failed: %s", e.Command, e.Status)
}

type runOptions struct {
	quiet      bool
	detached   bool
	dir        string
	env        []string
	extraFiles []fdio.Fd
}

// RunOption customizes a single Run.
type RunOption func(*runOptions)

// Quiet captures the output of the command instead of letting it through to
// the terminal, and suppresses verbose logging of its command line.
func Quiet() RunOption {
	return func(o *runOptions) {
		o.quiet = true
	}
}

// Detached leaves processes started by the command running once it exits.
// The returned handle no longer holds the command's output.
func Detached() RunOption {
	return func(o *runOptions) {
		o.detached = true
	}
}

// Dir runs the command in dir.
func Dir(dir string) RunOption {
	return func(o *runOptions) {
		o.dir = dir
	}
}

// Env adds KEY=VALUE assignments to the environment of the command.
func Env(kv ...string) RunOption {
	return func(o *runOptions) {
		o.env = append(o.env, kv...)
	}
}

// ExtraFiles passes descriptors to the command, see process.FdPath.
func ExtraFiles(fds ...fdio.Fd) RunOption {
	return func(o *runOptions) {
		o.extraFiles = append(o.extraFiles, fds...)
	}
}

func (r *Runner) config(name string, args []string, o *runOptions) *process.Config {
	cfg := process.DefaultConfig(name, args...)
	cfg.Logger = r.logger
	cfg.Verbose = r.verbose
	cfg.Dir = r.Dir
	if o.dir != "" {
		cfg.Dir = o.dir
	}
	cfg.Env = append(append([]string(nil), r.Env...), o.env...)
	cfg.ExtraFiles = o.extraFiles
	return cfg
}

// Try runs name to completion with both output streams captured. A command
// that cannot be started is an error, a non-zero exit is not: the status is
// returned along with the handle so the caller can inspect the output. The
// caller must Close the returned Process.
//
// The command's output is not read while it runs, commands writing more than
// a pipe buffer must be read with Spawn instead.
func (r *Runner) Try(name string, args ...string) (*process.Process, process.ExitStatus, error) {
	proc, err := process.Spawn(r.config(name, args, &runOptions{}))
	if err != nil {
		return nil, process.ExitStatus{}, err
	}

	status, err := proc.Wait()
	if err != nil {
		_ = proc.Close()
		return nil, process.ExitStatus{}, err
	}
	return proc, status, nil
}

// Run runs name to completion. Its output goes to the terminal unless Quiet
// is given. A non-zero exit returns an *ExitError carrying the captured
// error output. On success the caller must Close the returned Process.
//
// With Quiet the output stays in the pipes for the returned handle and is not
// read while the command runs. A quiet command writing more than a pipe
// buffer blocks forever, use Output or Spawn for those.
func (r *Runner) Run(name string, args []string, opts ...RunOption) (*process.Process, error) {
	o := &runOptions{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := r.config(name, args, o)
	cfg.CaptureStdout = o.quiet
	cfg.CaptureStderr = o.quiet
	cfg.Verbose = r.verbose && !o.quiet

	proc, err := process.Spawn(cfg)
	if err != nil {
		return nil, err
	}

	status, err := proc.Wait()
	if err != nil {
		_ = proc.Close()
		return nil, err
	}

	if !status.Success() {
		exitErr := &ExitError{Command: cfg.String(), Status: status}
		if o.quiet {
			exitErr.Stderr = drainStderr(proc)
		}
		if err := proc.Close(); err != nil {
			r.logger.Warn("failed to release process", "command", exitErr.Command, "error", err)
		}
		metrics.IncrCounter([]string{"runner", "failed"}, 1)
		return nil, exitErr
	}

	if o.detached {
		// the child is reaped so only its pipes are released, anything it
		// left in its process group survives the handle
		if err := proc.Terminate(); err != nil {
			r.logger.Warn("failed to release process", "command", cfg.String(), "error", err)
		}
	}
	return proc, nil
}

// drainStderr returns the tail of the error output an exited command left
// in its pipe. Reading stops as soon as nothing is immediately available, a
// process the command started may still hold the pipe open.
func drainStderr(proc *process.Process) []byte {
	tail, err := circbuf.NewBuffer(maxStderr)
	if err != nil {
		return nil
	}

	var stdout, stderr bytes.Buffer
	for proc.PollInto(&stdout, &stderr, 0) {
		stdout.Reset()
		_, _ = tail.Write(stderr.Bytes())
		stderr.Reset()
	}
	return tail.Bytes()
}

// Output runs name to completion and returns everything it wrote to stdout.
// Both streams are read while the command runs. A non-zero exit returns an
// *ExitError carrying the last 64 KiB of the command's error output.
func (r *Runner) Output(name string, args ...string) (string, error) {
	cfg := r.config(name, args, &runOptions{})
	proc, err := process.Spawn(cfg)
	if err != nil {
		return "", err
	}
	defer proc.Close()

	// error output is only reported on failure, keep its tail
	stderrTail, err := circbuf.NewBuffer(maxStderr)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	for !proc.OutputClosed() {
		proc.PollInto(&stdout, &stderr, -1)
		if stderr.Len() > 0 {
			_, _ = stderrTail.Write(stderr.Bytes())
			stderr.Reset()
		}
	}

	status, err := proc.Wait()
	if err != nil {
		return "", err
	}
	if !status.Success() {
		metrics.IncrCounter([]string{"runner", "failed"}, 1)
		return stdout.String(), &ExitError{
			Command: cfg.String(),
			Status:  status,
			Stderr:  stderrTail.Bytes(),
		}
	}
	return stdout.String(), nil
}
