// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics/compat"
	"github.com/hashicorp/procpipe/lib/argv"
	"github.com/hashicorp/procpipe/lib/fdio"
	"golang.org/x/sys/unix"
)

// maxWaitInterrupts bounds how many consecutive EINTR results a wait is
// retried for before giving up.
const maxWaitInterrupts = 1000

// Spawn starts the child described by cfg. The child is connected to the
// returned Process by a pipe on each of its standard streams (stdout and
// stderr only when captured), runs in cfg.Dir, and leads a new process group
// whose id equals its pid.
//
// If the child cannot be started a *SpawnError is returned, no Process is
// constructed and every descriptor allocated for the attempt is closed.
func Spawn(cfg *Config) (*Process, error) {
	if cfg == nil || cfg.Executable == "" {
		return nil, &SpawnError{Err: errors.New("no executable specified")}
	}

	logger := cfg.logger().Named("process")
	if cfg.Verbose {
		logger.Info("running command", "command", cfg.String())
	}

	start := time.Now()
	proc, err := spawn(cfg, logger)
	if err != nil {
		metrics.IncrCounter([]string{"process", "spawn_failed"}, 1)
		logger.Debug("failed to spawn process", "command", cfg.String(), "error", err)
		return nil, &SpawnError{Executable: cfg.Executable, Args: cfg.Args, Err: err}
	}

	metrics.IncrCounter([]string{"process", "spawn"}, 1)
	metrics.MeasureSince([]string{"process", "spawn"}, start)
	proc.logger.Debug("spawned process", "command", cfg.String())
	return proc, nil
}

func spawn(cfg *Config, logger hclog.Logger) (*Process, error) {
	if cfg.Dir != "" {
		if err := checkDir(cfg.Dir); err != nil {
			return nil, err
		}
	}

	path, err := cfg.resolveExecutable()
	if err != nil {
		return nil, err
	}

	pipes := [3]fdio.PipeDes{
		{ReadEnd: fdio.None, WriteEnd: fdio.None},
		{ReadEnd: fdio.None, WriteEnd: fdio.None},
		{ReadEnd: fdio.None, WriteEnd: fdio.None},
	}
	closeAll := func() {
		for _, p := range pipes {
			if err := fdio.ClosePipe(p); err != nil {
				logger.Warn("failed to close pipe", "error", err)
			}
		}
	}

	for i := range pipes {
		if pipes[i], err = fdio.Pipe(); err != nil {
			closeAll()
			return nil, err
		}
	}
	stdin, stdout, stderr := pipes[0], pipes[1], pipes[2]

	// The runtime dup2s each entry onto its index in the child, which clears
	// close-on-exec on the destination; every other descriptor we created is
	// close-on-exec and disappears at exec.
	files := []uintptr{uintptr(stdin.ReadEnd), uintptr(unix.Stdout), uintptr(unix.Stderr)}
	if cfg.CaptureStdout {
		files[1] = uintptr(stdout.WriteEnd)
	}
	if cfg.CaptureStderr {
		files[2] = uintptr(stderr.WriteEnd)
	}
	for _, fd := range cfg.ExtraFiles {
		files = append(files, uintptr(fd))
	}

	attr := &syscall.ProcAttr{
		Dir:   cfg.Dir,
		Env:   cfg.environ(),
		Files: files,
		Sys:   &syscall.SysProcAttr{Setpgid: true},
	}

	// A failed exec is reported back by the runtime, the child exits without
	// returning to our code.
	pid, err := syscall.ForkExec(path, argv.Vector(cfg.Executable, cfg.Args), attr)
	if err != nil {
		closeAll()
		return nil, execError(cfg, path, err)
	}

	for _, fd := range []fdio.Fd{stdin.ReadEnd, stdout.WriteEnd, stderr.WriteEnd} {
		if err := fdio.Close(fd); err != nil {
			logger.Warn("failed to close child end of pipe", "pid", pid, "error", err)
		}
	}

	return newProcess(logger, pid, stdin.WriteEnd, stdout.ReadEnd, stderr.ReadEnd), nil
}

// checkDir fails unless dir names an existing directory.
func checkDir(dir string) error {
	fi, err := os.Stat(dir)
	if err == nil && !fi.IsDir() {
		err = &fs.PathError{Op: "chdir", Path: dir, Err: unix.ENOTDIR}
	}
	if err != nil {
		return fmt.Errorf("working directory %q: %w", dir, err)
	}
	return nil
}

// execError attributes a failed fork/exec. The child reports a chdir failure
// with the same errno as a missing executable, so a working directory that
// disappeared after checkDir is looked at again.
func execError(cfg *Config, path string, err error) error {
	if cfg.Dir != "" && errors.Is(err, unix.ENOENT) {
		if dirErr := checkDir(cfg.Dir); dirErr != nil {
			return dirErr
		}
	}
	return &fs.PathError{Op: "exec", Path: path, Err: err}
}

// reap collects the exit status of pid. Without block it returns
// immediately, reporting exited as false if the child is still running.
func reap(pid int, block bool) (bool, ExitStatus, error) {
	options := 0
	if !block {
		options = unix.WNOHANG
	}

	var (
		ws    unix.WaitStatus
		wpid  int
		err   error
		tries int
	)
	for {
		wpid, err = unix.Wait4(pid, &ws, options, nil)
		if !errors.Is(err, unix.EINTR) {
			break
		}
		if tries++; tries >= maxWaitInterrupts {
			break
		}
	}
	if err != nil {
		return false, ExitStatus{}, fmt.Errorf("waitpid(%d): %w", pid, err)
	}
	if wpid == 0 {
		return false, ExitStatus{}, nil
	}
	return true, fromWaitStatus(ws), nil
}

func fromWaitStatus(ws unix.WaitStatus) ExitStatus {
	status := ExitStatus{Raw: int(ws)}
	switch {
	case ws.Exited():
		status.Exited = true
		status.Code = ws.ExitStatus()
	case ws.Signaled():
		status.Signaled = true
		status.Signal = ws.Signal()
		status.CoreDump = ws.CoreDump()
	}
	return status
}

// kill sends SIGKILL to pid, or to the process group it leads. A target that
// no longer exists is not an error.
func kill(pid int, group bool) error {
	target := pid
	if group {
		// tells unix to kill the entire process group
		target = -pid
	}

	if err := unix.Kill(target, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill(%d): %w", target, err)
	}
	return nil
}
