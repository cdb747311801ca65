// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package process spawns child processes connected to the caller by three
// pipes and exposes synchronous, partially buffered I/O on them.
//
// A Process exclusively owns the child's pid and the parent's ends of the
// stdin, stdout and stderr pipes. Every handle must eventually be released
// with Close, which kills the child's whole process group and reaps it:
//
//	proc, err := process.Spawn(process.DefaultConfig("wg", "show"))
//	if err != nil {
//		return err
//	}
//	defer proc.Close()
//
// A Process is not safe for concurrent use.
package process

import (
	"bytes"
	"time"

	"github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics/compat"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/hashicorp/procpipe/lib/fdio"
)

// Process is a handle on a spawned child process.
type Process struct {
	logger hclog.Logger

	pid    int
	stdin  fdio.Fd
	stdout *stream
	stderr *stream

	// buf is the scratch space for reads off either stream
	buf []byte

	moved      bool
	terminated bool
	waited     bool
	status     ExitStatus
}

func newProcess(logger hclog.Logger, pid int, stdin, stdout, stderr fdio.Fd) *Process {
	return &Process{
		logger: logger.With("pid", pid),
		pid:    pid,
		stdin:  stdin,
		stdout: newStream("stdout", stdout),
		stderr: newStream("stderr", stderr),
		buf:    make([]byte, fdio.ChunkSize),
	}
}

// Pid returns the process id of the child.
func (p *Process) Pid() int {
	return p.pid
}

// Pgid returns the process group of the child, which it leads.
func (p *Process) Pgid() int {
	return p.pid
}

// Transfer moves ownership of the child and its descriptors to a new handle.
// The receiver is left inert: its operations become no-ops or return
// ErrMoved and its Close does nothing. Transferring an already transferred
// handle returns nil.
func (p *Process) Transfer() *Process {
	if p == nil || p.moved {
		return nil
	}

	np := *p
	p.moved = true
	p.stdin = fdio.None
	p.stdout = newStream("stdout", fdio.None)
	p.stdout.eof = true
	p.stderr = newStream("stderr", fdio.None)
	p.stderr.eof = true
	p.buf = nil

	p.logger.Trace("transferred process handle")
	return &np
}

// Send writes all of b to the child's stdin. It is a no-op once stdin has
// been closed. A write error is logged and returned; the remaining bytes are
// not retried.
func (p *Process) Send(b []byte) error {
	_, err := p.Write(b)
	return err
}

// SendLine sends line followed by a newline.
func (p *Process) SendLine(line string) error {
	if err := p.Send([]byte(line)); err != nil {
		return err
	}
	return p.Send([]byte{'\n'})
}

// Write implements io.Writer on the child's stdin with the semantics of Send.
func (p *Process) Write(b []byte) (int, error) {
	if p.moved {
		return 0, ErrMoved
	}
	if p.stdin == fdio.None || !fdio.Valid(p.stdin) {
		return 0, nil
	}

	off := 0
	for off < len(b) {
		n, err := fdio.Write(p.stdin, b[off:])
		if err != nil {
			p.logger.Warn("failed to write to stdin", "error", err)
			return off, err
		}
		off += n
	}
	return off, nil
}

// CloseStdin closes the child's stdin so that it observes end of input.
func (p *Process) CloseStdin() error {
	if p.moved {
		return ErrMoved
	}
	if p.stdin == fdio.None {
		return nil
	}
	fd := p.stdin
	p.stdin = fdio.None
	return fdio.Close(fd)
}

// ReadStdoutLine returns the next line written by the child to stdout,
// without its terminator. It blocks until a full line is available or the
// stream ends, in which case any trailing unterminated data is returned as
// the last line. io.EOF is returned when the stream is exhausted.
func (p *Process) ReadStdoutLine() (string, error) {
	if p.moved {
		return "", ErrMoved
	}
	return p.stdout.readLine(p.reader(p.stdout), p.buf)
}

// ReadStderrLine is ReadStdoutLine for stderr.
func (p *Process) ReadStderrLine() (string, error) {
	if p.moved {
		return "", ErrMoved
	}
	return p.stderr.readLine(p.reader(p.stderr), p.buf)
}

// ReadStdout returns buffered stdout data plus at most one chunk read from
// the pipe, without waiting for a line terminator. io.EOF is returned when
// the stream is exhausted.
func (p *Process) ReadStdout() ([]byte, error) {
	if p.moved {
		return nil, ErrMoved
	}
	return p.stdout.readAvailable(p.reader(p.stdout), p.buf)
}

// ReadStderr is ReadStdout for stderr.
func (p *Process) ReadStderr() ([]byte, error) {
	if p.moved {
		return nil, ErrMoved
	}
	return p.stderr.readAvailable(p.reader(p.stderr), p.buf)
}

// Poll waits up to timeout for output on either stream and returns what was
// retrieved from each. A zero timeout does not block and a negative timeout
// waits indefinitely. ok reports whether any data was retrieved.
func (p *Process) Poll(timeout time.Duration) (stdout, stderr []byte, ok bool) {
	var outBuf, errBuf bytes.Buffer
	ok = p.PollInto(&outBuf, &errBuf, timeout)
	return outBuf.Bytes(), errBuf.Bytes(), ok
}

// PollInto is Poll appending into caller supplied accumulators, so that a
// caller can multiplex both streams from a single goroutine.
func (p *Process) PollInto(stdout, stderr *bytes.Buffer, timeout time.Duration) bool {
	if p.moved {
		return false
	}

	got := false
	for _, s := range []struct {
		stream *stream
		into   *bytes.Buffer
	}{{p.stdout, stdout}, {p.stderr, stderr}} {
		if b := s.stream.drain(); len(b) > 0 {
			s.into.Write(b)
			got = true
		}
	}
	if got {
		timeout = 0
	}

	fds := []fdio.Fd{p.stdout.pollFd(), p.stderr.pollFd()}
	if fds[0] == fdio.None && fds[1] == fdio.None {
		return got
	}

	ready, _, err := fdio.Poll(fds, timeout)
	if err != nil {
		p.logger.Warn("failed to poll output", "error", err)
		return got
	}

	for i, s := range []*stream{p.stdout, p.stderr} {
		if !ready[i] {
			continue
		}
		into := stdout
		if i == 1 {
			into = stderr
		}
		if n := s.fill(p.reader(s), p.buf); n > 0 {
			into.Write(s.drain())
			got = true
		}
	}
	return got
}

// OutputClosed reports whether both output streams have ended and every
// byte read from them has been returned.
func (p *Process) OutputClosed() bool {
	if p.moved {
		return true
	}
	for _, s := range []*stream{p.stdout, p.stderr} {
		if !s.eof || s.buffered() {
			return false
		}
	}
	return true
}

// reader returns the read function for s, logging read failures.
func (p *Process) reader(s *stream) readFunc {
	return func(buf []byte) (int, error) {
		if s.fd == fdio.None {
			return 0, nil
		}
		n, err := fdio.Read(s.fd, buf)
		if err != nil {
			p.logger.Warn("failed to read output", "stream", s.name, "error", err)
		}
		return n, err
	}
}

// IsAlive reports whether the child is still running without blocking. If
// the child has exited its status is collected and kept for Wait.
func (p *Process) IsAlive() bool {
	if p.moved || p.waited {
		return false
	}

	exited, status, err := reap(p.pid, false)
	if err != nil {
		p.logger.Debug("failed to check process status", "error", err)
		return false
	}
	if !exited {
		return true
	}

	p.setStatus(status)
	return false
}

// Wait blocks until the child exits and returns its status. Once collected,
// by Wait or IsAlive, the status is cached and returned by later calls.
func (p *Process) Wait() (ExitStatus, error) {
	if p.moved {
		return ExitStatus{}, ErrMoved
	}
	if p.waited {
		return p.status, nil
	}

	_, status, err := reap(p.pid, true)
	if err != nil {
		return ExitStatus{}, err
	}

	p.setStatus(status)
	return status, nil
}

func (p *Process) setStatus(status ExitStatus) {
	p.waited = true
	p.status = status
	p.logger.Debug("process exited", "status", status)
}

// Terminate closes every pipe to the child and kills the child itself with
// SIGKILL. Processes it started are left running. Subsequent calls do
// nothing.
func (p *Process) Terminate() error {
	return p.terminate(false)
}

// TerminateAll closes every pipe to the child and kills its whole process
// group with SIGKILL, reclaiming any process it started. Subsequent calls do
// nothing.
func (p *Process) TerminateAll() error {
	return p.terminate(true)
}

func (p *Process) terminate(group bool) error {
	if p.moved || p.terminated {
		return nil
	}
	p.terminated = true

	var mErr *multierror.Error
	if p.stdin != fdio.None {
		mErr = multierror.Append(mErr, fdio.Close(p.stdin))
		p.stdin = fdio.None
	}
	for _, s := range []*stream{p.stdout, p.stderr} {
		if s.fd != fdio.None {
			mErr = multierror.Append(mErr, fdio.Close(s.fd))
		}
		s.close()
	}

	// a reaped child may have had its pid recycled, only the group can
	// still hold processes we are responsible for
	if group || !p.waited {
		p.logger.Trace("sending kill", "group", group)
		mErr = multierror.Append(mErr, kill(p.pid, group))
	}

	if group {
		metrics.IncrCounter([]string{"process", "terminate_all"}, 1)
	} else {
		metrics.IncrCounter([]string{"process", "terminate"}, 1)
	}
	return mErr.ErrorOrNil()
}

// Close releases the handle: the process group is killed and the child is
// reaped if its status has not been collected yet. Close on a transferred
// handle does nothing.
func (p *Process) Close() error {
	if p == nil || p.moved {
		return nil
	}

	var mErr *multierror.Error
	mErr = multierror.Append(mErr, p.TerminateAll())
	if !p.waited {
		_, err := p.Wait()
		mErr = multierror.Append(mErr, err)
	}
	return mErr.ErrorOrNil()
}

// CloseAsync kills the process group like Close but reaps the child in the
// background, delivering its status on the returned channel. The handle is
// consumed: it behaves as transferred afterwards. The channel is closed
// without a value if the status cannot be collected.
func (p *Process) CloseAsync() <-chan ExitStatus {
	ch := make(chan ExitStatus, 1)
	if p == nil || p.moved {
		close(ch)
		return ch
	}

	if err := p.TerminateAll(); err != nil {
		p.logger.Warn("failed to terminate process", "error", err)
	}

	waited, status, pid, logger := p.waited, p.status, p.pid, p.logger
	p.Transfer()

	if waited {
		ch <- status
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		_, status, err := reap(pid, true)
		if err != nil {
			logger.Warn("failed to reap process", "error", err)
			return
		}
		ch <- status
	}()
	return ch
}
