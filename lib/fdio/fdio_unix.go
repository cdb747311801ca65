// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package fdio

import (
	"errors"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ignoreEINTR retries f for as long as it fails because a signal was handled
// instead of the call being executed.
func ignoreEINTR(f func() error) error {
	for {
		if err := f(); !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

func ignoreEINTR2[R any](f func() (R, error)) (R, error) {
	for {
		v, err := f()
		if !errors.Is(err, unix.EINTR) {
			return v, err
		}
	}
}

// Open opens path according to flags. The returned descriptor is
// close-on-exec.
func Open(path string, flags OpenFlags) (Fd, error) {
	mode := unix.O_RDONLY
	if flags.NeedsWrite {
		mode = unix.O_RDWR
	}
	if flags.ShouldCreate {
		mode |= unix.O_CREAT
	}
	if flags.TruncateMode {
		mode |= unix.O_TRUNC
	} else if flags.AppendMode {
		mode |= unix.O_APPEND
	}

	var perm uint32
	if flags.ShouldCreate {
		perm = flags.CreatePerms
		if perm == 0 {
			perm = DefaultCreatePerms
		}
	}

	fd, err := ignoreEINTR2(func() (int, error) {
		return unix.Open(path, mode|unix.O_CLOEXEC, perm)
	})
	if err != nil {
		return None, &OpError{Op: "open", Fd: None, Path: path, Err: err}
	}
	return fd, nil
}

// Close releases fd. A failure indicates a double close or a corrupted
// descriptor table; EINTR is not retried since the descriptor is released
// regardless on the platforms we support.
func Close(fd Fd) error {
	if err := unix.Close(fd); err != nil && !errors.Is(err, unix.EINTR) {
		return opError("close", fd, err)
	}
	return nil
}

// Pipe creates a connected pipe. Both ends are marked close-on-exec upon
// creation.
func Pipe() (PipeDes, error) {
	var fds [2]int
	if err := pipe(&fds); err != nil {
		return PipeDes{ReadEnd: None, WriteEnd: None}, opError("pipe", None, err)
	}
	return PipeDes{ReadEnd: fds[0], WriteEnd: fds[1]}, nil
}

// ClosePipe closes whichever ends of p are still valid.
func ClosePipe(p PipeDes) error {
	var err error
	if p.ReadEnd != None {
		err = Close(p.ReadEnd)
	}
	if p.WriteEnd != None {
		if werr := Close(p.WriteEnd); err == nil {
			err = werr
		}
	}
	return err
}

// Dup returns a new close-on-exec descriptor referencing the same resource
// as fd. Duplicating None returns None.
func Dup(fd Fd) (Fd, error) {
	if fd == None {
		return None, nil
	}

	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()

	newfd, err := ignoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	})
	if err != nil {
		return None, opError("dup", fd, err)
	}
	return newfd, nil
}

// SetCloseOnExec marks fd close-on-exec.
func SetCloseOnExec(fd Fd) error {
	if _, err := ignoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC)
	}); err != nil {
		return opError("fcntl", fd, err)
	}
	return nil
}

// IsCloseOnExec reports whether fd carries the close-on-exec flag.
func IsCloseOnExec(fd Fd) (bool, error) {
	flags, err := ignoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	})
	if err != nil {
		return false, opError("fcntl", fd, err)
	}
	return flags&unix.FD_CLOEXEC != 0, nil
}

// Valid reports whether fd refers to an open descriptor.
func Valid(fd Fd) bool {
	if fd == None {
		return false
	}
	_, err := ignoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	})
	return err == nil
}

// Read performs a single read into buf. A zero count with a nil error means
// end of stream.
func Read(fd Fd, buf []byte) (int, error) {
	n, err := ignoreEINTR2(func() (int, error) {
		return unix.Read(fd, buf)
	})
	if err != nil {
		return 0, opError("read", fd, err)
	}
	return n, nil
}

// Write performs a single write of buf and returns the number of bytes the
// kernel accepted.
func Write(fd Fd, buf []byte) (int, error) {
	n, err := ignoreEINTR2(func() (int, error) {
		return unix.Write(fd, buf)
	})
	if err != nil {
		return 0, opError("write", fd, err)
	}
	return n, nil
}

// PollReadable waits up to timeout for fd to become readable. A zero timeout
// polls without blocking and a negative timeout waits indefinitely. Hang-up
// counts as readable since the following read returns end of stream without
// blocking.
func PollReadable(fd Fd, timeout time.Duration) (bool, error) {
	ready, _, err := Poll([]Fd{fd}, timeout)
	if err != nil {
		return false, err
	}
	return ready[0], nil
}

// Poll waits up to timeout for any of fds to become readable and returns the
// readiness of each descriptor along with the number of ready descriptors.
// Descriptors equal to None are ignored.
func Poll(fds []Fd, timeout time.Duration) ([]bool, int, error) {
	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	var (
		n   int
		err error
	)
	for {
		n, err = unix.Poll(pfds, pollTimeout(timeout, deadline))
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		return nil, 0, opError("poll", None, err)
	}

	ready := make([]bool, len(fds))
	for i := range pfds {
		if fds[i] == None {
			continue
		}
		ready[i] = pfds[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
	}
	return ready, n, nil
}

// pollTimeout converts timeout into the millisecond argument of poll(2),
// accounting for time already spent when the call is being retried.
func pollTimeout(timeout time.Duration, deadline time.Time) int {
	switch {
	case timeout < 0:
		return -1
	case timeout == 0:
		return 0
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0
	}
	ms := remaining.Milliseconds()
	if remaining%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}
