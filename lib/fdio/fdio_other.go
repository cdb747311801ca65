// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd)

package fdio

import "time"

func Open(path string, flags OpenFlags) (Fd, error) {
	return None, &OpError{Op: "open", Fd: None, Path: path, Err: ErrUnsupported}
}

func Close(fd Fd) error {
	return opError("close", fd, ErrUnsupported)
}

func Pipe() (PipeDes, error) {
	return PipeDes{ReadEnd: None, WriteEnd: None}, opError("pipe", None, ErrUnsupported)
}

func ClosePipe(p PipeDes) error {
	return opError("close", None, ErrUnsupported)
}

func Dup(fd Fd) (Fd, error) {
	if fd == None {
		return None, nil
	}
	return None, opError("dup", fd, ErrUnsupported)
}

func SetCloseOnExec(fd Fd) error {
	return opError("fcntl", fd, ErrUnsupported)
}

func IsCloseOnExec(fd Fd) (bool, error) {
	return false, opError("fcntl", fd, ErrUnsupported)
}

func Valid(fd Fd) bool {
	return false
}

func Read(fd Fd, buf []byte) (int, error) {
	return 0, opError("read", fd, ErrUnsupported)
}

func Write(fd Fd, buf []byte) (int, error) {
	return 0, opError("write", fd, ErrUnsupported)
}

func PollReadable(fd Fd, timeout time.Duration) (bool, error) {
	return false, opError("poll", fd, ErrUnsupported)
}

func Poll(fds []Fd, timeout time.Duration) ([]bool, int, error) {
	return nil, 0, opError("poll", None, ErrUnsupported)
}
