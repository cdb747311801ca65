// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package fdio wraps the descriptor-level operations needed to plumb a child
// process: open, close, duplicate, pipe creation and polling.
//
// The functions operate on raw descriptor values and carry no ownership
// semantics; whoever receives a descriptor from this package is responsible
// for closing it. Every descriptor created here is close-on-exec, so that a
// child started by an unrelated spawn never inherits it by accident.
package fdio

import (
	"errors"
	"fmt"
)

// Fd is a raw operating system descriptor.
type Fd = int

// None is the invalid descriptor value.
const None Fd = -1

// ChunkSize is the size of a single read performed by the helpers built on
// top of this package.
const ChunkSize = 4096

// DefaultCreatePerms are the permission bits applied to files created by Open
// when OpenFlags.CreatePerms is zero.
const DefaultCreatePerms = 0o664

// ErrUnsupported is returned by every operation on platforms where descriptor
// plumbing is not implemented.
var ErrUnsupported = errors.New("fdio: operation not supported on this platform")

// PipeDes holds both ends of a freshly created pipe.
type PipeDes struct {
	ReadEnd  Fd
	WriteEnd Fd
}

// OpenFlags configures Open.
type OpenFlags struct {
	// NeedsWrite opens the file read/write instead of read-only.
	NeedsWrite bool

	// ShouldCreate creates the file if it does not exist.
	ShouldCreate bool

	// AppendMode seeks to the end of the file before each write.
	AppendMode bool

	// TruncateMode truncates existing content. It takes precedence over
	// AppendMode when both are set.
	TruncateMode bool

	// CreatePerms are the permission bits used only when the file is
	// created. Zero means DefaultCreatePerms.
	CreatePerms uint32
}

// OpError is the error returned by every operation of this package. Its
// message mirrors the failing call, e.g. "dup(3): bad file descriptor".
type OpError struct {
	Op   string
	Fd   Fd
	Path string
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("%s('%s'): %v", e.Op, e.Path, e.Err)
	case e.Fd != None:
		return fmt.Sprintf("%s(%d): %v", e.Op, e.Fd, e.Err)
	default:
		return fmt.Sprintf("%s(): %v", e.Op, e.Err)
	}
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsEnvironment reports whether err originated from a descriptor-level
// failure, such as descriptor table exhaustion or a failed pipe creation.
func IsEnvironment(err error) bool {
	var opErr *OpError
	return errors.As(err, &opErr)
}

func opError(op string, fd Fd, err error) error {
	return &OpError{Op: op, Fd: fd, Err: err}
}
