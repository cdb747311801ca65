// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package process

import (
	"fmt"
	"syscall"
)

// ExitStatus is the normalized exit status of a child process. Raw keeps the
// native wait status for callers that need it.
type ExitStatus struct {
	// Raw is the undecoded status as returned by the operating system.
	Raw int

	// Exited is true when the child terminated normally, in which case Code
	// holds its exit code.
	Exited bool
	Code   int

	// Signaled is true when the child was terminated by Signal.
	Signaled bool
	Signal   syscall.Signal
	CoreDump bool
}

// Success reports whether the child exited normally with code 0.
func (s ExitStatus) Success() bool {
	return s.Exited && s.Code == 0
}

// ExitCode returns the exit code of a normally exited child, 128 plus the
// signal number for a signaled child, or -1 if neither applies.
func (s ExitStatus) ExitCode() int {
	switch {
	case s.Exited:
		return s.Code
	case s.Signaled:
		return 128 + int(s.Signal)
	default:
		return -1
	}
}

func (s ExitStatus) String() string {
	switch {
	case s.Exited:
		return fmt.Sprintf("exit status %d", s.Code)
	case s.Signaled:
		msg := "signal: " + s.Signal.String()
		if s.CoreDump {
			msg += " (core dumped)"
		}
		return msg
	default:
		return fmt.Sprintf("unknown status %#x", s.Raw)
	}
}
