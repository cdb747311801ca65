// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package fdio

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// darwin has no pipe2, so the flag is applied while holding ForkLock to keep
// a concurrent fork from inheriting either end.
func pipe(fds *[2]int) error {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()

	if err := unix.Pipe(fds[:]); err != nil {
		return err
	}
	if err := SetCloseOnExec(fds[0]); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return err
	}
	if err := SetCloseOnExec(fds[1]); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return err
	}
	return nil
}
