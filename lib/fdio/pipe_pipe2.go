// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build dragonfly || freebsd || linux || netbsd || openbsd

package fdio

import "golang.org/x/sys/unix"

func pipe(fds *[2]int) error {
	return ignoreEINTR(func() error {
		return unix.Pipe2(fds[:], unix.O_CLOEXEC)
	})
}
