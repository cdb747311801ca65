// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd)

package process

import (
	"github.com/hashicorp/procpipe/lib/fdio"
)

// Spawn is not implemented on this platform and always fails.
func Spawn(cfg *Config) (*Process, error) {
	if cfg == nil {
		return nil, &SpawnError{Err: fdio.ErrUnsupported}
	}
	return nil, &SpawnError{Executable: cfg.Executable, Args: cfg.Args, Err: fdio.ErrUnsupported}
}

func reap(pid int, block bool) (bool, ExitStatus, error) {
	return false, ExitStatus{}, fdio.ErrUnsupported
}

func kill(pid int, group bool) error {
	return fdio.ErrUnsupported
}
