// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package testtask

import (
	"syscall"
)

func processGroup() int {
	return syscall.Getpgrp()
}
