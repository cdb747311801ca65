// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build windows

package testtask

import (
	"os"
)

// Process groups do not exist on windows, report our own pid so that the
// script keeps going.
func processGroup() int {
	return os.Getpid()
}
