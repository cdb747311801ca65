// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package ci holds helpers that adjust how tests run depending on the
// environment they run in.
package ci

import (
	"os"
	"strconv"
	"testing"
)

// SkipSlow skips a slow test unless PROCPIPE_SLOW_TEST is set to a true value.
func SkipSlow(t *testing.T, reason string) {
	value := os.Getenv("PROCPIPE_SLOW_TEST")
	run, err := strconv.ParseBool(value)
	if !run || err != nil {
		t.Skipf("Skipping slow test: %s", reason)
	}
}

// Parallel runs t in parallel, unless CI is set to a true value.
//
// Tests that spawn many children compete for descriptors and pids, in CI we
// get steadier results by running them serially.
func Parallel(t *testing.T) {
	value := os.Getenv("CI")
	isCI, err := strconv.ParseBool(value)
	if !isCI || err != nil {
		t.Parallel()
	}
}
