// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package testlog creates loggers backed by testing.T to ease logging in
// tests.
package testlog

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// LogLevelEnv overrides the level of loggers returned by HCLogger.
const LogLevelEnv = "PROCPIPE_TEST_LOG_LEVEL"

// Logger is the methods of testing.T (or testing.B) needed by the test
// logger.
type Logger interface {
	Logf(format string, args ...interface{})
}

// Writer implements io.Writer on top of a Logger.
type Writer struct {
	t      Logger
	prefix string

	mu sync.Mutex
}

// NewWriter returns a new io.Writer writing each line to t prefixed with
// prefix.
func NewWriter(t Logger, prefix string) io.Writer {
	return &Writer{t: t, prefix: prefix}
}

// Write to an underlying Logger. Never returns an error.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte{'\n'}) {
		w.t.Logf("%s%s", w.prefix, line)
	}
	return len(p), nil
}

// HCLogger returns a new test hc-logger.
//
// Default log level is TRACE. Set PROCPIPE_TEST_LOG_LEVEL for custom log
// level.
func HCLogger(t testing.TB) hclog.InterceptLogger {
	level := hclog.Trace
	if envLogLevel := os.Getenv(LogLevelEnv); envLogLevel != "" {
		level = hclog.LevelFromString(envLogLevel)
	}
	opts := &hclog.LoggerOptions{
		Level:           level,
		Output:          NewWriter(t, ""),
		IncludeLocation: true,
	}
	return hclog.NewInterceptLogger(opts)
}
