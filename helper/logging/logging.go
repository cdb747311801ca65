// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package logging adapts hclog loggers to the interfaces commands write to.
package logging

import (
	"errors"
	"strings"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
)

// ErrNotInteractive is returned by the prompts of HcLogUI.
var ErrNotInteractive = errors.New("prompts are not supported when logging output")

var _ cli.Ui = (*HcLogUI)(nil)

// HcLogUI is an implementation of cli.Ui that emits every message as log
// lines, keeping the output of a command machine readable when logs are
// formatted as JSON. Multi-line messages produce one log line per line. It
// is intended for write only use cases, Ask and AskSecret always fail.
type HcLogUI struct {
	Log hclog.Logger
}

func (l *HcLogUI) Ask(string) (string, error) {
	return "", ErrNotInteractive
}

func (l *HcLogUI) AskSecret(string) (string, error) {
	return "", ErrNotInteractive
}

func (l *HcLogUI) Output(message string) {
	l.emit(hclog.Info, message)
}

func (l *HcLogUI) Info(message string) {
	l.emit(hclog.Info, message)
}

func (l *HcLogUI) Error(message string) {
	l.emit(hclog.Error, message)
}

func (l *HcLogUI) Warn(message string) {
	l.emit(hclog.Warn, message)
}

func (l *HcLogUI) emit(level hclog.Level, message string) {
	for _, line := range strings.Split(strings.TrimRight(message, "\n"), "\n") {
		l.Log.Log(level, line)
	}
}
