// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package argv builds the calling convention used to invoke an executable:
// either a discrete argument vector or a single quoted command line.
package argv

import (
	"strings"
)

// Vector returns the argument vector used to invoke executable. The
// executable name is passed through as argv[0] followed by args, unquoted.
func Vector(executable string, args []string) []string {
	v := make([]string, 0, len(args)+1)
	v = append(v, executable)
	return append(v, args...)
}

// CommandLine returns the single-string command line used by platforms that
// hand a program its arguments unsplit. Each argument is quoted so that
// CommandLineToArgvW reconstructs the original boundaries.
func CommandLine(executable string, args []string) string {
	var b strings.Builder
	b.WriteString(QuoteWindows(executable))
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(QuoteWindows(arg))
	}
	return b.String()
}

// QuoteWindows quotes a single argument for CommandLineToArgvW. Arguments
// free of whitespace and quotes are returned unchanged.
func QuoteWindows(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\v\f\"") {
		return arg
	}

	var b strings.Builder
	b.Grow(len(arg) + 2)
	b.WriteByte('"')

	backslashes := 0
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		switch c {
		case '\\':
			backslashes++
			continue
		case '"':
			// backslashes preceding a literal quote are doubled, and the
			// quote itself is escaped
			b.WriteString(strings.Repeat(`\`, backslashes*2+1))
		default:
			b.WriteString(strings.Repeat(`\`, backslashes))
		}
		backslashes = 0
		b.WriteByte(c)
	}

	// trailing backslashes would otherwise escape the closing quote
	b.WriteString(strings.Repeat(`\`, backslashes*2))
	b.WriteByte('"')
	return b.String()
}

// String renders the invocation for humans, as used in logs and errors.
func String(executable string, args []string) string {
	return strings.Join(Vector(executable, args), " ")
}
