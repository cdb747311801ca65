// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package argv

import (
	"strings"
	"testing"

	"github.com/hashicorp/procpipe/ci"
	"github.com/shoenig/test/must"
	"pgregory.net/rapid"
)

func TestVector(t *testing.T) {
	ci.Parallel(t)

	must.Eq(t, []string{"ip"}, Vector("ip", nil))
	must.Eq(t, []string{"ip", "link", "show", "dev", "wg 0"},
		Vector("ip", []string{"link", "show", "dev", "wg 0"}))

	// the caller's slice is never aliased
	args := make([]string, 1, 8)
	args[0] = "a"
	v := Vector("x", args)
	v[1] = "b"
	must.Eq(t, "a", args[0])
}

func TestString(t *testing.T) {
	ci.Parallel(t)
	must.Eq(t, "wg setconf wg0 /dev/fd/3", String("wg", []string{"setconf", "wg0", "/dev/fd/3"}))
}

func TestQuoteWindows(t *testing.T) {
	ci.Parallel(t)

	cases := []struct {
		name string
		in   string
		out  string
	}{
		{"plain", `plain`, `plain`},
		{"empty", ``, `""`},
		{"space", `a b`, `"a b"`},
		{"tab", "a\tb", "\"a\tb\""},
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `C:\Program Files\x`, `"C:\Program Files\x"`},
		{"trailing backslash", `C:\dir name\`, `"C:\dir name\\"`},
		{"backslash before quote", `a\"b`, `"a\\\"b"`},
		{"backslash without space", `C:\path\`, `C:\path\`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			must.Eq(t, tc.out, QuoteWindows(tc.in))
		})
	}
}

func TestCommandLine(t *testing.T) {
	ci.Parallel(t)

	line := CommandLine(`C:\Program Files\wg.exe`, []string{"setconf", "wg 0", `a"b`})
	must.Eq(t, `"C:\Program Files\wg.exe" setconf "wg 0" "a\"b"`, line)
}

func TestCommandLine_RoundTrip(t *testing.T) {
	ci.Parallel(t)

	alphabet := rapid.SampledFrom([]rune{'a', 'z', ' ', '\t', '"', '\\', '/', ':'})
	arg := rapid.StringOf(alphabet)

	rapid.Check(t, func(t *rapid.T) {
		exe := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "exe")
		args := rapid.SliceOf(arg).Draw(t, "args")

		got := parseWindows(CommandLine(exe, args))
		must.Eq(t, Vector(exe, args), got)
	})
}

// parseWindows splits a command line following the CommandLineToArgvW rules
// for arguments after the first.
func parseWindows(line string) []string {
	var (
		out     []string
		cur     strings.Builder
		inArg   bool
		inQuote bool
	)

	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == '\\':
			n := 0
			for i < len(line) && line[i] == '\\' {
				n++
				i++
			}
			inArg = true
			if i < len(line) && line[i] == '"' {
				cur.WriteString(strings.Repeat(`\`, n/2))
				if n%2 == 1 {
					cur.WriteByte('"')
					i++
				}
			} else {
				cur.WriteString(strings.Repeat(`\`, n))
			}
			continue
		case c == '"':
			inArg = true
			inQuote = !inQuote
		case (c == ' ' || c == '\t') && !inQuote:
			if inArg {
				out = append(out, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			inArg = true
			cur.WriteByte(c)
		}
		i++
	}
	if inArg {
		out = append(out, cur.String())
	}
	return out
}
