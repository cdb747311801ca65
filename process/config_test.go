// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/hashicorp/procpipe/ci"
	"github.com/shoenig/test/must"
)

func TestConfig_Copy(t *testing.T) {
	ci.Parallel(t)

	c := DefaultConfig("wg", "show", "wg0")
	c.Env = []string{"A=1"}
	c.ExtraFiles = []int{5}

	nc := c.Copy()
	nc.Args[0] = "set"
	nc.Env[0] = "A=2"
	nc.ExtraFiles[0] = 6

	must.Eq(t, []string{"show", "wg0"}, c.Args)
	must.Eq(t, []string{"A=1"}, c.Env)
	must.Eq(t, []int{5}, c.ExtraFiles)
	must.True(t, nc.CaptureStdout)
	must.True(t, nc.CaptureStderr)

	must.Nil(t, (*Config)(nil).Copy())
}

func TestConfig_String(t *testing.T) {
	ci.Parallel(t)

	must.Eq(t, "wg show wg0", DefaultConfig("wg", "show", "wg0").String())
	must.Eq(t, "true", DefaultConfig("true").String())
}

func TestMergeEnv(t *testing.T) {
	ci.Parallel(t)

	base := []string{"PATH=/bin", "HOME=/root", "EMPTY="}

	must.Eq(t, base, mergeEnv(base, nil))

	got := mergeEnv(base, []string{"HOME=/tmp", "NEW=1", "NEW=2"})
	must.Eq(t, []string{"PATH=/bin", "HOME=/tmp", "EMPTY=", "NEW=2"}, got)

	// base is left untouched
	must.Eq(t, "HOME=/root", base[1])
}

func TestConfig_ResolveExecutable(t *testing.T) {
	ci.Parallel(t)

	dir := t.TempDir()
	script := filepath.Join(dir, "script")
	must.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755))

	t.Run("relative to dir", func(t *testing.T) {
		c := &Config{Executable: "./script", Dir: dir}
		path, err := c.resolveExecutable()
		must.NoError(t, err)
		must.Eq(t, script, path)
	})

	t.Run("absolute", func(t *testing.T) {
		c := &Config{Executable: script, Dir: "/"}
		path, err := c.resolveExecutable()
		must.NoError(t, err)
		must.Eq(t, script, path)
	})

	t.Run("missing path", func(t *testing.T) {
		c := &Config{Executable: "./missing", Dir: dir}
		_, err := c.resolveExecutable()
		must.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing name", func(t *testing.T) {
		c := &Config{Executable: "procpipe-missing-executable"}
		_, err := c.resolveExecutable()
		must.ErrorIs(t, err, exec.ErrNotFound)
	})
}

func TestFdPath(t *testing.T) {
	ci.Parallel(t)

	must.Eq(t, "/dev/fd/3", FdPath(0))
	must.Eq(t, "/dev/fd/5", FdPath(2))
}

func TestSpawnError(t *testing.T) {
	ci.Parallel(t)

	err := &SpawnError{
		Executable: "wg",
		Args:       []string{"show"},
		Err:        exec.ErrNotFound,
	}
	must.EqError(t, err, "failed to launch wg show: executable file not found in $PATH")
	must.ErrorIs(t, err, ErrNotFound)
	must.ErrorIs(t, err, exec.ErrNotFound)

	other := &SpawnError{Executable: "wg", Err: errors.New("permission denied")}
	must.False(t, errors.Is(other, ErrNotFound))
}

func TestSpawnError_NotFound(t *testing.T) {
	ci.Parallel(t)

	cases := []struct {
		name     string
		err      error
		notFound bool
	}{
		{
			name:     "lookup",
			err:      &exec.Error{Name: "wg", Err: exec.ErrNotFound},
			notFound: true,
		},
		{
			name:     "lookup path",
			err:      &exec.Error{Name: "./wg", Err: &fs.PathError{Op: "stat", Path: "./wg", Err: fs.ErrNotExist}},
			notFound: true,
		},
		{
			name:     "lookup permission",
			err:      &exec.Error{Name: "./wg", Err: fs.ErrPermission},
			notFound: false,
		},
		{
			name:     "exec",
			err:      &fs.PathError{Op: "exec", Path: "/usr/bin/wg", Err: fs.ErrNotExist},
			notFound: true,
		},
		{
			name:     "exec format",
			err:      &fs.PathError{Op: "exec", Path: "/usr/bin/wg", Err: errors.New("exec format error")},
			notFound: false,
		},
		{
			name:     "working directory",
			err:      fmt.Errorf("working directory %q: %w", "/gone", &fs.PathError{Op: "stat", Path: "/gone", Err: fs.ErrNotExist}),
			notFound: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &SpawnError{Executable: "wg", Err: tc.err}
			must.Eq(t, tc.notFound, errors.Is(err, ErrNotFound))
			must.ErrorIs(t, err, tc.err)
		})
	}
}
