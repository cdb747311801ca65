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
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/procpipe/lib/argv"
	"github.com/hashicorp/procpipe/lib/fdio"
)

var (
	// ErrMoved is returned by operations on a handle whose ownership was
	// handed to another handle with Transfer.
	ErrMoved = errors.New("process handle has been transferred")

	// ErrNotFound matches spawn errors caused by a missing executable.
	ErrNotFound = errors.New("executable file not found")
)

// Config describes the child process to spawn.
type Config struct {
	// Executable is a path or a name looked up in PATH. It is also passed
	// to the child as argv[0].
	Executable string

	// Args are the arguments following argv[0].
	Args []string

	// Dir is the working directory of the child. Empty means the working
	// directory of the calling process.
	Dir string

	// CaptureStdout and CaptureStderr connect the child's output streams to
	// pipes readable from the Process. When false the child inherits the
	// corresponding stream of the calling process.
	CaptureStdout bool
	CaptureStderr bool

	// Env holds KEY=VALUE pairs added to the environment inherited from the
	// calling process, overriding existing keys.
	Env []string

	// ExtraFiles are descriptors made available to the child as fd 3, 4,
	// and so on. See FdPath.
	ExtraFiles []fdio.Fd

	// Logger receives lifecycle and I/O error logs. Defaults to a null
	// logger.
	Logger hclog.Logger

	// Verbose logs the command line of the child at info level.
	Verbose bool
}

// DefaultConfig returns a Config capturing both output streams of
// executable, run in the current working directory.
func DefaultConfig(executable string, args ...string) *Config {
	return &Config{
		Executable:    executable,
		Args:          args,
		CaptureStdout: true,
		CaptureStderr: true,
	}
}

// Copy returns a copy of c whose slices may be modified independently.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	nc := *c
	nc.Args = append([]string(nil), c.Args...)
	nc.Env = append([]string(nil), c.Env...)
	nc.ExtraFiles = append([]fdio.Fd(nil), c.ExtraFiles...)
	return &nc
}

// String renders the command line described by c.
func (c *Config) String() string {
	return argv.String(c.Executable, c.Args)
}

func (c *Config) logger() hclog.Logger {
	if c.Logger == nil {
		return hclog.NewNullLogger()
	}
	return c.Logger
}

// environ returns the environment of the calling process overlaid with
// c.Env. Later assignments of the same key win.
func (c *Config) environ() []string {
	return mergeEnv(os.Environ(), c.Env)
}

func mergeEnv(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}

	index := make(map[string]int, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range append(base[:len(base):len(base)], extra...) {
		key, _, _ := strings.Cut(kv, "=")
		if i, ok := index[key]; ok {
			out[i] = kv
			continue
		}
		index[key] = len(out)
		out = append(out, kv)
	}
	return out
}

// resolveExecutable follows execvp: a name containing a slash is used as a
// path, relative to the child's working directory, anything else is looked
// up in PATH.
func (c *Config) resolveExecutable() (string, error) {
	name := c.Executable
	if strings.Contains(name, "/") {
		if c.Dir != "" && !filepath.IsAbs(name) {
			name = filepath.Join(c.Dir, name)
		}
	}

	path, err := exec.LookPath(name)
	if errors.Is(err, exec.ErrDot) {
		return path, nil
	}
	return path, err
}

// FdPath returns the path under which the child finds the i-th entry of
// Config.ExtraFiles.
func FdPath(i int) string {
	return fmt.Sprintf("/dev/fd/%d", 3+i)
}

// SpawnError is returned when a child process could not be started. No
// Process is constructed and no descriptor is left open.
type SpawnError struct {
	Executable string
	Args       []string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", argv.String(e.Executable, e.Args), e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) match a missing executable, whether
// the lookup failed or exec of the resolved path reported ENOENT. A missing
// working directory does not match.
func (e *SpawnError) Is(target error) bool {
	if target != ErrNotFound {
		return false
	}
	if errors.Is(e.Err, exec.ErrNotFound) {
		return true
	}

	var lookErr *exec.Error
	if errors.As(e.Err, &lookErr) {
		return errors.Is(lookErr.Err, fs.ErrNotExist)
	}

	var pathErr *fs.PathError
	return errors.As(e.Err, &pathErr) && pathErr.Op == "exec" && errors.Is(pathErr.Err, fs.ErrNotExist)
}
