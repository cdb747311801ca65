// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config holds the configuration of the procpipe CLI and the loading
// of HCL configuration files and directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"
	goversion "github.com/hashicorp/go-version"
	"github.com/hashicorp/procpipe/process"
	"github.com/hashicorp/procpipe/version"
)

// Config is the configuration of the CLI.
type Config struct {
	// LogLevel is the level of the CLI's own logs.
	LogLevel string `mapstructure:"log_level"`

	// LogJSON emits logs, and messages that would go to the terminal, as
	// JSON lines.
	LogJSON bool `mapstructure:"log_json"`

	// Verbose logs the command line of every spawned command.
	Verbose bool `mapstructure:"verbose"`

	// Dir is the default working directory of spawned commands.
	Dir string `mapstructure:"dir"`

	// PollInterval bounds how long a single wait for output blocks, and so
	// how often timeouts are checked.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Timeout kills commands running longer than this. Zero disables it.
	Timeout time.Duration `mapstructure:"timeout"`

	// RequiredVersion is a version constraint, such as ">= 0.1", the
	// running procpipe must satisfy.
	RequiredVersion string `mapstructure:"required_version"`

	Capture *Capture `mapstructure:"-"`

	// Env is added to the environment of every spawned command.
	Env map[string]string `mapstructure:"-"`

	// Commands are named aliases for command lines.
	Commands map[string]*Command `mapstructure:"-"`

	// Files are the files the configuration was loaded from.
	Files []string `mapstructure:"-"`
}

// Capture selects the output streams read through pipes. A nil field is
// unset and does not override on merge.
type Capture struct {
	Stdout *bool `mapstructure:"stdout"`
	Stderr *bool `mapstructure:"stderr"`
}

// Command is a named alias for a command line.
type Command struct {
	Name string            `mapstructure:"-"`
	Path string            `mapstructure:"path"`
	Args []string          `mapstructure:"args"`
	Dir  string            `mapstructure:"dir"`
	Env  map[string]string `mapstructure:"-"`
}

func boolToPtr(b bool) *bool {
	return &b
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "INFO",
		PollInterval: 100 * time.Millisecond,
		Capture: &Capture{
			Stdout: boolToPtr(true),
			Stderr: boolToPtr(true),
		},
		Env:      map[string]string{},
		Commands: map[string]*Command{},
	}
}

// Copy returns a deep copy of c.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}

	nc := *c
	nc.Capture = c.Capture.Copy()
	nc.Env = copyMap(c.Env)
	nc.Files = append([]string(nil), c.Files...)
	if c.Commands != nil {
		nc.Commands = make(map[string]*Command, len(c.Commands))
		for name, cmd := range c.Commands {
			nc.Commands[name] = cmd.Copy()
		}
	}
	return &nc
}

// Merge returns a new configuration with the values of b overriding those of
// c. Aliases with the same name are replaced as a whole.
func (c *Config) Merge(b *Config) *Config {
	result := c.Copy()
	if b == nil {
		return result
	}

	if b.LogLevel != "" {
		result.LogLevel = b.LogLevel
	}
	if b.LogJSON {
		result.LogJSON = true
	}
	if b.Verbose {
		result.Verbose = true
	}
	if b.Dir != "" {
		result.Dir = b.Dir
	}
	if b.PollInterval != 0 {
		result.PollInterval = b.PollInterval
	}
	if b.Timeout != 0 {
		result.Timeout = b.Timeout
	}
	if b.RequiredVersion != "" {
		result.RequiredVersion = b.RequiredVersion
	}

	if result.Capture == nil {
		result.Capture = b.Capture.Copy()
	} else {
		result.Capture = result.Capture.Merge(b.Capture)
	}

	if len(b.Env) > 0 && result.Env == nil {
		result.Env = make(map[string]string, len(b.Env))
	}
	for k, v := range b.Env {
		result.Env[k] = v
	}

	if len(b.Commands) > 0 && result.Commands == nil {
		result.Commands = make(map[string]*Command, len(b.Commands))
	}
	for name, cmd := range b.Commands {
		result.Commands[name] = cmd.Copy()
	}

	result.Files = append(result.Files, b.Files...)
	return result
}

// Validate checks the configuration for values that cannot be used.
func (c *Config) Validate() error {
	var mErr *multierror.Error

	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		mErr = multierror.Append(mErr, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if c.PollInterval <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.Timeout < 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.RequiredVersion != "" {
		if err := checkVersion(c.RequiredVersion, version.Get()); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	for _, name := range c.CommandNames() {
		if c.Commands[name].Path == "" {
			mErr = multierror.Append(mErr, fmt.Errorf("command %q: missing path", name))
		}
	}

	return mErr.ErrorOrNil()
}

// checkVersion verifies that the release of v satisfies constraint.
// Pre-release markers are ignored so development builds match too.
func checkVersion(constraint string, v *version.Info) error {
	constraints, err := goversion.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid required_version %q: %w", constraint, err)
	}

	running, err := v.SemVer()
	if err != nil {
		return fmt.Errorf("failed to parse version %q: %w", v.Number(), err)
	}

	if !constraints.Check(running.Core()) {
		return fmt.Errorf("procpipe %s does not satisfy required_version %q", running, constraint)
	}
	return nil
}

// CommandNames returns the names of the aliases in alphabetical order.
func (c *Config) CommandNames() []string {
	names := make([]string, 0, len(c.Commands))
	for name := range c.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProcessConfig builds the spawn configuration for name followed by args.
// If name is an alias its path and arguments are used, with args appended,
// and its directory and environment take precedence over the global ones.
func (c *Config) ProcessConfig(name string, args []string) *process.Config {
	cfg := process.DefaultConfig(name, args...)
	cfg.Dir = c.Dir
	cfg.Verbose = c.Verbose
	if c.Capture != nil {
		if c.Capture.Stdout != nil {
			cfg.CaptureStdout = *c.Capture.Stdout
		}
		if c.Capture.Stderr != nil {
			cfg.CaptureStderr = *c.Capture.Stderr
		}
	}

	env := copyMap(c.Env)
	if alias, ok := c.Commands[name]; ok {
		cfg.Executable = alias.Path
		cfg.Args = append(append([]string(nil), alias.Args...), args...)
		if alias.Dir != "" {
			cfg.Dir = alias.Dir
		}
		if env == nil && len(alias.Env) > 0 {
			env = make(map[string]string, len(alias.Env))
		}
		for k, v := range alias.Env {
			env[k] = v
		}
	}
	cfg.Env = envList(env)

	return cfg
}

// Copy returns a copy of c.
func (c *Capture) Copy() *Capture {
	if c == nil {
		return nil
	}
	nc := &Capture{}
	if c.Stdout != nil {
		nc.Stdout = boolToPtr(*c.Stdout)
	}
	if c.Stderr != nil {
		nc.Stderr = boolToPtr(*c.Stderr)
	}
	return nc
}

// Merge returns a copy of c with the set fields of b overriding it.
func (c *Capture) Merge(b *Capture) *Capture {
	result := c.Copy()
	if b == nil {
		return result
	}
	if b.Stdout != nil {
		result.Stdout = boolToPtr(*b.Stdout)
	}
	if b.Stderr != nil {
		result.Stderr = boolToPtr(*b.Stderr)
	}
	return result
}

// Copy returns a copy of c.
func (c *Command) Copy() *Command {
	if c == nil {
		return nil
	}
	nc := *c
	nc.Args = append([]string(nil), c.Args...)
	nc.Env = copyMap(c.Env)
	return &nc
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	nm := make(map[string]string, len(m))
	for k, v := range m {
		nm[k] = v
	}
	return nm
}

// envList renders env as KEY=VALUE pairs sorted by key.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// LoadConfig loads the configuration at path, which may be a file or a
// directory of configuration files.
func LoadConfig(path string) (*Config, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if fi.IsDir() {
		return LoadConfigDir(path)
	}

	cleaned := filepath.Clean(path)
	config, err := ParseConfigFile(cleaned)
	if err != nil {
		return nil, fmt.Errorf("Error loading %s: %s", cleaned, err)
	}

	config.Files = append(config.Files, cleaned)
	return config, nil
}

// LoadConfigDir loads every .hcl file of dir in alphabetical order, later
// files overriding earlier ones. Editor backup files are skipped.
func LoadConfigDir(dir string) (*Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var result *Config
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".hcl" || isTemporaryFile(name) {
			continue
		}

		path := filepath.Join(dir, name)
		config, err := ParseConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("Error loading %s: %s", path, err)
		}
		config.Files = append(config.Files, path)

		if result == nil {
			result = config
		} else {
			result = result.Merge(config)
		}
	}

	if result == nil {
		return &Config{}, nil
	}
	return result, nil
}

// isTemporaryFile reports whether name is a vim backup or an emacs lock or
// autosave file.
func isTemporaryFile(name string) bool {
	return strings.HasSuffix(name, "~") ||
		strings.HasPrefix(name, ".#") ||
		(strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#"))
}
