// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package version reports the release and the build of the running binary.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// Release builds override these with -ldflags "-X".
var (
	Version    = "0.1.0"
	Prerelease = "dev"
	Metadata   = ""

	// GitCommit is the revision the binary was built from.
	GitCommit string

	// BuildDate is the commit time of GitCommit in RFC3339 format.
	BuildDate string
)

// Info describes the running build.
type Info struct {
	Version    string
	Prerelease string
	Metadata   string

	Revision  string
	Modified  bool
	BuildDate time.Time
}

// Get returns the build information of the binary. Without a revision from
// the linker, the VCS stamp that go build records is used.
func Get() *Info {
	info := &Info{
		Version:    Version,
		Prerelease: Prerelease,
		Metadata:   Metadata,
		Revision:   GitCommit,
	}

	// on parse error, will be zero value time.Time{}
	info.BuildDate, _ = time.Parse(time.RFC3339, BuildDate)

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.stamp(bi.Settings)
	}
	return info
}

func (i *Info) stamp(settings []debug.BuildSetting) {
	if i.Revision != "" {
		return
	}

	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			i.Revision = s.Value
		case "vcs.time":
			if i.BuildDate.IsZero() {
				i.BuildDate, _ = time.Parse(time.RFC3339, s.Value)
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

// Number returns the version as a semantic version string.
func (i *Info) Number() string {
	var b strings.Builder
	b.WriteString(i.Version)
	if i.Prerelease != "" {
		b.WriteString("-" + i.Prerelease)
	}
	if i.Metadata != "" {
		b.WriteString("+" + i.Metadata)
	}
	return b.String()
}

// SemVer parses Number strictly.
func (i *Info) SemVer() (*goversion.Version, error) {
	return goversion.NewSemver(i.Number())
}

// Full renders the output of the version command.
func (i *Info) Full() string {
	var b strings.Builder
	fmt.Fprintf(&b, "procpipe v%s", i.Number())

	if !i.BuildDate.IsZero() {
		fmt.Fprintf(&b, "\nBuildDate %s", i.BuildDate.UTC().Format(time.RFC3339))
	}

	if i.Revision != "" {
		fmt.Fprintf(&b, "\nRevision %s", i.Revision)
		if i.Modified {
			b.WriteString(" (modified)")
		}
	}

	return b.String()
}
