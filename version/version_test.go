// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/shoenig/test/must"
)

func TestInfo_Full(t *testing.T) {
	built := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		info Info
		exp  string
	}{
		{
			name: "release",
			info: Info{Version: "1.2.3"},
			exp:  "procpipe v1.2.3",
		},
		{
			name: "prerelease and metadata",
			info: Info{Version: "1.2.3", Prerelease: "beta1", Metadata: "ent"},
			exp:  "procpipe v1.2.3-beta1+ent",
		},
		{
			name: "build date and revision",
			info: Info{Version: "1.2.3", Revision: "abc123", BuildDate: built},
			exp:  "procpipe v1.2.3\nBuildDate 2026-03-02T10:00:00Z\nRevision abc123",
		},
		{
			name: "modified tree",
			info: Info{Version: "1.2.3", Revision: "abc123", Modified: true},
			exp:  "procpipe v1.2.3\nRevision abc123 (modified)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			must.Eq(t, tc.exp, tc.info.Full())
		})
	}
}

func TestInfo_stamp(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "-compiler", Value: "gc"},
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "0123abcd"},
		{Key: "vcs.time", Value: "2026-01-05T08:30:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	t.Run("from vcs", func(t *testing.T) {
		info := &Info{Version: "0.1.0"}
		info.stamp(settings)
		must.Eq(t, "0123abcd", info.Revision)
		must.True(t, info.Modified)
		must.Eq(t, time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC), info.BuildDate)
	})

	t.Run("linker wins", func(t *testing.T) {
		info := &Info{Version: "0.1.0", Revision: "feedface"}
		info.stamp(settings)
		must.Eq(t, "feedface", info.Revision)
		must.False(t, info.Modified)
		must.True(t, info.BuildDate.IsZero())
	})
}

func TestInfo_SemVer(t *testing.T) {
	info := &Info{Version: "0.3.1", Prerelease: "dev", Metadata: "ent"}
	v, err := info.SemVer()
	must.NoError(t, err)
	must.Eq(t, "0.3.1", v.Core().String())
	must.Eq(t, "dev", v.Prerelease())
	must.Eq(t, "ent", v.Metadata())

	_, err = (&Info{Version: "three"}).SemVer()
	must.Error(t, err)
}

func TestGet(t *testing.T) {
	v := Get()
	must.Eq(t, Version, v.Version)
	must.Eq(t, Prerelease, v.Prerelease)
	must.StrHasPrefix(t, Version, v.Number())

	_, err := v.SemVer()
	must.NoError(t, err)
}
