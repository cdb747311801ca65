// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/procpipe/helper/testtask"
	"github.com/shoenig/test/must"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	if !testtask.Run() {
		goleak.VerifyTestMain(m)
	}
}

// testConfig writes a configuration defining the alias "task", which runs
// the test binary as a testtask script, and returns its path. extra is
// appended to the file.
func testConfig(t *testing.T, extra string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "procpipe.hcl")
	content := fmt.Sprintf(`
poll_interval = "10ms"

env {
  TEST_TASK = "execute"
}

command "task" {
  path = %q
}
%s`, testtask.Path(), extra)

	must.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
