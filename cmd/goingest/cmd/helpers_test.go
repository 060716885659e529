package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// writeTestFile writes content under a per-test temp dir and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// fileJobConfig returns a config with a file source feeding a sqlite destination.
func fileJobConfig(t *testing.T, recordsPath, dbPath string) string {
	t.Helper()
	content := fmt.Sprintf(`source:
  type: file

destination:
  driver: sqlite
  path: %s

jobs:
  contacts:
    path: %s
    table: contacts
    schedule: "*/15 * * * *"
    inference:
      sample_size: 2
  accounts:
    path: %s
    table: accounts

logging:
  level: error
  format: text
  output: stderr
`, dbPath, recordsPath, recordsPath)
	return writeTestFile(t, "goingest.yaml", content)
}

// useConfig points the --config flag at path for the duration of the test.
func useConfig(t *testing.T, path string) {
	t.Helper()
	original := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = original })
}

// resetFlags restores every flag of fs to its zero state after the test.
func resetFlags(t *testing.T, fs *pflag.FlagSet) {
	t.Helper()
	t.Cleanup(func() {
		fs.VisitAll(func(f *pflag.Flag) { f.Changed = false })
	})
}

const contactsRecords = `[
  {"id": 1, "name": "Ada", "address": {"city": "London"}, "tags": ["math"]},
  {"id": 2, "name": "Grace", "address": {"city": "Arlington"}, "tags": [], "active": true}
]`
