package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setHistoryFlags(t *testing.T, job string, limit int) {
	t.Helper()
	originalJob, originalLimit := historyJob, historyLimit
	t.Cleanup(func() { historyJob, historyLimit = originalJob, originalLimit })
	historyJob, historyLimit = job, limit
}

func TestHistoryCommandStructure(t *testing.T) {
	assert.NotNil(t, historyCmd)
	assert.Equal(t, "history", historyCmd.Use)
	assert.NotEmpty(t, historyCmd.Short)
	assert.NotNil(t, historyCmd.RunE)
	assert.NotNil(t, historyCmd.Flags().Lookup("job"))
	assert.NotNil(t, historyCmd.Flags().Lookup("limit"))
}

func TestRunHistory_Empty(t *testing.T) {
	dir := t.TempDir()
	records := writeTestFile(t, "contacts.json", contactsRecords)
	useConfig(t, fileJobConfig(t, records, filepath.Join(dir, "out.db")))
	setHistoryFlags(t, "", 20)

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)

	require.NoError(t, runHistory(historyCmd, []string{}))
	assert.Contains(t, buf.String(), "No runs recorded")
}

func TestRunHistory_AfterLoads(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "out.db")
	records := writeTestFile(t, "contacts.json", contactsRecords)
	useConfig(t, fileJobConfig(t, records, dbPath))

	var loadOut bytes.Buffer
	loadCmd.SetOut(&loadOut)
	setLoadFlags(t, "contacts", false)
	require.NoError(t, runLoad(loadCmd, []string{}))
	setLoadFlags(t, "accounts", false)
	require.NoError(t, runLoad(loadCmd, []string{}))

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)
	setHistoryFlags(t, "contacts", 10)
	require.NoError(t, runHistory(historyCmd, []string{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "STARTED"))
	assert.Contains(t, lines[1], "contacts")
	assert.Contains(t, lines[1], "completed")

	buf.Reset()
	setHistoryFlags(t, "", 10)
	require.NoError(t, runHistory(historyCmd, []string{}))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
}

func TestRunHistory_UnknownJob(t *testing.T) {
	dir := t.TempDir()
	useConfig(t, fileJobConfig(t, filepath.Join(dir, "c.json"), filepath.Join(dir, "out.db")))
	setHistoryFlags(t, "nope", 20)

	err := runHistory(historyCmd, []string{})
	assert.ErrorContains(t, err, `job "nope" not found`)
}

func TestRunHistory_Disabled(t *testing.T) {
	dir := t.TempDir()
	content := `source:
  type: file
destination:
  driver: sqlite
  path: ` + filepath.Join(dir, "out.db") + `
jobs:
  contacts:
    path: c.json
    table: contacts
history:
  enabled: false
`
	useConfig(t, writeTestFile(t, "goingest.yaml", content))
	setHistoryFlags(t, "", 20)

	err := runHistory(historyCmd, []string{})
	assert.ErrorContains(t, err, "run history is disabled")
}
