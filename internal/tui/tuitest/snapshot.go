// Package tuitest compares rendered views with snapshot files in testdata.
package tuitest

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "update snapshot files")

// AssertSnapshot compares output, without escape sequences and trailing
// spaces, with testdata/<test name>.snap. A missing snapshot is recorded.
func AssertSnapshot(t *testing.T, output string) {
	t.Helper()

	output = Normalize(output)
	snapshotPath := filepath.Join("testdata", strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))+".snap")

	snapshot, err := os.ReadFile(snapshotPath)
	if *update || os.IsNotExist(err) {
		require.NoError(t, os.MkdirAll(filepath.Dir(snapshotPath), 0o755))
		require.NoError(t, os.WriteFile(snapshotPath, []byte(output), 0o644))
		t.Logf("recorded snapshot: %s", snapshotPath)
		return
	}
	require.NoError(t, err)

	require.Equal(t, string(snapshot), output, "snapshot does not match. run with -update to update it.")
}

// Normalize strips styling so views can be compared as plain text
func Normalize(output string) string {
	lines := strings.Split(ansi.Strip(output), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}
