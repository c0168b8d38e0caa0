package cmdline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCmdline creates <root>/<pid>/cmdline with the given raw bytes.
func writeCmdline(t *testing.T, root string, pid string, raw []byte) {
	t.Helper()
	dir := filepath.Join(root, pid)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), raw, 0o644))
}

func TestResolve_MapsSeparatorsToSpaces(t *testing.T) {
	root := t.TempDir()
	writeCmdline(t, root, "123", []byte("ls\x00-la\x00"))

	r := &ProcResolver{procRoot: root}
	cmd, ok := r.Resolve(123)

	require.True(t, ok)
	assert.Equal(t, "ls -la ", cmd, "trailing NUL must survive as a trailing space")
}

func TestResolve_MapsNewlines(t *testing.T) {
	root := t.TempDir()
	writeCmdline(t, root, "42", []byte("sh\x00-c\x00echo a\nb"))

	r := &ProcResolver{procRoot: root}
	cmd, ok := r.Resolve(42)

	require.True(t, ok)
	assert.Equal(t, "sh -c echo a b", cmd)
}

func TestResolve_MissingProcess(t *testing.T) {
	r := &ProcResolver{procRoot: t.TempDir()}

	cmd, ok := r.Resolve(999)

	assert.False(t, ok)
	assert.Empty(t, cmd)
}

func TestResolve_EmptyCmdline(t *testing.T) {
	// Zombies expose an empty cmdline; that must resolve to Unknown,
	// not to an empty command.
	root := t.TempDir()
	writeCmdline(t, root, "7", nil)

	r := &ProcResolver{procRoot: root}
	_, ok := r.Resolve(7)

	assert.False(t, ok)
}
