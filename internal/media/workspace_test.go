package media

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceLifecycle(t *testing.T) {
	root := t.TempDir()

	ws := NewWorkspace(root)
	require.NoError(t, ws.Create())
	assert.True(t, ws.Exists())
	assert.FileExists(t, filepath.Join(ws.Root(), ".lock"))

	require.NoError(t, os.WriteFile(ws.Path("source.mp4"), []byte("data"), 0o644))

	require.NoError(t, ws.Cleanup())
	assert.False(t, ws.Exists())
}

func TestWorkspacesDoNotCollide(t *testing.T) {
	root := t.TempDir()
	a := NewWorkspace(root)
	b := NewWorkspace(root)
	assert.NotEqual(t, a.Root(), b.Root())
}

func TestCleanupOrphans(t *testing.T) {
	root := t.TempDir()

	stale := filepath.Join(root, uuid.NewString())
	require.NoError(t, os.MkdirAll(stale, 0o755))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	locked := filepath.Join(root, uuid.NewString())
	require.NoError(t, os.MkdirAll(locked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(locked, ".lock"), nil, 0o644))
	require.NoError(t, os.Chtimes(locked, old, old))

	fresh := NewWorkspace(root)
	require.NoError(t, fresh.Create())

	notAWorkspace := filepath.Join(root, "keep-me")
	require.NoError(t, os.MkdirAll(notAWorkspace, 0o755))
	require.NoError(t, os.Chtimes(notAWorkspace, old, old))

	require.NoError(t, CleanupOrphans(root, 24*time.Hour))

	assert.NoDirExists(t, stale)
	assert.DirExists(t, locked)
	assert.True(t, fresh.Exists())
	assert.DirExists(t, notAWorkspace)
}
