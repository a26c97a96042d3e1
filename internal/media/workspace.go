package media

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Workspace is the scoped temporary directory for one pipeline run. It is
// named by a fresh run id so concurrent runs never collide, and it is removed
// on every exit path of the run that owns it.
type Workspace struct {
	runID uuid.UUID
	root  string
}

// NewWorkspace creates a workspace handle under the given root.
func NewWorkspace(root string) *Workspace {
	runID := uuid.New()
	return &Workspace{
		runID: runID,
		root:  filepath.Join(root, runID.String()),
	}
}

// Create creates the workspace directory and its lock file. The lock marks
// the workspace as owned by a live run so the orphan sweeper skips it.
func (w *Workspace) Create() error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	lockFile, err := os.Create(filepath.Join(w.root, ".lock"))
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return lockFile.Close()
}

// Cleanup removes the workspace recursively.
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.root)
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// RunID returns the unique id of the run owning this workspace.
func (w *Workspace) RunID() uuid.UUID {
	return w.runID
}

// Path returns the path for a file inside the workspace.
func (w *Workspace) Path(filename string) string {
	return filepath.Join(w.root, filename)
}

// Exists checks if the workspace directory exists.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(w.root)
	return err == nil
}

// CleanupOrphans removes workspaces older than maxAge that are not locked by
// a live run. Runs remove their own workspace on exit; this sweeps what
// crashed workers left behind.
func CleanupOrphans(root string, maxAge time.Duration) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read workspace root: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dirPath, ".lock")); err == nil {
			continue
		}

		os.RemoveAll(dirPath)
	}

	return nil
}
