package executor

import (
	"bytes"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is the per-job scratch directory on the host. It is bind-mounted
// into the container and deleted when the job ends.
type Workspace struct {
	JobID    string
	HostPath string
}

// WorkspaceManager allocates and reclaims per-job workspaces under a scratch
// root. Paths are partitioned by unique job IDs so concurrent jobs never
// contend for the same directory.
type WorkspaceManager struct {
	scratchRoot string
}

// NewWorkspaceManager creates a workspace manager. An empty scratch root
// selects the platform temp directory.
func NewWorkspaceManager(scratchRoot string) *WorkspaceManager {
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &WorkspaceManager{scratchRoot: scratchRoot}
}

// Create allocates a fresh workspace directory with owner-only permissions.
func (m *WorkspaceManager) Create() (*Workspace, error) {
	jobID := uuid.New().String()
	hostPath := filepath.Join(m.scratchRoot, "isobox-"+jobID)

	if err := os.MkdirAll(hostPath, 0700); err != nil {
		return nil, tempDirError(err)
	}

	return &Workspace{JobID: jobID, HostPath: hostPath}, nil
}

// WriteSource writes the source file into the workspace, flushes it to disk,
// and verifies the write by reading the file back. The verification guards
// against partial writes on shared filesystems where the container mount can
// race the write.
func (m *WorkspaceManager) WriteSource(ws *Workspace, filename string, code []byte) error {
	path := filepath.Join(ws.HostPath, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fileWriteError("failed to create source file", err)
	}
	if _, err := f.Write(code); err != nil {
		f.Close()
		return fileWriteError("failed to write source file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fileWriteError("failed to sync source file", err)
	}
	if err := f.Close(); err != nil {
		return fileWriteError("failed to close source file", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		return fileWriteError("failed to read back source file", err)
	}
	if len(written) != len(code) || !bytes.Equal(written, code) {
		return fileWriteError("source file verification failed: content mismatch", nil)
	}

	return nil
}

// Destroy removes the workspace directory. Failures are logged but never
// propagated; a leaked directory must not turn a finished job into an error.
func (m *WorkspaceManager) Destroy(ws *Workspace) {
	if ws == nil {
		return
	}
	if err := os.RemoveAll(ws.HostPath); err != nil {
		log.Printf("Failed to clean up workspace %s: %v", ws.HostPath, err)
	}
}
