package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"epub2pdf/pkg/logger"
)

// ScratchArea is the job-scoped temporary workspace. One area is owned
// exclusively by one conversion job for its lifetime; areas are never
// shared across jobs or workers.
//
// Layout: {tmp}/epub2pdf_{uuid}/{extract,images,chunks}
type ScratchArea struct {
	Root       string
	ExtractDir string
	ImageDir   string
	ChunkDir   string

	logger *logger.Logger
}

// NewScratchArea creates the scratch directory tree for one job
func NewScratchArea(log *logger.Logger) (*ScratchArea, error) {
	root := filepath.Join(os.TempDir(), fmt.Sprintf("epub2pdf_%s", uuid.New().String()[:8]))
	sa := &ScratchArea{
		Root:       root,
		ExtractDir: filepath.Join(root, "extract"),
		ImageDir:   filepath.Join(root, "images"),
		ChunkDir:   filepath.Join(root, "chunks"),
		logger:     log,
	}
	for _, dir := range []string{sa.ExtractDir, sa.ImageDir, sa.ChunkDir} {
		if err := EnsureDir(dir); err != nil {
			// Roll back whatever was created so a half-built area is
			// not left behind.
			os.RemoveAll(root)
			return nil, NewIOError(fmt.Sprintf("failed to create scratch area %s", root), err)
		}
	}
	log.Debug("Created scratch area: %s", root)
	return sa, nil
}

// ChunkPath returns the path for the intermediate PDF of one group
func (sa *ScratchArea) ChunkPath(groupIndex int) string {
	return filepath.Join(sa.ChunkDir, fmt.Sprintf("group_%04d.pdf", groupIndex))
}

// Cleanup removes the whole scratch tree
func (sa *ScratchArea) Cleanup() error {
	if err := os.RemoveAll(sa.Root); err != nil {
		sa.logger.Warn("Failed to remove scratch area %s: %v", sa.Root, err)
		return NewIOError("scratch cleanup failed", err)
	}
	sa.logger.Debug("Removed scratch area: %s", sa.Root)
	return nil
}

// Preserve logs the scratch location so a failed job can be diagnosed
func (sa *ScratchArea) Preserve(reason string) {
	sa.logger.Warn("Preserving scratch area for inspection (%s): %s", reason, sa.Root)
}
