// Package metadata stamps document fields onto finished PDFs via the
// external exiftool. The tool being absent is never fatal.
package metadata

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"epub2pdf/pkg/config"
	"epub2pdf/pkg/interfaces"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/types"
)

// Writer applies title/author/subject/keywords to a PDF in place
type Writer struct {
	config *config.Config
	logger *logger.Logger
}

// NewWriter creates a metadata writer
func NewWriter(cfg *config.Config, log *logger.Logger) *Writer {
	return &Writer{
		config: cfg,
		logger: log,
	}
}

// DeriveTitle builds a human-readable title from a source filename:
// extension stripped, underscores and hyphens replaced with spaces.
// Purely cosmetic; has no effect on conversion success.
func DeriveTitle(inputPath string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")
	return strings.TrimSpace(stem)
}

// Apply stamps the metadata fields onto the PDF. Every failure here is
// a soft failure: a warning is logged and nil is returned, so metadata
// can never fail a job.
func (w *Writer) Apply(ctx context.Context, pdfPath string, meta types.Metadata) error {
	if meta.IsZero() {
		return nil
	}

	if _, err := exec.LookPath(w.config.ExiftoolPath); err != nil {
		w.logger.Warn("exiftool not available, metadata not applied to %s", filepath.Base(pdfPath))
		return nil
	}

	// Field values go straight into the argument vector; nothing is
	// ever interpreted by a shell.
	args := []string{"-overwrite_original"}
	for _, field := range []struct{ name, value string }{
		{"Title", meta.Title},
		{"Author", meta.Author},
		{"Subject", meta.Subject},
		{"Keywords", meta.Keywords},
	} {
		if field.value != "" {
			args = append(args, fmt.Sprintf("-%s=%s", field.name, field.value))
		}
	}
	args = append(args, pdfPath)

	ctx, cancel := context.WithTimeout(ctx, w.config.ToolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.config.ExiftoolPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	w.logger.Debug("Running: %s", cmd.String())
	if err := cmd.Run(); err != nil {
		w.logger.Warn("exiftool failed on %s: %v (stderr: %s)",
			filepath.Base(pdfPath), err, strings.TrimSpace(stderr.String()))
		return nil
	}

	w.logger.Progress("🏷️", "Metadata applied to %s", filepath.Base(pdfPath))
	return nil
}

var _ interfaces.MetadataWriter = (*Writer)(nil)
