// Package packager implements the post-batch conveniences: zipping the
// produced PDFs and opening the output directory. Both are best-effort;
// their failure is a warning, never a batch failure.
package packager

import (
	"archive/zip"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"epub2pdf/pkg/logger"
)

// Packager bundles batch outputs after conversion
type Packager struct {
	logger *logger.Logger
}

// NewPackager creates a packager
func NewPackager(log *logger.Logger) *Packager {
	return &Packager{logger: log}
}

// ZipOutputs writes all produced PDFs into one archive. PDFs are
// already compressed, so entries are stored rather than deflated.
func (p *Packager) ZipOutputs(pdfPaths []string, archivePath string) error {
	if len(pdfPaths) == 0 {
		p.logger.Warn("No PDFs produced, skipping archive creation")
		return nil
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, pdfPath := range pdfPaths {
		if err := p.addStored(zw, pdfPath); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	p.logger.ProgressAlways("🗜️", "Archived %d PDFs into %s", len(pdfPaths), archivePath)
	return nil
}

func (p *Packager) addStored(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:   filepath.Base(path),
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, in)
	return err
}

// OpenDirectory asks the OS to open the output directory in the file
// manager.
func (p *Packager) OpenDirectory(dir string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", dir)
	case "windows":
		cmd = exec.Command("explorer", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	return cmd.Start()
}
