package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nwaples/rardecode"

	"epub2pdf/pkg/config"
	"epub2pdf/pkg/constants"
	"epub2pdf/pkg/interfaces"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// ArchiveExtractor extracts page images from comic archives (CBZ/CBR).
// The file extension picks the decoder tried first, but a mismatched
// container is tolerated: the other decoder and then the external unar
// tool are tried before the archive is declared corrupt.
type ArchiveExtractor struct {
	name   string
	config *config.Config
	logger *logger.Logger
}

// NewArchiveExtractor creates a comic archive page source
func NewArchiveExtractor(cfg *config.Config, log *logger.Logger) *ArchiveExtractor {
	return &ArchiveExtractor{
		name:   "archive",
		config: cfg,
		logger: log,
	}
}

// Name returns the name of the page source
func (e *ArchiveExtractor) Name() string {
	return e.name
}

// SupportsFormat checks if this source handles the given format
func (e *ArchiveExtractor) SupportsFormat(format types.Format) bool {
	return format == types.FormatCBZ || format == types.FormatCBR
}

// ExtractPages extracts the archive into the scratch area and returns
// the ordered, deduplicated page sequence.
func (e *ArchiveExtractor) ExtractPages(ctx context.Context, inputFile string, scratch *utils.ScratchArea) ([]types.PageImage, error) {
	e.logger.Progress("📦", "Extracting archive: %s", filepath.Base(inputFile))

	format, _ := types.DetectFormat(inputFile)
	if err := e.extractArchive(ctx, inputFile, format, scratch.ExtractDir); err != nil {
		return nil, err
	}

	maxImages := e.config.MaxImagesFor(format)
	pages, err := harvestImages(scratch.ExtractDir, scratch.ImageDir, maxImages, e.logger)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, utils.NewExtractionError(utils.ReasonNoImages,
			fmt.Sprintf("no recognized page images in %s", filepath.Base(inputFile)), nil)
	}
	return pages, nil
}

// extractArchive runs the decoder ladder: decoder implied by the
// extension, then the other one, then external unar.
func (e *ArchiveExtractor) extractArchive(ctx context.Context, inputFile string, format types.Format, destDir string) error {
	attempts := []func() (int, error){
		func() (int, error) { return extractZipImages(inputFile, destDir, e.logger) },
		func() (int, error) { return e.extractRarImages(inputFile, destDir) },
	}
	if format == types.FormatCBR {
		attempts[0], attempts[1] = attempts[1], attempts[0]
	}

	var lastErr error
	for _, attempt := range attempts {
		if _, err := attempt(); err == nil {
			return nil
		} else {
			e.logger.Debug("Decoder attempt failed for %s: %v", inputFile, err)
			lastErr = err
		}
	}

	if err := e.extractWithUnar(ctx, inputFile, destDir); err != nil {
		e.logger.Debug("External unar fallback failed for %s: %v", inputFile, err)
		return utils.NewExtractionError(utils.ReasonCorruptArchive,
			fmt.Sprintf("archive unreadable: %s", filepath.Base(inputFile)), lastErr)
	}
	return nil
}

// extractRarImages extracts the image entries of a RAR-based archive
func (e *ArchiveExtractor) extractRarImages(archivePath, destDir string) (int, error) {
	reader, err := rardecode.OpenReader(archivePath, "")
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	extracted := 0
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extracted, err
		}
		if header.IsDir || utils.IsJunkFile(header.Name) || !utils.IsImageFile(header.Name) {
			continue
		}
		if !utils.IsSafeArchivePath(header.Name) {
			e.logger.Warn("Skipping unsafe archive entry: %s", header.Name)
			continue
		}

		destPath := filepath.Join(destDir, filepath.FromSlash(header.Name))
		if err := writeStreamEntry(reader, destPath); err != nil {
			e.logger.Warn("Failed to extract %s: %v", header.Name, err)
			continue
		}
		extracted++
	}
	return extracted, nil
}

// extractWithUnar is the last resort for archives neither native
// decoder can read. Arguments are passed as a structured list, never
// through a shell.
func (e *ArchiveExtractor) extractWithUnar(ctx context.Context, archivePath, destDir string) error {
	ctx, cancel := context.WithTimeout(ctx, e.config.ToolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.config.UnarPath,
		"-quiet", "-force-overwrite", "-output-directory", destDir, archivePath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("Running: %s", cmd.String())
	if err := cmd.Run(); err != nil {
		if timeoutErr := utils.WrapTimeout(ctx, err, "unar"); timeoutErr != err {
			return timeoutErr
		}
		return fmt.Errorf("unar failed: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}

func writeStreamEntry(src io.Reader, destPath string) error {
	if err := utils.EnsureDir(filepath.Dir(destPath)); err != nil {
		return err
	}
	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.DefaultFilePermission)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

var _ interfaces.PageSource = (*ArchiveExtractor)(nil)
