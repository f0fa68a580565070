package extract

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
	"epub2pdf/pkg/utils"
)

// EbookUnpacker converts e-books with Calibre's ebook-convert. In the
// harvest strategy it unpacks the book into an HTMLZ container and
// feeds the embedded raster images into the image pipeline like a comic
// archive. In the direct strategy PDF generation is delegated entirely
// to the converter.
type EbookUnpacker struct {
	name   string
	config *config.Config
	logger *logger.Logger
}

// NewEbookUnpacker creates an e-book page source
func NewEbookUnpacker(cfg *config.Config, log *logger.Logger) *EbookUnpacker {
	return &EbookUnpacker{
		name:   "ebook",
		config: cfg,
		logger: log,
	}
}

// Name returns the name of the page source
func (u *EbookUnpacker) Name() string {
	return u.name
}

// SupportsFormat checks if this source handles the given format
func (u *EbookUnpacker) SupportsFormat(format types.Format) bool {
	return format == types.FormatEPUB
}

// ExtractPages implements the harvest strategy: convert to HTMLZ (a ZIP
// of paginated HTML plus image resources), then harvest the images the
// same way a comic archive is harvested.
func (u *EbookUnpacker) ExtractPages(ctx context.Context, inputFile string, scratch *utils.ScratchArea) ([]types.PageImage, error) {
	u.logger.Progress("📖", "Unpacking e-book: %s", filepath.Base(inputFile))

	htmlzPath := filepath.Join(scratch.Root, "book.htmlz")
	if err := u.runConverter(ctx, inputFile, htmlzPath, nil); err != nil {
		return nil, err
	}

	if _, err := extractZipImages(htmlzPath, scratch.ExtractDir, u.logger); err != nil {
		return nil, utils.NewUnpackError("converter output is not a readable container", err)
	}

	pages, err := harvestImages(scratch.ExtractDir, scratch.ImageDir, u.config.MaxImagesFor(types.FormatEPUB), u.logger)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, utils.NewExtractionError(utils.ReasonNoImages,
			fmt.Sprintf("no embedded images in %s", filepath.Base(inputFile)), nil)
	}
	return pages, nil
}

// ConvertDirect implements the direct strategy: the external converter
// produces the PDF itself and only the metadata stage applies
// afterward. The PDF is written inside the scratch area first so a
// failed conversion never leaves a partial output file behind.
func (u *EbookUnpacker) ConvertDirect(ctx context.Context, inputFile, outputPath string, scratch *utils.ScratchArea) error {
	u.logger.Progress("📖", "Converting e-book directly: %s", filepath.Base(inputFile))

	if u.config.Grayscale {
		// ebook-convert has no grayscale switch; the harvest strategy
		// is the one that can apply image transforms.
		u.logger.Warn("Grayscale is not supported by the direct EPUB strategy; ignoring")
	}

	args := []string{
		"--output-profile", "tablet",
		"--pdf-page-margin-left", "0",
		"--pdf-page-margin-right", "0",
		"--pdf-page-margin-top", "0",
		"--pdf-page-margin-bottom", "0",
	}

	stagedPath := filepath.Join(scratch.Root, "direct.pdf")
	if err := u.runConverter(ctx, inputFile, stagedPath, args); err != nil {
		return err
	}
	if !utils.LooksLikePDF(stagedPath) {
		return utils.NewUnpackError(fmt.Sprintf("converter produced an invalid PDF for %s", filepath.Base(inputFile)), nil)
	}
	if err := utils.CopyFile(stagedPath, outputPath); err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to place output %s", outputPath), err)
	}
	return nil
}

// runConverter invokes ebook-convert with a structured argument list
// under the configured timeout, capturing stderr for diagnostics.
func (u *EbookUnpacker) runConverter(ctx context.Context, inputFile, outputFile string, extraArgs []string) error {
	ctx, cancel := context.WithTimeout(ctx, u.config.ToolTimeout)
	defer cancel()

	args := append([]string{inputFile, outputFile}, extraArgs...)
	cmd := exec.CommandContext(ctx, u.config.CalibrePath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	u.logger.Debug("Running: %s", cmd.String())
	if err := cmd.Run(); err != nil {
		if timeoutErr := utils.WrapTimeout(ctx, err, "ebook-convert"); timeoutErr != err {
			return timeoutErr
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			u.logger.Error("ebook-convert stderr: %s", detail)
		}
		return utils.NewUnpackError(
			fmt.Sprintf("ebook-convert failed for %s: %s", filepath.Base(inputFile), detail), err)
	}
	return nil
}

var _ interfaces.PageSource = (*EbookUnpacker)(nil)
