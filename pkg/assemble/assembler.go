// Package assemble concatenates intermediate PDF chunks into the final
// output document.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"epub2pdf/pkg/interfaces"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/utils"
)

// PDFAssembler merges chunk PDFs in index order. It never reorders,
// deduplicates or drops pages; the skip/force decision was already made
// by the orchestrator, so an existing output file is always
// overwritten.
type PDFAssembler struct {
	logger *logger.Logger
}

// NewPDFAssembler creates a PDF assembler
func NewPDFAssembler(log *logger.Logger) *PDFAssembler {
	return &PDFAssembler{logger: log}
}

// Assemble writes the concatenation of the chunks to outputPath
func (a *PDFAssembler) Assemble(chunkPaths []string, outputPath string) error {
	if len(chunkPaths) == 0 {
		return utils.NewAssemblyError(utils.ReasonNoChunks, "no chunks to assemble", nil)
	}

	if err := utils.EnsureDir(filepath.Dir(outputPath)); err != nil {
		return utils.NewAssemblyError(utils.ReasonWriteFailed,
			fmt.Sprintf("cannot create output directory for %s", outputPath), err)
	}

	a.logger.Progress("🔗", "Merging %d chunks into %s", len(chunkPaths), filepath.Base(outputPath))

	// A single chunk needs no merge pass.
	if len(chunkPaths) == 1 {
		if err := utils.CopyFile(chunkPaths[0], outputPath); err != nil {
			return utils.NewAssemblyError(utils.ReasonWriteFailed,
				fmt.Sprintf("failed to write %s", outputPath), err)
		}
	} else {
		if err := api.MergeCreateFile(chunkPaths, outputPath, false, nil); err != nil {
			// Never leave a half-written output behind.
			os.Remove(outputPath)
			return utils.NewAssemblyError(utils.ReasonWriteFailed,
				fmt.Sprintf("failed to merge chunks into %s", outputPath), err)
		}
	}

	if !utils.LooksLikePDF(outputPath) {
		os.Remove(outputPath)
		return utils.NewAssemblyError(utils.ReasonWriteFailed,
			fmt.Sprintf("assembled file %s is not a valid PDF", outputPath), nil)
	}
	return nil
}

// PageCount reports the number of pages in a PDF file
func PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}

var _ interfaces.Assembler = (*PDFAssembler)(nil)
