// Package imagep rasterizes ordered page images into intermediate PDF
// chunks, applying the configured transforms along the way.
package imagep

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
	_ "golang.org/x/image/webp" // register webp decoder

	"epub2pdf/pkg/config"
	"epub2pdf/pkg/constants"
	"epub2pdf/pkg/interfaces"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// Processor is the image batch processor: it partitions the page
// sequence into bounded groups and rasterizes each group into one
// single-file PDF chunk.
type Processor struct {
	config *config.Config
	logger *logger.Logger
}

// NewProcessor creates an image batch processor
func NewProcessor(cfg *config.Config, log *logger.Logger) *Processor {
	return &Processor{
		config: cfg,
		logger: log,
	}
}

// Partition splits pages into consecutive groups of at most
// constants.GroupSize, each carrying its explicit index.
func Partition(pages []types.PageImage) []types.ImageGroup {
	var groups []types.ImageGroup
	for start := 0; start < len(pages); start += constants.GroupSize {
		end := start + constants.GroupSize
		if end > len(pages) {
			end = len(pages)
		}
		groups = append(groups, types.ImageGroup{
			Index: len(groups),
			Pages: pages[start:end],
		})
	}
	return groups
}

// ProcessPages rasterizes the page sequence into chunk PDFs under the
// scratch area. Groups are processed concurrently on a bounded worker
// set, but the returned chunk paths are always in group index order.
// Any group failure aborts the whole job: a job produces a complete PDF
// or none.
func (p *Processor) ProcessPages(ctx context.Context, pages []types.PageImage, scratch *utils.ScratchArea) ([]string, error) {
	groups := Partition(pages)
	if len(groups) == 0 {
		return nil, nil
	}
	p.logger.Progress("🖼️", "Rasterizing %d pages in %d groups", len(pages), len(groups))

	workers := p.config.MaxWorkers
	if workers > len(groups) {
		workers = len(groups)
	}

	type groupResult struct {
		index int
		err   error
	}
	sem := make(chan struct{}, workers)
	resultCh := make(chan groupResult, len(groups))
	for _, group := range groups {
		go func(g types.ImageGroup) {
			sem <- struct{}{}
			defer func() { <-sem }()
			resultCh <- groupResult{index: g.Index, err: p.processGroup(ctx, g, scratch.ChunkPath(g.Index))}
		}(group)
	}

	var firstErr error
	for range groups {
		res := <-resultCh
		if res.err != nil && (firstErr == nil || isEarlierGroup(res.err, firstErr)) {
			firstErr = res.err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	// Chunk order is the group index, never completion order.
	chunks := make([]string, len(groups))
	for _, group := range groups {
		chunks[group.Index] = scratch.ChunkPath(group.Index)
	}
	return chunks, nil
}

// processGroup decodes, transforms and rasterizes one group into a
// single chunk PDF at maximum encode quality.
func (p *Processor) processGroup(ctx context.Context, group types.ImageGroup, chunkPath string) error {
	pdf := gofpdf.New("P", "pt", "A4", "")

	for i, page := range group.Pages {
		select {
		case <-ctx.Done():
			return utils.NewProcessingError(group.Index, "rasterization cancelled", ctx.Err())
		default:
		}

		img, err := imaging.Open(page.Path)
		if err != nil {
			return utils.NewProcessingError(group.Index,
				fmt.Sprintf("failed to decode page image %s", page.Name), err)
		}
		img = p.applyTransforms(img)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(constants.ChunkJPEGQuality)); err != nil {
			return utils.NewProcessingError(group.Index,
				fmt.Sprintf("failed to encode page image %s", page.Name), err)
		}

		width := float64(img.Bounds().Dx())
		height := float64(img.Bounds().Dy())
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: width, Ht: height})

		imageName := fmt.Sprintf("group%d_page%d", group.Index, i)
		opts := gofpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(imageName, opts, &buf)
		pdf.ImageOptions(imageName, 0, 0, width, height, false, opts, 0, "")
		if pdf.Err() {
			return utils.NewProcessingError(group.Index,
				fmt.Sprintf("failed to place page image %s", page.Name), pdf.Error())
		}
	}

	if err := pdf.OutputFileAndClose(chunkPath); err != nil {
		return utils.NewProcessingError(group.Index, "failed to write chunk PDF", err)
	}
	p.logger.Debug("Wrote chunk %d (%d pages): %s", group.Index, len(group.Pages), chunkPath)
	return nil
}

// applyTransforms runs the configured per-image transforms in order:
// resize-to-cover with a centered crop first, then grayscale.
func (p *Processor) applyTransforms(img image.Image) image.Image {
	if dims := p.config.ResizeDims; dims != nil {
		// Fill covers the target box without distortion and crops the
		// overflow symmetrically around the center anchor.
		img = imaging.Fill(img, dims.Width, dims.Height, imaging.Center, imaging.Lanczos)
	}
	if p.config.Grayscale {
		img = imaging.Grayscale(img)
	}
	return img
}

// isEarlierGroup prefers reporting the lowest-index failing group when
// several groups fail concurrently.
func isEarlierGroup(a, b error) bool {
	ae, aok := utils.AsAppError(a)
	be, bok := utils.AsAppError(b)
	return aok && bok && ae.GroupIndex >= 0 && be.GroupIndex >= 0 && ae.GroupIndex < be.GroupIndex
}

var _ interfaces.ChunkProcessor = (*Processor)(nil)
