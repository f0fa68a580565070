package interfaces

import (
	"context"

	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// PageSource produces the ordered page image sequence of one source
// file. The comic archive extractor and the EPUB harvest unpacker both
// implement it, so the downstream pipeline is identical for every
// format.
type PageSource interface {
	// ExtractPages extracts page images into the scratch area and
	// returns them deduplicated and in natural sort order.
	ExtractPages(ctx context.Context, inputFile string, scratch *utils.ScratchArea) ([]types.PageImage, error)

	// SupportsFormat checks if this source handles the given format
	SupportsFormat(format types.Format) bool

	// Name returns the name of the page source
	Name() string
}

// ChunkProcessor rasterizes ordered page images into intermediate PDF
// chunks, one per image group.
type ChunkProcessor interface {
	// ProcessPages partitions pages into groups and rasterizes each
	// group into one chunk PDF under the scratch area. The returned
	// paths are in group index order.
	ProcessPages(ctx context.Context, pages []types.PageImage, scratch *utils.ScratchArea) ([]string, error)
}

// Assembler concatenates chunk PDFs into the final output document
type Assembler interface {
	// Assemble writes the concatenation of the chunks, in order, to
	// outputPath, overwriting any existing file.
	Assemble(chunkPaths []string, outputPath string) error
}

// MetadataWriter stamps document metadata onto a finished PDF in place
type MetadataWriter interface {
	// Apply writes the metadata fields. Implementations must treat a
	// missing external tool as a soft failure.
	Apply(ctx context.Context, pdfPath string, meta types.Metadata) error
}
