package constants

import "time"

// Application constants
const (
	AppName = "epub2pdf"
)

// File processing constants
const (
	// Default file permissions
	DefaultFilePermission = 0644
	DefaultDirPermission  = 0755

	// GroupSize is the fixed number of images rasterized into one
	// intermediate PDF chunk. Bounds peak memory from simultaneous
	// image decode.
	GroupSize = 20

	// Per-format caps on the number of pages fed into the pipeline.
	// Excess pages are dropped with a warning, never reordered.
	MaxImagesComic = 1000
	MaxImagesEPUB  = 100

	// JPEG encode quality for chunk rasterization. Kept at maximum so
	// pages are not re-compressed lossily.
	ChunkJPEGQuality = 100
)

// Timeouts for external tool invocations. A hung converter must not
// stall the whole batch.
const (
	DefaultToolTimeout    = 10 * time.Minute
	DependencyProbeWindow = 5 * time.Second
)

// Concurrency defaults
const (
	DefaultMaxWorkers = 4
)

// Default external tool commands; overridable via environment or flags
const (
	DefaultCalibreCommand  = "ebook-convert"
	DefaultUnarCommand     = "unar"
	DefaultExiftoolCommand = "exiftool"
)

// ImageExtensions are the page image formats recognized inside source
// archives (matched case-insensitively, without the dot).
var ImageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"bmp": true, "tiff": true, "webp": true,
}

// JunkFiles are archive entries that are never page content
var JunkFiles = map[string]bool{
	"Thumbs.db": true, ".DS_Store": true,
}
