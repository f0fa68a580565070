package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the container format of a source file
type Format string

const (
	FormatEPUB Format = "epub"
	FormatCBR  Format = "cbr"
	FormatCBZ  Format = "cbz"
)

// DetectFormat determines the source format from the file extension.
// Returns false when the extension is not a supported input format.
func DetectFormat(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return FormatEPUB, true
	case ".cbr":
		return FormatCBR, true
	case ".cbz":
		return FormatCBZ, true
	}
	return "", false
}

// EPUBStrategy selects how an EPUB is turned into a PDF
type EPUBStrategy string

const (
	// EPUBStrategyHarvest unpacks the e-book with the external converter
	// and feeds its embedded images through the image pipeline.
	EPUBStrategyHarvest EPUBStrategy = "harvest"
	// EPUBStrategyDirect delegates the whole PDF generation to the
	// external converter.
	EPUBStrategyDirect EPUBStrategy = "direct"
)

// Dimensions is a concrete pixel size for the resize transform
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// String returns the WIDTHxHEIGHT form used by the CLI
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Metadata holds the PDF document fields stamped after assembly
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Keywords string `json:"keywords,omitempty"`
}

// IsZero reports whether no metadata field is set
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Author == "" && m.Subject == "" && m.Keywords == ""
}

// PageImage is a single extracted raster image. Ordering of the slice
// returned by an extractor is the page order of the output PDF.
type PageImage struct {
	// Path is the location of the image inside the job's scratch area
	Path string `json:"path"`
	// Name is the basename used for natural ordering and deduplication
	Name string `json:"name"`
}

// ImageGroup is an ordered, bounded slice of the page sequence. Each
// group becomes exactly one intermediate PDF chunk. Index is explicit so
// chunk order never depends on processing completion order.
type ImageGroup struct {
	Index int         `json:"index"`
	Pages []PageImage `json:"pages"`
}

// ConversionJob is one source file scheduled for conversion. Created by
// the orchestrator, consumed once, never persisted.
type ConversionJob struct {
	Input      string `json:"input"`
	Format     Format `json:"format"`
	OutputPath string `json:"output_path"`
}

// JobStatus is the lifecycle state of a ConversionJob
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusSkipped   JobStatus = "skipped"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// Stage names the pipeline stage a result refers to
type Stage string

const (
	StageExtraction Stage = "extraction"
	StageUnpack     Stage = "unpack"
	StageProcessing Stage = "processing"
	StageAssembly   Stage = "assembly"
	StageMetadata   Stage = "metadata"
)

// ConversionResult is the terminal outcome of one job
type ConversionResult struct {
	Job    ConversionJob `json:"job"`
	Status JobStatus     `json:"status"`
	// Stage is set for failed jobs only
	Stage Stage `json:"stage,omitempty"`
	// Reason explains a skip or failure in one line
	Reason string `json:"reason,omitempty"`
	// Err carries the failure cause for failed jobs
	Err error `json:"-"`
}

// BatchSummary aggregates one result per input job
type BatchSummary struct {
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Results   []ConversionResult `json:"results"`
}

// Count tallies the per-status counters from Results
func (s *BatchSummary) Count() {
	s.Total = len(s.Results)
	s.Succeeded, s.Skipped, s.Failed = 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
}
