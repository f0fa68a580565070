package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"epub2pdf/pkg/config"
	"epub2pdf/pkg/core"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"

	"github.com/spf13/cobra"
)

var (
	outputDir    string
	force        bool
	grayscale    bool
	resizeSpec   string
	zipOutput    bool
	keepTemp     bool
	openOutput   bool
	verbose      bool
	dryRun       bool
	recursive    bool
	parallel     bool
	maxWorkers   int
	epubStrategy string
	toolTimeout  string
	metaTitle    string
	metaAuthor   string
	metaSubject  string
	metaKeywords string
	editMetadata bool
	showVersion  bool
)

// AppHandler encapsulates the batch conversion entry point
type AppHandler struct {
	config *config.Config
	logger *logger.Logger
}

// NewAppHandler creates an application handler
func NewAppHandler() *AppHandler {
	return &AppHandler{}
}

// Run resolves the inputs into jobs, executes the batch and prints the
// summary. Returns an error only for setup failures; per-job failures
// are reported in the summary and through the exit code.
func (h *AppHandler) Run(inputs []string) (types.BatchSummary, error) {
	if err := h.initialize(); err != nil {
		return types.BatchSummary{}, err
	}

	jobs, err := h.resolveJobs(inputs)
	if err != nil {
		return types.BatchSummary{}, err
	}
	if len(jobs) == 0 {
		return types.BatchSummary{}, utils.NewConfigError("", "no convertible files found (expected .epub, .cbr or .cbz)", nil)
	}

	orchestrator := core.NewOrchestrator(h.config, h.logger)
	summary := orchestrator.RunBatch(context.Background(), jobs)
	h.printSummary(summary)
	return summary, nil
}

// initialize loads configuration, applies flag overrides and validates
func (h *AppHandler) initialize() error {
	h.config = config.LoadConfigWithEnvOverrides()
	h.applyCommandLineOverrides()

	if err := h.config.Validate(); err != nil {
		return err
	}

	h.logger = logger.NewLogger(h.config.LogLevel, h.config.Verbose)
	return nil
}

// applyCommandLineOverrides applies command line parameter overrides
func (h *AppHandler) applyCommandLineOverrides() {
	h.config.OutputDir = outputDir
	h.config.Force = force
	h.config.Grayscale = grayscale
	h.config.ResizeSpec = resizeSpec
	h.config.ZipOutput = zipOutput
	h.config.CleanTemp = !keepTemp
	h.config.OpenOutput = openOutput
	h.config.DryRun = dryRun
	h.config.Recursive = recursive
	h.config.Parallel = parallel
	h.config.EditMetadata = editMetadata
	h.config.Metadata = types.Metadata{
		Title:    metaTitle,
		Author:   metaAuthor,
		Subject:  metaSubject,
		Keywords: metaKeywords,
	}

	if verbose {
		h.config.Verbose = true
	}
	if maxWorkers > 0 {
		h.config.MaxWorkers = maxWorkers
	}
	if epubStrategy != "" {
		h.config.EPUBStrategy = types.EPUBStrategy(epubStrategy)
	}
	if toolTimeout != "" {
		if d, err := time.ParseDuration(toolTimeout); err == nil && d > 0 {
			h.config.ToolTimeout = d
		}
	}
}

// resolveJobs expands the positional arguments into an ordered job
// list. Files are taken as-is; directories are scanned for supported
// extensions, recursively when --recursive is set. Each input maps to
// exactly one job; unsupported files passed explicitly are an error,
// unsupported files found in directories are silently ignored.
func (h *AppHandler) resolveJobs(inputs []string) ([]types.ConversionJob, error) {
	var jobs []types.ConversionJob
	seen := make(map[string]bool)

	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return utils.NewIOError(fmt.Sprintf("cannot resolve path %s", path), err)
		}
		if seen[abs] {
			return nil
		}
		format, ok := types.DetectFormat(abs)
		if !ok {
			return nil
		}
		seen[abs] = true
		jobs = append(jobs, types.ConversionJob{
			Input:      abs,
			Format:     format,
			OutputPath: h.outputPathFor(abs),
		})
		return nil
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, utils.NewIOError(fmt.Sprintf("cannot access input %s", input), err)
		}

		if !info.IsDir() {
			if _, ok := types.DetectFormat(input); !ok {
				return nil, utils.NewConfigError("",
					fmt.Sprintf("unsupported input file %s (expected .epub, .cbr or .cbz)", input), nil)
			}
			if err := add(input); err != nil {
				return nil, err
			}
			continue
		}

		found, err := h.scanDirectory(input)
		if err != nil {
			return nil, err
		}
		for _, path := range found {
			if err := add(path); err != nil {
				return nil, err
			}
		}
	}

	return jobs, nil
}

// scanDirectory collects supported files under dir in sorted order
func (h *AppHandler) scanDirectory(dir string) ([]string, error) {
	var found []string

	if h.config.Recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := types.DetectFormat(path); ok {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, utils.NewIOError(fmt.Sprintf("cannot scan directory %s", dir), err)
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, utils.NewIOError(fmt.Sprintf("cannot read directory %s", dir), err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if _, ok := types.DetectFormat(path); ok {
				found = append(found, path)
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return utils.NaturalLess(found[i], found[j])
	})
	return found, nil
}

// outputPathFor maps an input file to its PDF destination
func (h *AppHandler) outputPathFor(input string) string {
	name := utils.OutputBasename(input)
	if h.config.OutputDir != "" {
		return filepath.Join(h.config.OutputDir, name)
	}
	return filepath.Join(filepath.Dir(input), name)
}

// printSummary displays the final batch counters
func (h *AppHandler) printSummary(summary types.BatchSummary) {
	fmt.Printf("\n📦 Batch finished: %d total, %d succeeded, %d skipped, %d failed\n",
		summary.Total, summary.Succeeded, summary.Skipped, summary.Failed)

	for _, r := range summary.Results {
		if r.Status != types.StatusFailed {
			continue
		}
		stage := string(r.Stage)
		if stage == "" {
			stage = "unknown"
		}
		fmt.Printf("❌ %s failed at %s: %s\n", filepath.Base(r.Job.Input), stage, r.Reason)
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "epub2pdf [inputs...]",
	Short: "A CLI tool for converting EPUB, CBR and CBZ files to PDF",
	Long: `A batch converter that turns e-books and comic book archives into PDF files.

Supported inputs:
- EPUB e-books (converted via Calibre's ebook-convert)
- CBZ comic archives (zip)
- CBR comic archives (rar, with unar fallback)

Each input produces one PDF named after the source file. Images are
rasterized in groups into intermediate chunks, then concatenated, so
huge archives never hold every page in memory at once.

Examples:
  epub2pdf book.epub                          # Convert one file next to the source
  epub2pdf comics/ -o ./out                   # Convert a whole directory into ./out
  epub2pdf comics/ -r --parallel --workers 8  # Recursive parallel batch
  epub2pdf book.cbz --resize a4 --grayscale   # Normalize pages to A4 grayscale
  epub2pdf book.epub --epub-strategy direct   # Let Calibre produce the PDF itself
  epub2pdf comics/ --dry-run                  # Show planned outputs, write nothing
  epub2pdf book.cbz --title "My Book" --author "Jane Doe"`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Printf("epub2pdf %s\n", version)
			return
		}

		if len(args) == 0 {
			cmd.Help()
			return
		}

		handler := NewAppHandler()
		summary, err := handler.Run(args)
		if err != nil {
			if appErr, ok := utils.AsAppError(err); ok {
				fmt.Fprintf(os.Stderr, "Error (%s): %s\n", appErr.Type, appErr.Message)
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(1)
		}
		if summary.Failed > 0 {
			os.Exit(1)
		}
	},
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "",
		"Directory for generated PDFs (default: next to each input file)")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false,
		"Overwrite existing output PDFs instead of skipping them")
	rootCmd.Flags().BoolVarP(&grayscale, "grayscale", "g", false,
		"Convert all pages to grayscale")
	rootCmd.Flags().StringVar(&resizeSpec, "resize", "",
		"Resize pages to a named size (a4, a3, a5, hd, fhd) or WIDTHxHEIGHT pixels")
	rootCmd.Flags().BoolVarP(&zipOutput, "zip", "z", false,
		"Bundle all generated PDFs into a zip archive after the batch")
	rootCmd.Flags().BoolVar(&keepTemp, "keep-temp", false,
		"Keep per-job temporary directories for inspection")
	rootCmd.Flags().BoolVar(&openOutput, "open", false,
		"Open the output directory when the batch finishes")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output to show progress information")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false,
		"Show the planned input-to-output mapping without writing anything")
	rootCmd.Flags().BoolVarP(&recursive, "recursive", "r", false,
		"Scan directories recursively for convertible files")
	rootCmd.Flags().BoolVarP(&parallel, "parallel", "p", false,
		"Convert multiple files concurrently")
	rootCmd.Flags().IntVarP(&maxWorkers, "workers", "w", 0,
		"Worker count for parallel mode (default 4)")
	rootCmd.Flags().StringVar(&epubStrategy, "epub-strategy", "",
		"EPUB conversion strategy: harvest (extract images) or direct (Calibre renders the PDF)")
	rootCmd.Flags().StringVar(&toolTimeout, "timeout", "",
		"Per-invocation timeout for external tools (e.g. 5m, 30s)")
	rootCmd.Flags().StringVar(&metaTitle, "title", "",
		"PDF title metadata")
	rootCmd.Flags().StringVar(&metaAuthor, "author", "",
		"PDF author metadata")
	rootCmd.Flags().StringVar(&metaSubject, "subject", "",
		"PDF subject metadata")
	rootCmd.Flags().StringVar(&metaKeywords, "keywords", "",
		"PDF keywords metadata")
	rootCmd.Flags().BoolVar(&editMetadata, "edit-metadata", false,
		"Derive a title from the file name when none is given")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false,
		"Show version information")
}
