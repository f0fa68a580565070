package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"epub2pdf/pkg/constants"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// Default values
const (
	DefaultLogLevel     = "info"
	DefaultEPUBStrategy = types.EPUBStrategyHarvest
	DefaultCleanTemp    = true
)

// Config is the immutable options record for one batch run. It is
// resolved once before any job starts and then only read.
type Config struct {
	// Conversion options
	Recursive    bool               `json:"recursive"`
	Force        bool               `json:"force"`
	Grayscale    bool               `json:"grayscale"`
	ResizeSpec   string             `json:"resize_spec,omitempty"`
	ResizeDims   *types.Dimensions  `json:"-"`
	ZipOutput    bool               `json:"zip_output"`
	CleanTemp    bool               `json:"clean_temp"`
	OpenOutput   bool               `json:"open_output"`
	Verbose      bool               `json:"verbose"`
	DryRun       bool               `json:"dry_run"`
	Metadata     types.Metadata     `json:"metadata"`
	EditMetadata bool               `json:"edit_metadata"`
	EPUBStrategy types.EPUBStrategy `json:"epub_strategy"`

	// Output directory; empty means next to each input file
	OutputDir string `json:"output_dir,omitempty"`

	// Concurrency
	Parallel   bool `json:"parallel"`
	MaxWorkers int  `json:"max_workers"`

	// External tool paths
	CalibrePath  string `json:"calibre_path"`
	UnarPath     string `json:"unar_path"`
	ExiftoolPath string `json:"exiftool_path"`

	// Wall-clock bound on each external tool invocation
	ToolTimeout time.Duration `json:"-"`

	// Logging
	LogLevel string `json:"-"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		CleanTemp:    DefaultCleanTemp,
		EPUBStrategy: DefaultEPUBStrategy,
		MaxWorkers:   constants.DefaultMaxWorkers,
		CalibrePath:  constants.DefaultCalibreCommand,
		UnarPath:     constants.DefaultUnarCommand,
		ExiftoolPath: constants.DefaultExiftoolCommand,
		ToolTimeout:  constants.DefaultToolTimeout,
		LogLevel:     DefaultLogLevel,
	}
}

// LoadConfigWithEnvOverrides builds the default config and applies
// environment variable overrides. Command line flags are applied on top
// by the caller.
func LoadConfigWithEnvOverrides() *Config {
	cfg := DefaultConfig()

	if value := os.Getenv("EPUB2PDF_CALIBRE_PATH"); value != "" {
		cfg.CalibrePath = value
	}
	if value := os.Getenv("EPUB2PDF_UNAR_PATH"); value != "" {
		cfg.UnarPath = value
	}
	if value := os.Getenv("EPUB2PDF_EXIFTOOL_PATH"); value != "" {
		cfg.ExiftoolPath = value
	}
	if value := os.Getenv("EPUB2PDF_LOG_LEVEL"); value != "" {
		cfg.LogLevel = value
	}
	if value := os.Getenv("EPUB2PDF_MAX_WORKERS"); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			cfg.MaxWorkers = intVal
		}
	}
	if value := os.Getenv("EPUB2PDF_TOOL_TIMEOUT"); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			cfg.ToolTimeout = d
		}
	}

	return cfg
}

// Validate checks the configuration and resolves the resize spec into
// concrete dimensions. Any error here aborts the batch before work
// starts.
func (c *Config) Validate() error {
	if c.ResizeSpec != "" {
		dims, err := ResolveSize(c.ResizeSpec)
		if err != nil {
			return err
		}
		c.ResizeDims = &dims
	}

	if c.MaxWorkers <= 0 {
		return utils.NewConfigError("", fmt.Sprintf("max workers must be positive, got %d", c.MaxWorkers), nil)
	}

	switch c.EPUBStrategy {
	case types.EPUBStrategyHarvest, types.EPUBStrategyDirect:
	default:
		return utils.NewConfigError("",
			fmt.Sprintf("unknown EPUB strategy %q (expected %q or %q)",
				c.EPUBStrategy, types.EPUBStrategyHarvest, types.EPUBStrategyDirect), nil)
	}

	if c.ToolTimeout <= 0 {
		return utils.NewConfigError("", "tool timeout must be positive", nil)
	}

	return nil
}

// MaxImagesFor returns the page cap applied to one job of the given
// format.
func (c *Config) MaxImagesFor(format types.Format) int {
	if format == types.FormatEPUB {
		return constants.MaxImagesEPUB
	}
	return constants.MaxImagesComic
}
