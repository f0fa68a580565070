package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epub2pdf/pkg/constants"
	"epub2pdf/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.CleanTemp)
	assert.Equal(t, types.EPUBStrategyHarvest, cfg.EPUBStrategy)
	assert.Equal(t, constants.DefaultMaxWorkers, cfg.MaxWorkers)
	assert.Equal(t, constants.DefaultToolTimeout, cfg.ToolTimeout)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EPUB2PDF_CALIBRE_PATH", "/opt/calibre/ebook-convert")
	t.Setenv("EPUB2PDF_MAX_WORKERS", "8")
	t.Setenv("EPUB2PDF_TOOL_TIMEOUT", "2m")
	t.Setenv("EPUB2PDF_LOG_LEVEL", "debug")

	cfg := LoadConfigWithEnvOverrides()
	assert.Equal(t, "/opt/calibre/ebook-convert", cfg.CalibrePath)
	assert.Equal(t, 8, cfg.MaxWorkers)
	assert.Equal(t, 2*time.Minute, cfg.ToolTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverridesIgnoreInvalidValues(t *testing.T) {
	t.Setenv("EPUB2PDF_MAX_WORKERS", "zero")
	t.Setenv("EPUB2PDF_TOOL_TIMEOUT", "-5m")

	cfg := LoadConfigWithEnvOverrides()
	assert.Equal(t, constants.DefaultMaxWorkers, cfg.MaxWorkers)
	assert.Equal(t, constants.DefaultToolTimeout, cfg.ToolTimeout)
}

func TestValidateResolvesResizeSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResizeSpec = "a4"
	require.NoError(t, cfg.Validate())
	require.NotNil(t, cfg.ResizeDims)
	assert.Equal(t, types.Dimensions{Width: 1240, Height: 1754}, *cfg.ResizeDims)

	// Validation is idempotent.
	require.NoError(t, cfg.Validate())
	assert.Equal(t, types.Dimensions{Width: 1240, Height: 1754}, *cfg.ResizeDims)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResizeSpec = "letter"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxWorkers = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.EPUBStrategy = "magic"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ToolTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestMaxImagesFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, constants.MaxImagesEPUB, cfg.MaxImagesFor(types.FormatEPUB))
	assert.Equal(t, constants.MaxImagesComic, cfg.MaxImagesFor(types.FormatCBZ))
	assert.Equal(t, constants.MaxImagesComic, cfg.MaxImagesFor(types.FormatCBR))
}
