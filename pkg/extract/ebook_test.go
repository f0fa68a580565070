package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epub2pdf/pkg/config"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

func TestEbookUnpackerSupportsOnlyEPUB(t *testing.T) {
	u := NewEbookUnpacker(config.DefaultConfig(), logger.DefaultLogger())
	assert.True(t, u.SupportsFormat(types.FormatEPUB))
	assert.False(t, u.SupportsFormat(types.FormatCBZ))
	assert.False(t, u.SupportsFormat(types.FormatCBR))
}

func TestEbookUnpackerMissingConverter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CalibrePath = "ebook-convert-not-installed-for-tests"
	require.NoError(t, cfg.Validate())

	log := logger.DefaultLogger()
	scratch, err := utils.NewScratchArea(log)
	require.NoError(t, err)
	defer scratch.Cleanup()

	u := NewEbookUnpacker(cfg, log)
	_, err = u.ExtractPages(context.Background(), filepath.Join(t.TempDir(), "book.epub"), scratch)
	require.Error(t, err)

	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrorTypeUnpack, appErr.Type)
	assert.Equal(t, types.StageUnpack, appErr.Stage())
}
