package imagep

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epub2pdf/pkg/config"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

func writeTestImage(t *testing.T, dir, name string, w, h int) types.PageImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return types.PageImage{Path: path, Name: name}
}

func makePages(t *testing.T, dir string, n int) []types.PageImage {
	t.Helper()
	pages := make([]types.PageImage, 0, n)
	for i := 0; i < n; i++ {
		pages = append(pages, writeTestImage(t, dir, fmt.Sprintf("page%03d.png", i+1), 8, 12))
	}
	return pages
}

func TestPartition(t *testing.T) {
	dir := t.TempDir()
	pages := makePages(t, dir, 45)

	groups := Partition(pages)
	require.Len(t, groups, 3)
	assert.Equal(t, 0, groups[0].Index)
	assert.Equal(t, 1, groups[1].Index)
	assert.Equal(t, 2, groups[2].Index)
	assert.Len(t, groups[0].Pages, 20)
	assert.Len(t, groups[1].Pages, 20)
	assert.Len(t, groups[2].Pages, 5)

	// Group boundaries preserve the input order.
	assert.Equal(t, "page001.png", groups[0].Pages[0].Name)
	assert.Equal(t, "page021.png", groups[1].Pages[0].Name)
	assert.Equal(t, "page045.png", groups[2].Pages[4].Name)
}

func TestPartitionEmpty(t *testing.T) {
	assert.Empty(t, Partition(nil))
}

func TestProcessPagesProducesOrderedChunks(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	p := NewProcessor(cfg, logger.DefaultLogger())

	scratch, err := utils.NewScratchArea(logger.DefaultLogger())
	require.NoError(t, err)
	defer scratch.Cleanup()

	pages := makePages(t, scratch.ImageDir, 25)
	chunks, err := p.ProcessPages(context.Background(), pages, scratch)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, scratch.ChunkPath(0), chunks[0])
	assert.Equal(t, scratch.ChunkPath(1), chunks[1])
	for _, chunk := range chunks {
		assert.True(t, utils.LooksLikePDF(chunk), "chunk %s", chunk)
	}
}

func TestProcessPagesFailsOnCorruptImage(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	p := NewProcessor(cfg, logger.DefaultLogger())

	scratch, err := utils.NewScratchArea(logger.DefaultLogger())
	require.NoError(t, err)
	defer scratch.Cleanup()

	pages := makePages(t, scratch.ImageDir, 2)
	bad := filepath.Join(scratch.ImageDir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))
	pages = append(pages, types.PageImage{Path: bad, Name: "broken.png"})

	_, err = p.ProcessPages(context.Background(), pages, scratch)
	require.Error(t, err)

	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrorTypeProcessing, appErr.Type)
	assert.Equal(t, 0, appErr.GroupIndex)
}

func TestApplyTransformsResize(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ResizeSpec = "100x150"
	require.NoError(t, cfg.Validate())
	p := NewProcessor(cfg, logger.DefaultLogger())

	src := image.NewRGBA(image.Rect(0, 0, 300, 300))
	out := p.applyTransforms(src)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 150, out.Bounds().Dy())
}

func TestApplyTransformsNoop(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	p := NewProcessor(cfg, logger.DefaultLogger())

	src := image.NewRGBA(image.Rect(0, 0, 30, 40))
	out := p.applyTransforms(src)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestApplyTransformsGrayscale(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Grayscale = true
	require.NoError(t, cfg.Validate())
	p := NewProcessor(cfg, logger.DefaultLogger())

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	out := p.applyTransforms(src)

	r, g, b, _ := out.At(0, 0).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}
