package core

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epub2pdf/pkg/assemble"
	"epub2pdf/pkg/config"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// buildCBZ writes a comic archive with the given number of PNG pages
func buildCBZ(t *testing.T, path string, pages int) {
	t.Helper()
	var imgBuf bytes.Buffer
	require.NoError(t, png.Encode(&imgBuf, image.NewRGBA(image.Rect(0, 0, 6, 9))))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for p := 1; p <= pages; p++ {
		w, err := zw.Create(fmt.Sprintf("page%03d.png", p))
		require.NoError(t, err)
		_, err = w.Write(imgBuf.Bytes())
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.UnarPath = "unar-not-installed-for-tests"
	cfg.ExiftoolPath = "exiftool-not-installed-for-tests"
	require.NoError(t, cfg.Validate())
	return cfg
}

func makeJob(t *testing.T, cfg *config.Config, input string) types.ConversionJob {
	t.Helper()
	format, ok := types.DetectFormat(input)
	require.True(t, ok)
	return types.ConversionJob{
		Input:      input,
		Format:     format,
		OutputPath: filepath.Join(cfg.OutputDir, utils.OutputBasename(input)),
	}
}

func TestRunBatchConvertsArchive(t *testing.T) {
	cfg := newTestConfig(t)
	inputDir := t.TempDir()

	archive := filepath.Join(inputDir, "my comic.cbz")
	buildCBZ(t, archive, 5)
	job := makeJob(t, cfg, archive)

	o := NewOrchestrator(cfg, logger.DefaultLogger())
	summary := o.RunBatch(context.Background(), []types.ConversionJob{job})

	require.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, types.StatusSucceeded, summary.Results[0].Status)
	assert.Equal(t, "my_comic.pdf", filepath.Base(job.OutputPath))
	require.True(t, utils.LooksLikePDF(job.OutputPath))

	count, err := assemble.PageCount(job.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRunBatchChunkedArchive(t *testing.T) {
	cfg := newTestConfig(t)
	inputDir := t.TempDir()

	// 25 pages crosses the group boundary so the merge path runs.
	archive := filepath.Join(inputDir, "long.cbz")
	buildCBZ(t, archive, 25)
	job := makeJob(t, cfg, archive)

	o := NewOrchestrator(cfg, logger.DefaultLogger())
	summary := o.RunBatch(context.Background(), []types.ConversionJob{job})
	require.Equal(t, 1, summary.Succeeded)

	count, err := assemble.PageCount(job.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 25, count)
}

func TestRunBatchUnsortedInputs(t *testing.T) {
	cfg := newTestConfig(t)
	inputDir := t.TempDir()

	// Jobs arrive in the caller's order and each maps to its own output.
	for _, name := range []string{"b.cbz", "a.cbz"} {
		buildCBZ(t, filepath.Join(inputDir, name), 3)
	}
	jobs := []types.ConversionJob{
		makeJob(t, cfg, filepath.Join(inputDir, "b.cbz")),
		makeJob(t, cfg, filepath.Join(inputDir, "a.cbz")),
	}

	o := NewOrchestrator(cfg, logger.DefaultLogger())
	summary := o.RunBatch(context.Background(), jobs)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	for _, r := range summary.Results {
		count, err := assemble.PageCount(r.Job.OutputPath)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	}
	assert.Equal(t, "b.cbz", filepath.Base(summary.Results[0].Job.Input))
	assert.Equal(t, "a.cbz", filepath.Base(summary.Results[1].Job.Input))
}

func TestRunBatchSkipsExistingOutput(t *testing.T) {
	cfg := newTestConfig(t)
	inputDir := t.TempDir()

	archive := filepath.Join(inputDir, "book.cbz")
	buildCBZ(t, archive, 2)
	job := makeJob(t, cfg, archive)

	o := NewOrchestrator(cfg, logger.DefaultLogger())
	first := o.RunBatch(context.Background(), []types.ConversionJob{job})
	require.Equal(t, 1, first.Succeeded)

	second := o.RunBatch(context.Background(), []types.ConversionJob{job})
	require.Equal(t, 1, second.Skipped)
	assert.Equal(t, utils.ReasonAlreadyExists, second.Results[0].Reason)

	cfg.Force = true
	third := o.RunBatch(context.Background(), []types.ConversionJob{job})
	assert.Equal(t, 1, third.Succeeded)
}

func TestRunBatchDryRun(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.DryRun = true
	inputDir := t.TempDir()

	var jobs []types.ConversionJob
	for i := 1; i <= 3; i++ {
		archive := filepath.Join(inputDir, fmt.Sprintf("comic%d.cbz", i))
		buildCBZ(t, archive, 1)
		jobs = append(jobs, makeJob(t, cfg, archive))
	}
	// One output pre-exists; the dry run must still report it.
	require.NoError(t, os.WriteFile(jobs[1].OutputPath, []byte("existing"), 0644))

	o := NewOrchestrator(cfg, logger.DefaultLogger())
	summary := o.RunBatch(context.Background(), jobs)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, "dry-run", summary.Results[0].Reason)
	assert.Contains(t, summary.Results[1].Reason, "output exists")
	assert.Equal(t, "dry-run", summary.Results[2].Reason)

	// Nothing was written or modified.
	assert.NoFileExists(t, jobs[0].OutputPath)
	assert.NoFileExists(t, jobs[2].OutputPath)
	data, err := os.ReadFile(jobs[1].OutputPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("existing"), data)
}

func TestRunBatchContinuesPastFailure(t *testing.T) {
	cfg := newTestConfig(t)
	inputDir := t.TempDir()

	broken := filepath.Join(inputDir, "broken.cbz")
	require.NoError(t, os.WriteFile(broken, []byte("not an archive"), 0644))
	good := filepath.Join(inputDir, "good.cbz")
	buildCBZ(t, good, 2)

	jobs := []types.ConversionJob{makeJob(t, cfg, broken), makeJob(t, cfg, good)}

	o := NewOrchestrator(cfg, logger.DefaultLogger())
	summary := o.RunBatch(context.Background(), jobs)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)

	failed := summary.Results[0]
	assert.Equal(t, types.StatusFailed, failed.Status)
	assert.Equal(t, types.StageExtraction, failed.Stage)
	assert.Equal(t, utils.ReasonCorruptArchive, failed.Reason)
	assert.Error(t, failed.Err)

	assert.Equal(t, types.StatusSucceeded, summary.Results[1].Status)
	assert.True(t, utils.LooksLikePDF(jobs[1].OutputPath))
}

func TestRunBatchParallel(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Parallel = true
	cfg.MaxWorkers = 4
	inputDir := t.TempDir()

	var jobs []types.ConversionJob
	for i := 1; i <= 6; i++ {
		archive := filepath.Join(inputDir, fmt.Sprintf("vol%d.cbz", i))
		buildCBZ(t, archive, 3)
		jobs = append(jobs, makeJob(t, cfg, archive))
	}

	o := NewOrchestrator(cfg, logger.DefaultLogger())
	summary := o.RunBatch(context.Background(), jobs)

	require.Equal(t, 6, summary.Succeeded)
	// Results stay in input order regardless of completion order.
	for i, r := range summary.Results {
		assert.Equal(t, jobs[i].Input, r.Job.Input)
		assert.True(t, utils.LooksLikePDF(r.Job.OutputPath))
	}
}

func TestRunBatchProgressCallback(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Parallel = true
	cfg.MaxWorkers = 2
	inputDir := t.TempDir()

	var jobs []types.ConversionJob
	for i := 1; i <= 4; i++ {
		archive := filepath.Join(inputDir, fmt.Sprintf("p%d.cbz", i))
		buildCBZ(t, archive, 1)
		jobs = append(jobs, makeJob(t, cfg, archive))
	}

	var mu sync.Mutex
	var seen []int
	o := NewOrchestrator(cfg, logger.DefaultLogger())
	o.Progress = func(completed, total int, result types.ConversionResult) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 4, total)
		seen = append(seen, completed)
	}

	o.RunBatch(context.Background(), jobs)

	require.Len(t, seen, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}

func TestRunBatchZipsOutputs(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ZipOutput = true
	inputDir := t.TempDir()

	archive := filepath.Join(inputDir, "zipped.cbz")
	buildCBZ(t, archive, 2)
	job := makeJob(t, cfg, archive)

	o := NewOrchestrator(cfg, logger.DefaultLogger())
	summary := o.RunBatch(context.Background(), []types.ConversionJob{job})
	require.Equal(t, 1, summary.Succeeded)

	bundle := filepath.Join(cfg.OutputDir, "converted_pdfs.zip")
	require.FileExists(t, bundle)

	zr, err := zip.OpenReader(bundle)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "zipped.pdf", zr.File[0].Name)
}
