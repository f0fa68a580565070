// Package extract turns source containers (comic archives, e-books)
// into ordered page image sequences inside a job's scratch area.
package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"epub2pdf/pkg/constants"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// extractZipImages extracts the recognized image entries of a ZIP-based
// container into destDir, preserving entry paths. Unsafe entry names
// are skipped with a warning. Returns the number of files written.
func extractZipImages(archivePath, destDir string, log *logger.Logger) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	extracted := 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if utils.IsJunkFile(entry.Name) || !utils.IsImageFile(entry.Name) {
			continue
		}
		if !utils.IsSafeArchivePath(entry.Name) {
			log.Warn("Skipping unsafe archive entry: %s", entry.Name)
			continue
		}

		if err := writeZipEntry(entry, filepath.Join(destDir, filepath.FromSlash(entry.Name))); err != nil {
			log.Warn("Failed to extract %s: %v", entry.Name, err)
			continue
		}
		extracted++
	}
	return extracted, nil
}

func writeZipEntry(entry *zip.File, destPath string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := utils.EnsureDir(filepath.Dir(destPath)); err != nil {
		return err
	}
	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.DefaultFilePermission)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// harvestImages walks an extraction directory and produces the final
// ordered page sequence: natural sort over the extracted paths,
// first-seen deduplication by basename, the per-job cap, and a physical
// copy of each surviving page into the image directory.
func harvestImages(extractDir, imageDir string, maxImages int, log *logger.Logger) ([]types.PageImage, error) {
	var found []string
	err := filepath.WalkDir(extractDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || utils.IsJunkFile(path) || !utils.IsImageFile(path) {
			return nil
		}
		rel, err := filepath.Rel(extractDir, path)
		if err != nil {
			return err
		}
		found = append(found, rel)
		return nil
	})
	if err != nil {
		return nil, utils.NewIOError(fmt.Sprintf("failed to scan extraction dir %s", extractDir), err)
	}

	// Ordering is decided here, once, before deduplication: first-seen
	// means first in natural traversal order.
	utils.SortNatural(found)

	seen := make(map[string]bool, len(found))
	duplicates := 0
	var pages []types.PageImage
	for _, rel := range found {
		name := filepath.Base(rel)
		if seen[name] {
			duplicates++
			continue
		}
		seen[name] = true

		if len(pages) >= maxImages {
			log.Warn("Page cap reached (%d); dropping %d remaining images", maxImages, len(found)-duplicates-maxImages)
			break
		}

		dest := filepath.Join(imageDir, name)
		if err := utils.CopyFile(filepath.Join(extractDir, rel), dest); err != nil {
			return nil, utils.NewIOError(fmt.Sprintf("failed to stage page image %s", name), err)
		}
		pages = append(pages, types.PageImage{Path: dest, Name: name})
	}

	if duplicates > 0 {
		log.Warn("Dropped %d duplicate page images (same basename in nested directories)", duplicates)
	}
	log.Progress("📄", "Harvested %d page images", len(pages))
	return pages, nil
}
