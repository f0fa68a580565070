package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"epub2pdf/pkg/constants"
)

var outputNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFileName normalizes a derived output basename: every
// character outside [A-Za-z0-9._-] becomes an underscore. This is the
// only normalization applied to output filenames.
func SanitizeFileName(name string) string {
	return outputNameRe.ReplaceAllString(name, "_")
}

// OutputBasename derives the sanitized PDF basename for a source file,
// e.g. "My Comic #1.cbr" -> "My_Comic__1.pdf".
func OutputBasename(inputPath string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return SanitizeFileName(stem) + ".pdf"
}

// EnsureDir creates directory if it doesn't exist
func EnsureDir(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("directory path cannot be empty")
	}
	return os.MkdirAll(dirPath, constants.DefaultDirPermission)
}

// CopyFile copies src to dst, creating the destination directory
func CopyFile(src, dst string) error {
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.DefaultFilePermission)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// IsImageFile reports whether a filename has a recognized page image
// extension (case-insensitive).
func IsImageFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return constants.ImageExtensions[ext]
}

// IsJunkFile reports whether an archive entry is known non-page noise
// (OS thumbnails, resource forks).
func IsJunkFile(name string) bool {
	base := filepath.Base(name)
	if constants.JunkFiles[base] {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == "__MACOSX" {
			return true
		}
	}
	return strings.HasPrefix(base, "._")
}

// IsSafeArchivePath rejects entry names that would escape the
// extraction directory (absolute paths, parent traversal).
func IsSafeArchivePath(name string) bool {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(cleaned), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// FileExists reports whether path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// LooksLikePDF does a cheap sanity check on a produced PDF: the file
// must exist, be non-trivial in size, and start with the PDF magic.
func LooksLikePDF(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() < 100 {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return string(header) == "%PDF"
}
