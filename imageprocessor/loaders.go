package imageprocessor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// ImageLoader interface defines methods for photo loading.
type ImageLoader interface {
	// CanLoad determines if this loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads a photo as a BGR gocv.Mat
	LoadImage(path string) (gocv.Mat, error)
}

// BaseImageLoader provides common functionality for all loaders.
type BaseImageLoader struct {
	// Extensions this loader can handle, lowercase with leading dot
	SupportedExtensions []string
}

// CanLoad checks if this loader supports the file's extension.
func (l *BaseImageLoader) CanLoad(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range l.SupportedExtensions {
		if ext == supported {
			return fileExists(path)
		}
	}
	return false
}

// fileExists checks if a file exists and is accessible.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// hasFileContent checks if a file exists and has a non-zero size.
func hasFileContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// newImageLoadError creates a standardized error for loading failures.
func newImageLoadError(message, path string) error {
	return fmt.Errorf("%s: %s", message, path)
}
