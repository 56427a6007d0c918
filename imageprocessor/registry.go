package imageprocessor

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// ImageLoaderRegistry maintains a registry of photo loaders keyed by
// file extension.
type ImageLoaderRegistry struct {
	loaders       map[string]ImageLoader
	defaultLoader ImageLoader
	mutex         sync.RWMutex
}

// NewImageLoaderRegistry creates a registry covering the supported
// photo formats: JPEG and PNG through OpenCV, HEIC through exiftool
// preview extraction.
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	registry.RegisterLoader(".jpg", standardLoader)
	registry.RegisterLoader(".jpeg", standardLoader)
	registry.RegisterLoader(".png", standardLoader)
	registry.defaultLoader = standardLoader

	if CheckExiftoolAvailable() {
		registry.RegisterLoader(".heic", NewHEICExiftoolLoader())
		slog.Info("imageprocessor: registered HEIC loader (exiftool available)")
	} else {
		slog.Warn("imageprocessor: exiftool not found, HEIC photos will be rejected")
	}

	return registry
}

// RegisterLoader registers a loader for a specific file extension.
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the loader registered for the path's extension, or
// nil when the extension is unsupported.
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	return r.loaders[ext]
}

// CanLoadFile checks if any registered loader handles the given file.
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	return r.GetLoader(path) != nil
}

// LoadImage loads a photo using the appropriate registered loader.
func (r *ImageLoaderRegistry) LoadImage(path string) (gocv.Mat, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return gocv.NewMat(), fmt.Errorf("no loader for file type: %s", path)
	}
	if !loader.CanLoad(path) {
		return gocv.NewMat(), newImageLoadError("file not loadable", path)
	}
	return loader.LoadImage(path)
}
