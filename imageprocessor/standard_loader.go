package imageprocessor

import (
	"gocv.io/x/gocv"
)

// StandardImageLoader loads the formats OpenCV decodes natively.
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a loader for JPEG and PNG photos.
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedExtensions: []string{".jpg", ".jpeg", ".png"},
		},
	}
}

// LoadImage reads the photo in color; marker detection and segmentation
// both expect a 3-channel BGR frame.
func (l *StandardImageLoader) LoadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return img, newImageLoadError("failed to decode image", path)
	}
	return img, nil
}
