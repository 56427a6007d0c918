package imageprocessor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/barasher/go-exiftool"
	"gocv.io/x/gocv"
)

// HEICExiftoolLoader decodes iPhone HEIC photos by extracting the
// embedded full-resolution preview with exiftool and handing the
// resulting JPEG to OpenCV. OpenCV builds typically lack HEIF support,
// and every HEIC a phone writes carries a preview at capture size.
type HEICExiftoolLoader struct {
	TempDir string
}

// NewHEICExiftoolLoader creates a HEIC loader using exiftool extraction.
func NewHEICExiftoolLoader() *HEICExiftoolLoader {
	return &HEICExiftoolLoader{TempDir: os.TempDir()}
}

func (l *HEICExiftoolLoader) CanLoad(path string) bool {
	ext := filepath.Ext(path)
	return (ext == ".heic" || ext == ".HEIC") && fileExists(path)
}

func (l *HEICExiftoolLoader) LoadImage(path string) (gocv.Mat, error) {
	slog.Debug("imageprocessor: loading HEIC via exiftool", "path", path)

	et, err := exiftool.NewExiftool()
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to initialize exiftool: %w", err)
	}
	defer et.Close()

	fileInfos := et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return gocv.NewMat(), fmt.Errorf("no metadata extracted from %s", path)
	}
	if fileInfos[0].Err != nil {
		return gocv.NewMat(), fmt.Errorf("metadata extraction failed for %s: %w", path, fileInfos[0].Err)
	}

	// HEIC containers expose their embedded JPEG under different tags
	// depending on the writer; try the largest first.
	previewTags := []string{
		"PreviewImage",
		"JpgFromRaw",
		"OtherImage",
		"ThumbnailImage",
	}

	for _, tag := range previewTags {
		tempFilename := filepath.Join(l.TempDir, fmt.Sprintf("heic_preview_%s_%s.jpg",
			filepath.Base(path), tag))

		if err := extractBinaryTag(path, tempFilename, tag); err != nil {
			continue
		}

		img := gocv.IMRead(tempFilename, gocv.IMReadColor)
		os.Remove(tempFilename)

		if !img.Empty() {
			slog.Debug("imageprocessor: extracted HEIC preview", "path", path, "tag", tag)
			return img, nil
		}
	}

	return gocv.NewMat(), fmt.Errorf("no usable preview in HEIC file %s", path)
}

// extractBinaryTag writes one binary exiftool tag to outputPath.
// go-exiftool does not support binary extraction, so this shells out.
func extractBinaryTag(path, outputPath, tag string) error {
	cmd := exec.Command("exiftool", "-b", "-"+tag, path)
	output, err := cmd.Output()
	if err != nil {
		return err
	}
	if len(output) == 0 {
		return fmt.Errorf("tag %s is empty", tag)
	}
	if err := os.WriteFile(outputPath, output, 0o644); err != nil {
		return err
	}
	if !hasFileContent(outputPath) {
		return fmt.Errorf("extraction produced empty file")
	}
	return nil
}

// CheckExiftoolAvailable reports whether exiftool can run here.
func CheckExiftoolAvailable() bool {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return false
	}
	et.Close()
	return true
}
