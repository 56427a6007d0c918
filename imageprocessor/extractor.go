package imageprocessor

import (
	"errors"
	"fmt"
	"log/slog"

	"fishtank/config"
	"fishtank/geometry"
	"fishtank/types"
)

// Extractor runs the full photo-to-sprite pipeline:
// load -> detect markers -> validate -> warp -> segment -> bake sprite.
type Extractor struct {
	registry  *ImageLoaderRegistry
	detector  *MarkerDetector
	segmenter *Segmenter
}

// NewExtractor builds the pipeline from the extraction config.
func NewExtractor(cfg config.ExtractionConfig) *Extractor {
	return &Extractor{
		registry:  NewImageLoaderRegistry(),
		detector:  NewMarkerDetector(cfg),
		segmenter: NewSegmenter(cfg),
	}
}

// Close releases OpenCV resources held by the pipeline.
func (e *Extractor) Close() {
	e.detector.Close()
}

// ExtractResult carries the sprite plus the source photo dimensions.
type ExtractResult struct {
	Sprite *types.Sprite
	Width  int
	Height int
}

// Extract processes one photo. A rejection (markers missing, bad
// geometry, empty silhouette, undecodable file) comes back as an error
// satisfying IsRejection; anything else is an internal failure.
func (e *Extractor) Extract(path string) (*ExtractResult, error) {
	frame, err := e.registry.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUndecodable, err)
	}
	defer frame.Close()

	markers, err := e.detector.Detect(frame)
	if err != nil {
		return nil, err
	}

	h, err := e.detector.ComputeTransform(markers, frame.Cols(), frame.Rows())
	if err != nil {
		return nil, err
	}

	warped := e.detector.Warp(frame, h)
	defer warped.Close()

	alpha, err := e.segmenter.Segment(warped)
	if err != nil {
		return nil, err
	}
	defer alpha.Close()

	sprite, err := BuildSprite(warped, alpha, path)
	if err != nil {
		return nil, err
	}

	slog.Info("imageprocessor: sprite extracted",
		"path", path, "sprite", sprite.ID, "w", sprite.Width, "h", sprite.Height)

	return &ExtractResult{
		Sprite: sprite,
		Width:  frame.Cols(),
		Height: frame.Rows(),
	}, nil
}

// ErrUndecodable wraps loader failures so they classify as rejections.
var ErrUndecodable = errors.New("photo could not be decoded")

// IsRejection reports whether err is a recoverable per-photo rejection,
// as opposed to an internal pipeline failure. Rejections mark the photo
// record rejected and are otherwise silent beyond a log line.
func IsRejection(err error) bool {
	return errors.Is(err, ErrUndecodable) ||
		errors.Is(err, ErrMarkersNotFound) ||
		errors.Is(err, ErrNoSilhouette) ||
		errors.Is(err, ErrEmptySprite) ||
		errors.Is(err, geometry.ErrDegenerateQuad) ||
		errors.Is(err, geometry.ErrQuadTooSmall)
}
