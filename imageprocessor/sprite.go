package imageprocessor

import (
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
	xdraw "golang.org/x/image/draw"

	"fishtank/types"
)

// ErrEmptySprite means the alpha mask had no visible pixels left after
// marker suppression.
var ErrEmptySprite = errors.New("sprite has no visible pixels")

// trimMargin is the transparent border kept around the silhouette so a
// bilinear-sampled texture edge never clips ink.
const trimMargin = 4

// trimThreshold is the alpha byte value a pixel must exceed to count as
// part of the silhouette when computing the bounding box.
const trimThreshold = 8

// maxSpriteDimension caps texture size; a full canonical frame is far
// more resolution than a fish a few hundred pixels tall on screen needs.
const maxSpriteDimension = 512

// BuildSprite bakes the canonical BGR frame and alpha mask into one
// RGBA sprite trimmed to the silhouette's bounding box. Neither input
// is modified.
func BuildSprite(warped, alpha gocv.Mat, sourcePath string) (*types.Sprite, error) {
	if warped.Cols() != alpha.Cols() || warped.Rows() != alpha.Rows() {
		return nil, fmt.Errorf("frame %dx%d and mask %dx%d disagree",
			warped.Cols(), warped.Rows(), alpha.Cols(), alpha.Rows())
	}

	w, h := warped.Cols(), warped.Rows()
	bgr, err := warped.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("frame data: %w", err)
	}
	a, err := alpha.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("mask data: %w", err)
	}

	bounds, ok := silhouetteBounds(a, w, h)
	if !ok {
		return nil, ErrEmptySprite
	}
	bounds = bounds.Inset(-trimMargin).Intersect(image.Rect(0, 0, w, h))

	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			si := y*w + x
			av := a[si]
			di := rgba.PixOffset(x-bounds.Min.X, y-bounds.Min.Y)
			if av == 0 {
				// Fully transparent pixels carry no color at all.
				continue
			}
			rgba.Pix[di+0] = bgr[si*3+2]
			rgba.Pix[di+1] = bgr[si*3+1]
			rgba.Pix[di+2] = bgr[si*3+0]
			rgba.Pix[di+3] = av
		}
	}

	rgba = downscale(rgba)

	return &types.Sprite{
		ID:         uuid.NewString(),
		Image:      rgba,
		Width:      rgba.Bounds().Dx(),
		Height:     rgba.Bounds().Dy(),
		SourcePath: sourcePath,
	}, nil
}

// silhouetteBounds finds the tight bounding box of visible alpha.
func silhouetteBounds(a []uint8, w, h int) (image.Rectangle, bool) {
	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			if a[row+x] > trimThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// downscale shrinks oversized sprites to maxSpriteDimension on their
// long edge, preserving aspect ratio.
func downscale(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	long := b.Dx()
	if b.Dy() > long {
		long = b.Dy()
	}
	if long <= maxSpriteDimension {
		return src
	}

	scale := float64(maxSpriteDimension) / float64(long)
	dw := int(float64(b.Dx()) * scale)
	dh := int(float64(b.Dy()) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
