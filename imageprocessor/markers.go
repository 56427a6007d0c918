package imageprocessor

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"fishtank/config"
	"fishtank/geometry"
	"fishtank/types"
)

// ErrMarkersNotFound means fewer than the four required corner markers
// were detected in the photo.
var ErrMarkersNotFound = errors.New("corner markers not found")

// MarkerDetector locates the four printed ArUco markers that register
// the photographed template.
type MarkerDetector struct {
	detector gocv.ArucoDetector

	idTopLeft     int
	idTopRight    int
	idBottomRight int
	idBottomLeft  int

	minAreaFraction float64
	canonicalW      int
	canonicalH      int
}

// NewMarkerDetector builds a detector for the template's 4x4 marker
// dictionary and corner-id assignment.
func NewMarkerDetector(cfg config.ExtractionConfig) *MarkerDetector {
	dict := gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_50)
	params := gocv.NewArucoDetectorParameters()

	return &MarkerDetector{
		detector:        gocv.NewArucoDetectorWithParams(dict, params),
		idTopLeft:       cfg.MarkerTopLeft,
		idTopRight:      cfg.MarkerTopRight,
		idBottomRight:   cfg.MarkerBottomRight,
		idBottomLeft:    cfg.MarkerBottomLeft,
		minAreaFraction: cfg.MinQuadAreaFraction,
		canonicalW:      cfg.CanonicalWidth,
		canonicalH:      cfg.CanonicalHeight,
	}
}

// Close releases the underlying OpenCV detector.
func (d *MarkerDetector) Close() error {
	return d.detector.Close()
}

// Detect finds the four corner markers and returns their anchor points
// in TL, TR, BR, BL order. The anchor of each marker is its outermost
// corner, so the warped frame encloses the full marker footprint.
// ArUco corners arrive sub-pixel refined already.
func (d *MarkerDetector) Detect(frame gocv.Mat) (types.MarkerSet, error) {
	corners, ids, _ := d.detector.DetectMarkers(frame)

	var ms types.MarkerSet
	found := [4]bool{}

	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}
		// DetectMarkers reports each marker's corners in its own
		// TL, TR, BR, BL order; pick the one facing the sheet edge.
		switch id {
		case d.idTopLeft:
			ms[types.TopLeft] = toPoint2f(corners[i][0])
			found[types.TopLeft] = true
		case d.idTopRight:
			ms[types.TopRight] = toPoint2f(corners[i][1])
			found[types.TopRight] = true
		case d.idBottomRight:
			ms[types.BottomRight] = toPoint2f(corners[i][2])
			found[types.BottomRight] = true
		case d.idBottomLeft:
			ms[types.BottomLeft] = toPoint2f(corners[i][3])
			found[types.BottomLeft] = true
		}
	}

	var missing []string
	for role, ok := range found {
		if !ok {
			missing = append(missing, types.CornerRole(role).String())
		}
	}
	if len(missing) > 0 {
		return ms, fmt.Errorf("%w: missing %v", ErrMarkersNotFound, missing)
	}

	return ms, nil
}

// ComputeTransform validates the detected quadrilateral and solves the
// homography onto the canonical template rectangle. The transform is
// owned by the extraction pipeline and dies with the call stack.
func (d *MarkerDetector) ComputeTransform(ms types.MarkerSet, imageW, imageH int) (geometry.Homography, error) {
	quad := geometry.QuadFromMarkers(ms)
	if err := quad.Validate(imageW, imageH, d.minAreaFraction); err != nil {
		return geometry.Homography{}, err
	}
	return geometry.ComputeHomography(quad, geometry.CanonicalQuad(d.canonicalW, d.canonicalH))
}

// Warp applies the homography, producing the canonical-frame image all
// marker-proximity logic operates in.
func (d *MarkerDetector) Warp(frame gocv.Mat, h geometry.Homography) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.SetDoubleAt(row, col, h[row*3+col])
		}
	}

	warped := gocv.NewMat()
	gocv.WarpPerspective(frame, &warped, m, image.Pt(d.canonicalW, d.canonicalH))
	return warped
}

func toPoint2f(p gocv.Point2f) types.Point2f {
	return types.Point2f{X: p.X, Y: p.Y}
}
