package imageprocessor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"fishtank/config"
)

// ErrNoSilhouette means segmentation found no foreground at all, which
// in practice is an empty template.
var ErrNoSilhouette = errors.New("no ink silhouette found")

// Segmenter turns a canonical-frame photo into an alpha mask that keeps
// the drawn fish and removes paper, shadows and the corner markers.
type Segmenter struct {
	width  int
	height int

	suppressionRadius  int
	suppressionPadding int
	gradientWidth      int
}

// NewSegmenter builds a segmenter for the canonical frame described by
// the extraction config.
func NewSegmenter(cfg config.ExtractionConfig) *Segmenter {
	return &Segmenter{
		width:              cfg.CanonicalWidth,
		height:             cfg.CanonicalHeight,
		suppressionRadius:  cfg.SuppressionRadius,
		suppressionPadding: cfg.SuppressionPadding,
		gradientWidth:      cfg.GradientWidth,
	}
}

// Segment produces the alpha mask for a canonical-frame BGR image.
// The returned CV8U mat encodes opacity 0..255 (0.0..1.0); it is 0
// outside the silhouette and inside marker zones, 255 on confident ink,
// and smoothly graded at every boundary. The input is not modified.
// The caller owns the returned mat.
func (s *Segmenter) Segment(warped gocv.Mat) (gocv.Mat, error) {
	if warped.Cols() != s.width || warped.Rows() != s.height {
		return gocv.NewMat(), fmt.Errorf("segmenter expects %dx%d canonical frame, got %dx%d",
			s.width, s.height, warped.Cols(), warped.Rows())
	}

	gray := s.redWeightedGray(warped)
	defer gray.Close()

	// Ink/paper separation. Inverted so strokes are white.
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.AdaptiveThreshold(gray, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 25, 3)

	// Morphological gradient keeps thin pencil strokes that a flat
	// threshold tends to eat.
	gradKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5))
	defer gradKernel.Close()
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.MorphologyEx(binary, &edges, gocv.MorphGradient, gradKernel)

	// Everything not reachable from the border without crossing ink is
	// fish: the stroke outline plus its enclosed interior.
	interior, err := fillFromBorder(binary)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("border fill: %w", err)
	}
	defer interior.Close()

	estimate := gocv.NewMat()
	defer estimate.Close()
	gocv.Max(interior, edges, &estimate)

	alpha, err := s.largestSilhouette(estimate)
	if err != nil {
		return gocv.NewMat(), err
	}

	s.suppressMarkers(&alpha)

	// Soft grade at all boundaries instead of a hard binary edge.
	smoothed := gocv.NewMat()
	gocv.GaussianBlur(alpha, &smoothed, image.Pt(3, 3), 0, 0, gocv.BorderDefault)
	alpha.Close()

	return smoothed, nil
}

// redWeightedGray converts BGR to grayscale with the red channel at 0.6
// and the standard luminance split scaled into the remaining 0.4.
// Plain luminance under-weights red, and red felt-tip ink is the most
// common thing children draw with.
func (s *Segmenter) redWeightedGray(frame gocv.Mat) gocv.Mat {
	channels := gocv.Split(frame)
	b, g, r := channels[0], channels[1], channels[2]
	defer b.Close()
	defer g.Close()
	defer r.Close()

	luma := gocv.NewMat()
	defer luma.Close()
	gocv.AddWeighted(b, 0.299, g, 0.587, 0, &luma)

	gray := gocv.NewMat()
	gocv.AddWeighted(luma, 0.4, r, 0.6, 0, &gray)
	return gray
}

// largestSilhouette keeps only the biggest connected foreground shape
// (the fish), filled solid, closed, and slightly dilated so edges are
// not clipped.
func (s *Segmenter) largestSilhouette(estimate gocv.Mat) (gocv.Mat, error) {
	contours := gocv.FindContours(estimate, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return gocv.NewMat(), ErrNoSilhouette
	}

	largest := 0
	largestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > largestArea {
			largestArea = area
			largest = i
		}
	}

	alpha := gocv.NewMatWithSize(s.height, s.width, gocv.MatTypeCV8U)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.DrawContours(&alpha, contours, largest, white, -1)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	closed := gocv.NewMat()
	gocv.MorphologyEx(alpha, &closed, gocv.MorphClose, kernel)
	alpha.Close()

	dilated := gocv.NewMat()
	gocv.Dilate(closed, &dilated, kernel)
	gocv.Dilate(dilated, &closed, kernel)
	dilated.Close()

	return closed, nil
}

// suppressMarkers multiplies the alpha by a falloff mask that zeroes a
// square zone at each canonical marker anchor. The zone is smaller than
// the marker's printed footprint plus padding so nearby ink survives,
// and the Gaussian-blurred ramp avoids a visible seam.
func (s *Segmenter) suppressMarkers(alpha *gocv.Mat) {
	mask := s.markerFalloffMask()
	defer mask.Close()

	alphaData, err := alpha.DataPtrUint8()
	if err != nil {
		slog.Warn("imageprocessor: marker suppression skipped, alpha mask not addressable", "error", err)
		return
	}
	maskData, err := mask.DataPtrUint8()
	if err != nil {
		slog.Warn("imageprocessor: marker suppression skipped, falloff mask not addressable", "error", err)
		return
	}
	for i := range alphaData {
		alphaData[i] = uint8(int(alphaData[i]) * int(maskData[i]) / 255)
	}
}

func (s *Segmenter) markerFalloffMask() gocv.Mat {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), s.height, s.width, gocv.MatTypeCV8U)

	zone := s.suppressionRadius + s.suppressionPadding
	anchors := []image.Point{
		{X: 0, Y: 0},
		{X: s.width - zone, Y: 0},
		{X: s.width - zone, Y: s.height - zone},
		{X: 0, Y: s.height - zone},
	}

	mid := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	black := color.RGBA{A: 255}
	for _, a := range anchors {
		outer := image.Rect(a.X, a.Y, a.X+zone, a.Y+zone)
		gocv.Rectangle(&mask, outer, mid, -1)
		gocv.Rectangle(&mask, outer.Inset(s.gradientWidth), black, -1)
	}

	k := 2*s.gradientWidth + 1
	blurred := gocv.NewMat()
	gocv.GaussianBlur(mask, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	mask.Close()
	return blurred
}

// fillFromBorder flood-fills the paper background inward from every
// border pixel and returns the complement: ink strokes plus any area
// they enclose. gocv does not bind cv::floodFill, so this walks the
// mask bytes directly.
func fillFromBorder(binary gocv.Mat) (gocv.Mat, error) {
	w, h := binary.Cols(), binary.Rows()
	src, err := binary.DataPtrUint8()
	if err != nil {
		return gocv.NewMat(), err
	}

	background := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))

	push := func(x, y int) {
		i := y*w + x
		if !background[i] && src[i] == 0 {
			background[i] = true
			queue = append(queue, i)
		}
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}

	out := make([]uint8, w*h)
	for i := range out {
		if !background[i] {
			out[i] = 255
		}
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, out)
}
