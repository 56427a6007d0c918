// Package geometry validates detected marker quadrilaterals and computes
// the perspective transform onto the canonical template rectangle.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"fishtank/types"
)

var (
	ErrDegenerateQuad = errors.New("marker quadrilateral is degenerate")
	ErrQuadTooSmall   = errors.New("marker quadrilateral below minimum area")
)

// minMarkerSeparation is the smallest pixel distance allowed between any
// two marker centers; closer than this and the detection is noise.
const minMarkerSeparation = 8.0

// Quad is an ordered quadrilateral: top-left, top-right, bottom-right,
// bottom-left.
type Quad [4]types.Point2f

// QuadFromMarkers builds a Quad from a detected marker set.
func QuadFromMarkers(ms types.MarkerSet) Quad {
	return Quad(ms)
}

// Validate checks the §invariants a detected quad must satisfy: all four
// corners mutually distinct, convex and not self-intersecting, and
// covering at least minAreaFraction of the photo.
func (q Quad) Validate(imageW, imageH int, minAreaFraction float64) error {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if dist(q[i], q[j]) < minMarkerSeparation {
				return fmt.Errorf("%w: corners %d and %d coincide", ErrDegenerateQuad, i, j)
			}
		}
	}

	if !q.Convex() {
		return fmt.Errorf("%w: non-convex corner ordering", ErrDegenerateQuad)
	}

	imgArea := float64(imageW) * float64(imageH)
	if imgArea > 0 && q.Area() < minAreaFraction*imgArea {
		return fmt.Errorf("%w: %.0f px^2 of %.0f px^2 image", ErrQuadTooSmall, q.Area(), imgArea)
	}

	return nil
}

// Convex reports whether the ordered corners form a convex,
// non-self-intersecting quadrilateral. All cross products of
// consecutive edges must share a sign; a strictly convex ordering
// cannot self-intersect.
func (q Quad) Convex() bool {
	sign := 0
	for i := 0; i < 4; i++ {
		a, b, c := q[i], q[(i+1)%4], q[(i+2)%4]
		cross := float64(b.X-a.X)*float64(c.Y-b.Y) - float64(b.Y-a.Y)*float64(c.X-b.X)
		if cross == 0 {
			return false
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// Area returns the shoelace area of the quad in square pixels.
func (q Quad) Area() float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		a, b := q[i], q[(i+1)%4]
		sum += float64(a.X)*float64(b.Y) - float64(b.X)*float64(a.Y)
	}
	return math.Abs(sum) / 2
}

func dist(a, b types.Point2f) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Hypot(dx, dy)
}

// Homography is a 3x3 planar perspective transform, row-major, with
// h[8] fixed at 1.
type Homography [9]float64

// ComputeHomography solves the perspective transform mapping each src
// corner onto the corresponding dst corner (standard four-point DLT,
// eight unknowns, eight equations).
func ComputeHomography(src, dst Quad) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := float64(src[i].X), float64(src[i].Y)
		u, v := float64(dst[i].X), float64(dst[i].Y)

		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("homography solve: %w", err)
	}

	var out Homography
	for i := 0; i < 8; i++ {
		out[i] = h.AtVec(i)
	}
	out[8] = 1
	return out, nil
}

// Apply maps a single point through the homography.
func (h Homography) Apply(p types.Point2f) types.Point2f {
	x, y := float64(p.X), float64(p.Y)
	w := h[6]*x + h[7]*y + h[8]
	return types.Point2f{
		X: float32((h[0]*x + h[1]*y + h[2]) / w),
		Y: float32((h[3]*x + h[4]*y + h[5]) / w),
	}
}

// CanonicalQuad returns the destination rectangle corners for a
// canonical frame of the given size, in TL, TR, BR, BL order.
func CanonicalQuad(w, h int) Quad {
	fw, fh := float32(w-1), float32(h-1)
	return Quad{
		{X: 0, Y: 0},
		{X: fw, Y: 0},
		{X: fw, Y: fh},
		{X: 0, Y: fh},
	}
}
