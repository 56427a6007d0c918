package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishtank/types"
)

func pt(x, y float32) types.Point2f { return types.Point2f{X: x, Y: y} }

func TestQuadValidate(t *testing.T) {
	tests := []struct {
		name    string
		quad    Quad
		wantErr error
	}{
		{
			name:    "well formed photo quad",
			quad:    Quad{pt(120, 95), pt(1810, 140), pt(1790, 1350), pt(90, 1300)},
			wantErr: nil,
		},
		{
			name:    "coincident corners",
			quad:    Quad{pt(100, 100), pt(100, 103), pt(900, 700), pt(100, 700)},
			wantErr: ErrDegenerateQuad,
		},
		{
			name: "self intersecting bowtie",
			// TL and TR swapped relative to their positions: edges cross.
			quad:    Quad{pt(900, 100), pt(100, 100), pt(900, 700), pt(100, 700)},
			wantErr: ErrDegenerateQuad,
		},
		{
			name:    "collinear corners",
			quad:    Quad{pt(100, 100), pt(500, 100), pt(900, 100), pt(100, 700)},
			wantErr: ErrDegenerateQuad,
		},
		{
			name:    "too small for the frame",
			quad:    Quad{pt(10, 10), pt(60, 10), pt(60, 60), pt(10, 60)},
			wantErr: ErrQuadTooSmall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quad.Validate(1920, 1440, 0.1)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestQuadArea(t *testing.T) {
	square := Quad{pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10)}
	assert.InDelta(t, 100.0, square.Area(), 1e-9)

	// Orientation must not flip the sign.
	reversed := Quad{pt(0, 10), pt(10, 10), pt(10, 0), pt(0, 0)}
	assert.InDelta(t, 100.0, reversed.Area(), 1e-9)
}

func TestHomographyMapsCorners(t *testing.T) {
	src := Quad{pt(132, 87), pt(1795, 160), pt(1740, 1322), pt(95, 1270)}
	dst := CanonicalQuad(800, 600)

	h, err := ComputeHomography(src, dst)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		got := h.Apply(src[i])
		assert.InDelta(t, float64(dst[i].X), float64(got.X), 1e-4, "corner %d x", i)
		assert.InDelta(t, float64(dst[i].Y), float64(got.Y), 1e-4, "corner %d y", i)
	}
}

func TestHomographyIdentity(t *testing.T) {
	q := CanonicalQuad(800, 600)
	h, err := ComputeHomography(q, q)
	require.NoError(t, err)

	// Interior points must map onto themselves too.
	for _, p := range []types.Point2f{pt(400, 300), pt(13, 551), pt(799, 0)} {
		got := h.Apply(p)
		assert.InDelta(t, float64(p.X), float64(got.X), 1e-6)
		assert.InDelta(t, float64(p.Y), float64(got.Y), 1e-6)
	}
}

func TestHomographyInteriorConsistency(t *testing.T) {
	src := Quad{pt(100, 100), pt(900, 120), pt(880, 680), pt(110, 660)}
	dst := CanonicalQuad(800, 600)
	h, err := ComputeHomography(src, dst)
	require.NoError(t, err)

	// The source centroid should land strictly inside the canonical frame.
	var cx, cy float32
	for _, p := range src {
		cx += p.X / 4
		cy += p.Y / 4
	}
	got := h.Apply(pt(cx, cy))
	assert.Greater(t, float64(got.X), 0.0)
	assert.Less(t, float64(got.X), 799.0)
	assert.Greater(t, float64(got.Y), 0.0)
	assert.Less(t, float64(got.Y), 599.0)
	assert.False(t, math.IsNaN(float64(got.X)))
}
