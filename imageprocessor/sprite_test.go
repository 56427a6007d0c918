package imageprocessor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// solidFrame builds a BGR Mat filled with one color.
func solidFrame(t *testing.T, w, h int, b, g, r uint8) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetUCharAt(y, x*3+0, b)
			m.SetUCharAt(y, x*3+1, g)
			m.SetUCharAt(y, x*3+2, r)
		}
	}
	return m
}

// maskWithRect builds a single-channel mask that is opaque inside the
// given rectangle and zero elsewhere.
func maskWithRect(t *testing.T, w, h, x0, y0, x1, y1 int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC1)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.SetUCharAt(y, x, 255)
		}
	}
	return m
}

func TestBuildSpriteRejectsMismatchedDimensions(t *testing.T) {
	frame := solidFrame(t, 10, 10, 0, 0, 255)
	defer frame.Close()
	mask := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV8UC1)
	defer mask.Close()

	_, err := BuildSprite(frame, mask, "x.jpg")
	require.Error(t, err)
}

func TestBuildSpriteEmptyMask(t *testing.T) {
	frame := solidFrame(t, 32, 32, 0, 0, 255)
	defer frame.Close()
	mask := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC1)
	defer mask.Close()

	_, err := BuildSprite(frame, mask, "blank.jpg")
	require.ErrorIs(t, err, ErrEmptySprite)
}

func TestBuildSpriteTrimsToSilhouette(t *testing.T) {
	// A red frame with a 10x10 opaque patch at (10,10). The sprite
	// should be the patch plus the transparent trim margin on each side.
	frame := solidFrame(t, 40, 40, 0, 0, 255)
	defer frame.Close()
	mask := maskWithRect(t, 40, 40, 10, 10, 20, 20)
	defer mask.Close()

	sprite, err := BuildSprite(frame, mask, "fish.jpg")
	require.NoError(t, err)

	assert.Equal(t, 10+2*trimMargin, sprite.Width)
	assert.Equal(t, 10+2*trimMargin, sprite.Height)
	assert.Equal(t, "fish.jpg", sprite.SourcePath)
	assert.NotEmpty(t, sprite.ID)

	// Center pixel is opaque red; the BGR source becomes RGBA.
	cx, cy := sprite.Width/2, sprite.Height/2
	c := sprite.Image.RGBAAt(cx, cy)
	assert.EqualValues(t, 255, c.R)
	assert.EqualValues(t, 0, c.G)
	assert.EqualValues(t, 0, c.B)
	assert.EqualValues(t, 255, c.A)

	// The trim margin corner is fully transparent and carries no color.
	corner := sprite.Image.RGBAAt(0, 0)
	assert.EqualValues(t, 0, corner.A)
	assert.EqualValues(t, 0, corner.R)
}

func TestBuildSpriteTrimClampsAtFrameEdge(t *testing.T) {
	// Silhouette touching the frame corner cannot get a margin there.
	frame := solidFrame(t, 30, 30, 255, 0, 0)
	defer frame.Close()
	mask := maskWithRect(t, 30, 30, 0, 0, 10, 10)
	defer mask.Close()

	sprite, err := BuildSprite(frame, mask, "corner.jpg")
	require.NoError(t, err)
	assert.Equal(t, 10+trimMargin, sprite.Width)
	assert.Equal(t, 10+trimMargin, sprite.Height)
}

func TestBuildSpriteDownscalesOversized(t *testing.T) {
	frame := solidFrame(t, 800, 600, 0, 255, 0)
	defer frame.Close()
	mask := maskWithRect(t, 800, 600, 0, 0, 800, 600)
	defer mask.Close()

	sprite, err := BuildSprite(frame, mask, "big.jpg")
	require.NoError(t, err)

	assert.Equal(t, maxSpriteDimension, sprite.Width)
	assert.Equal(t, 384, sprite.Height)
	assert.Equal(t, sprite.Image.Bounds().Dx(), sprite.Width)
}

func TestSilhouetteBoundsIgnoresFaintAlpha(t *testing.T) {
	// Values at or below the threshold do not count as silhouette.
	a := make([]uint8, 16)
	a[5] = trimThreshold
	_, ok := silhouetteBounds(a, 4, 4)
	assert.False(t, ok)

	a[5] = trimThreshold + 1
	bounds, ok := silhouetteBounds(a, 4, 4)
	require.True(t, ok)
	assert.Equal(t, 1, bounds.Min.X)
	assert.Equal(t, 1, bounds.Min.Y)
	assert.Equal(t, 1, bounds.Dx())
	assert.Equal(t, 1, bounds.Dy())
}
