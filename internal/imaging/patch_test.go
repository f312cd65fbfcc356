package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFindPatchIdenticalReturnsNoDiff(t *testing.T) {
	a := solid(10, 10, color.Black)
	b := solid(10, 10, color.Black)

	_, err := FindPatch(a, b)
	var noDiff ErrNoDiff
	assert.ErrorAs(t, err, &noDiff)
}

func TestFindPatchSinglePixel(t *testing.T) {
	a := solid(100, 10, color.Black)
	b := solid(100, 10, color.Black)
	b.Set(7, 3, color.White)

	patch, err := FindPatch(a, b)
	require.NoError(t, err)
	assert.Equal(t, 7, patch.X)
	assert.Equal(t, 3, patch.Y)
	assert.Equal(t, 1, patch.Image.Bounds().Dx())
	assert.Equal(t, 1, patch.Image.Bounds().Dy())
}

func TestFindPatchTightBoundingBox(t *testing.T) {
	a := solid(20, 20, color.Black)
	b := solid(20, 20, color.Black)
	b.Set(2, 2, color.White)
	b.Set(15, 17, color.White)

	patch, err := FindPatch(a, b)
	require.NoError(t, err)
	assert.Equal(t, 2, patch.X)
	assert.Equal(t, 2, patch.Y)
	assert.Equal(t, 15-2+1, patch.Image.Bounds().Dx())
	assert.Equal(t, 17-2+1, patch.Image.Bounds().Dy())
}

func TestFindPatchDimensionMismatch(t *testing.T) {
	a := solid(10, 10, color.Black)
	b := solid(20, 20, color.Black)

	_, err := FindPatch(a, b)
	assert.Error(t, err)
}

func TestResizeExactDimensions(t *testing.T) {
	src := solid(200, 100, color.RGBA{R: 255, A: 255})
	dst := ResizeExact(src, 77, 77)
	assert.Equal(t, 77, dst.Bounds().Dx())
	assert.Equal(t, 77, dst.Bounds().Dy())
}
