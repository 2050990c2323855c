package raster

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestNewOpaque(t *testing.T) {
	img := New().NewOpaque(3, 2)
	require.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	require.True(t, img.Opaque())
}

func TestNewTransparent(t *testing.T) {
	img := New().NewTransparent(3, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			require.Zero(t, a)
		}
	}
}

func TestCropAndPaste(t *testing.T) {
	c := New()

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}

	crop := c.Crop(src, image.Rect(1, 2, 3, 4))
	require.Equal(t, 2, crop.Bounds().Dx())
	require.Equal(t, 2, crop.Bounds().Dy())

	dst := c.NewOpaque(5, 5)
	c.Paste(dst, crop, image.Pt(3, 0))

	require.Equal(t, color.RGBA{R: 1, G: 2, B: 7, A: 255}, dst.RGBAAt(3, 0))
	require.Equal(t, color.RGBA{R: 2, G: 3, B: 7, A: 255}, dst.RGBAAt(4, 1))
	require.Equal(t, color.RGBA{A: 255}, dst.RGBAAt(2, 0))
}

func TestCropNonZeroOrigin(t *testing.T) {
	c := New()

	src := image.NewRGBA(image.Rect(10, 10, 14, 14))
	src.SetRGBA(11, 12, color.RGBA{R: 200, A: 255})

	crop := c.Crop(src, image.Rect(1, 2, 2, 3))
	dst := c.NewOpaque(1, 1)
	c.Paste(dst, crop, image.Point{})

	require.Equal(t, color.RGBA{R: 200, A: 255}, dst.RGBAAt(0, 0))
}

func TestPasteOpaqueDropsAlpha(t *testing.T) {
	c := New()

	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50})
	src.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})

	dst := c.NewOpaque(3, 2)
	c.PasteOpaque(dst, src, image.Pt(1, 1))

	require.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, dst.RGBAAt(1, 1))
	require.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, dst.RGBAAt(2, 1))
	require.Equal(t, color.RGBA{A: 255}, dst.RGBAAt(0, 1))
	require.True(t, dst.Opaque())
}

func TestPasteOpaqueCropOfOpaqueSource(t *testing.T) {
	c := New()

	src := solid(4, 4, color.RGBA{G: 90, A: 255})
	dst := c.NewTransparent(2, 2)
	c.PasteOpaque(dst, c.Crop(src, image.Rect(2, 2, 4, 4)), image.Point{})

	require.True(t, dst.Opaque())
	require.Equal(t, color.RGBA{G: 90, A: 255}, dst.RGBAAt(1, 1))
}

func TestResizeSolid(t *testing.T) {
	c := New()
	want := color.RGBA{R: 200, G: 40, B: 90, A: 255}

	out := c.Resize(solid(16, 16, want), 4, 4)
	require.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, g, b, a := out.At(x, y).RGBA()
			require.InDelta(t, want.R, r>>8, 1)
			require.InDelta(t, want.G, g>>8, 1)
			require.InDelta(t, want.B, b>>8, 1)
			require.InDelta(t, want.A, a>>8, 1)
		}
	}
}
