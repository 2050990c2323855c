// Package raster isolates the imaging primitives used to build tiles so that
// the geometry code can be exercised with in-memory images.
package raster

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Canvas allocates, crops, pastes and resizes images
type Canvas interface {
	// NewOpaque returns a w x h buffer with no transparency
	NewOpaque(w, h int) *image.RGBA
	// NewTransparent returns a fully transparent w x h buffer
	NewTransparent(w, h int) *image.RGBA
	// Crop returns the part of src inside window, measured from src's top-left corner
	Crop(src image.Image, window image.Rectangle) image.Image
	// Paste copies src into dst with src's top-left corner at offset
	Paste(dst draw.Image, src image.Image, offset image.Point)
	// PasteOpaque is Paste with every copied pixel made fully opaque. Colour
	// channels are taken unpremultiplied, so translucent source pixels keep
	// their colour.
	PasteOpaque(dst *image.RGBA, src image.Image, offset image.Point)
	// Resize scales src to a w x h image
	Resize(src image.Image, w, h int) image.Image
}

// Std is the Canvas backed by image/draw and golang.org/x/image/draw
type Std struct {
	// Scaler used by Resize, Catmull-Rom when nil
	Scaler xdraw.Scaler
}

// New returns the default canvas
func New() *Std {
	return &Std{}
}

func (s *Std) NewOpaque(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
	return img
}

func (s *Std) NewTransparent(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func (s *Std) Crop(src image.Image, window image.Rectangle) image.Image {
	window = window.Add(src.Bounds().Min)
	if sub, ok := src.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(window)
	}

	dst := image.NewRGBA(image.Rect(0, 0, window.Dx(), window.Dy()))
	draw.Draw(dst, dst.Bounds(), src, window.Min, draw.Src)
	return dst
}

func (s *Std) Paste(dst draw.Image, src image.Image, offset image.Point) {
	sb := src.Bounds()
	r := image.Rectangle{Min: offset, Max: offset.Add(sb.Size())}.Add(dst.Bounds().Min)
	draw.Draw(dst, r, src, sb.Min, draw.Src)
}

func (s *Std) PasteOpaque(dst *image.RGBA, src image.Image, offset image.Point) {
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		s.Paste(dst, src, offset)
		return
	}

	sb := src.Bounds()
	origin := dst.Bounds().Min.Add(offset)
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.SetRGBA(origin.X+x-sb.Min.X, origin.Y+y-sb.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
}

func (s *Std) Resize(src image.Image, w, h int) image.Image {
	scaler := s.Scaler
	if scaler == nil {
		scaler = xdraw.CatmullRom
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
