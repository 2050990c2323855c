// Package stitch assembles arbitrary rectangles of the world map from the zone
// images that cover them.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/internal/raster"
	"github.com/kernelmethod/worldmap/internal/zone"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

// MaxPixels bounds the size of a single assembled rectangle
const MaxPixels = 10000 * 10000

var (
	// ErrInvalidRectangle is returned when a rectangle's top-left corner is not
	// above and left of its bottom-right corner
	ErrInvalidRectangle = errors.New("invalid rectangle")
	// ErrOutOfBounds is returned for rectangles that leave the map
	ErrOutOfBounds = errors.New("rectangle outside map bounds")
	// ErrTooLarge is returned for rectangles above MaxPixels
	ErrTooLarge = errors.New("requested image size too large")
)

// Piece is the part of a rectangle served by a single zone
type Piece struct {
	Zone zone.ID
	// Window is the crop rectangle in zone-local pixels
	Window image.Rectangle
	// Offset is where the crop goes, relative to the rectangle's top-left corner
	Offset image.Point
}

// Stitcher builds images of map rectangles out of zone images
type Stitcher struct {
	geom    tile.Geometry
	locator *zone.Locator
	source  Source
	canvas  raster.Canvas
}

// NewStitcher creates a stitcher reading zones from source
func NewStitcher(geom tile.Geometry, source Source, canvas raster.Canvas) *Stitcher {
	if canvas == nil {
		canvas = raster.New()
	}
	return &Stitcher{
		geom:    geom,
		locator: zone.NewLocator(geom),
		source:  source,
		canvas:  canvas,
	}
}

// Locator returns the zone locator used by the stitcher
func (s *Stitcher) Locator() *zone.Locator {
	return s.locator
}

// Plan splits r along zone boundaries. The returned pieces cover r exactly,
// column band by column band, each band top to bottom.
func (s *Stitcher) Plan(r tile.Rect) ([]Piece, error) {
	if !r.Wellformed() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRectangle, r)
	}
	if !s.geom.Contains(r) {
		return nil, fmt.Errorf("%w: %v not inside %v", ErrOutOfBounds, r, s.geom.Bounds())
	}

	zw, zh := s.geom.ZoneWidth(), s.geom.ZoneHeight()
	var pieces []Piece

	// Stride over the rectangle one zone column at a time
	for x := r.Min.X; x < r.Max.X; {
		xMax := clamp(x+zw-x%zw, r.Min.X, r.Max.X)

		for y := r.Min.Y; y < r.Max.Y; {
			yMax := clamp(y+zh-y%zh, r.Min.Y, r.Max.Y)

			lx, ly := x%zw, y%zh
			window := image.Rect(lx, ly, clamp(xMax-x+lx, 0, zw), clamp(yMax-y+ly, 0, zh))
			if window.Empty() {
				return nil, fmt.Errorf("empty crop window %v at %v", window, tile.Pt(x, y))
			}

			pieces = append(pieces, Piece{
				Zone:   s.locator.Locate(tile.Pt(x, y)),
				Window: window,
				Offset: image.Pt(x-r.Min.X, y-r.Min.Y),
			})
			y = yMax
		}
		x = xMax
	}

	return pieces, nil
}

// Assemble returns an opaque image of r. Each piece's zone is requested from
// the source separately; a zone that cannot be loaded aborts the assembly.
func (s *Stitcher) Assemble(ctx context.Context, r tile.Rect) (*image.RGBA, error) {
	pieces, err := s.Plan(r)
	if err != nil {
		return nil, err
	}
	if int64(r.Dx())*int64(r.Dy()) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, r.Dx(), r.Dy())
	}

	dst := s.canvas.NewOpaque(r.Dx(), r.Dy())

	for _, p := range pieces {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := s.source.Zone(ctx, p.Zone)
		if err != nil {
			return nil, err
		}

		if size := img.Bounds().Size(); size != image.Pt(s.geom.ZoneWidth(), s.geom.ZoneHeight()) {
			return nil, &ZoneError{
				Zone: p.Zone,
				Err:  fmt.Errorf("wrong zone size: got %dx%d, expected %dx%d", size.X, size.Y, s.geom.ZoneWidth(), s.geom.ZoneHeight()),
			}
		}

		s.canvas.PasteOpaque(dst, s.canvas.Crop(img, p.Window), p.Offset)
	}

	log.WithFields(log.Fields{"rect": r.String(), "pieces": len(pieces)}).Debug("assembled rectangle")
	return dst, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
