package stitch

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kernelmethod/worldmap/internal/raster"
	"github.com/kernelmethod/worldmap/internal/testutil"
	"github.com/kernelmethod/worldmap/internal/zone"
	"github.com/kernelmethod/worldmap/pkg/tile"
	"github.com/stretchr/testify/require"
)

func newTestStitcher(t *testing.T) (*Stitcher, *testutil.MemSource) {
	t.Helper()
	geom := testutil.SmallGeometry(t)
	src := testutil.NewMemSource(geom)
	return NewStitcher(geom, src, raster.New()), src
}

func zoneID(wx, wy, ix, iy int) zone.ID {
	return zone.ID{Prefix: "JoppaWorld", WorldX: wx, WorldY: wy, InnerX: ix, InnerY: iy, Suffix: 10}
}

func TestPlan(t *testing.T) {
	s, _ := newTestStitcher(t)

	testCases := []struct {
		name string
		rect tile.Rect
		want []Piece
	}{
		{
			name: "inside one zone",
			rect: tile.R(2, 1, 10, 7),
			want: []Piece{
				{Zone: zoneID(0, 0, 0, 0), Window: image.Rect(2, 1, 10, 7), Offset: image.Pt(0, 0)},
			},
		},
		{
			name: "whole zone",
			rect: tile.R(16, 8, 32, 16),
			want: []Piece{
				{Zone: zoneID(0, 0, 1, 1), Window: image.Rect(0, 0, 16, 8), Offset: image.Pt(0, 0)},
			},
		},
		{
			name: "straddles a vertical boundary",
			rect: tile.R(11, 2, 21, 6),
			want: []Piece{
				{Zone: zoneID(0, 0, 0, 0), Window: image.Rect(11, 2, 16, 6), Offset: image.Pt(0, 0)},
				{Zone: zoneID(0, 0, 1, 0), Window: image.Rect(0, 2, 5, 6), Offset: image.Pt(5, 0)},
			},
		},
		{
			name: "straddles four zones across worlds",
			rect: tile.R(44, 20, 52, 28),
			want: []Piece{
				{Zone: zoneID(0, 0, 2, 2), Window: image.Rect(12, 4, 16, 8), Offset: image.Pt(0, 0)},
				{Zone: zoneID(0, 1, 2, 0), Window: image.Rect(12, 0, 16, 4), Offset: image.Pt(0, 4)},
				{Zone: zoneID(1, 0, 0, 2), Window: image.Rect(0, 4, 4, 8), Offset: image.Pt(4, 0)},
				{Zone: zoneID(1, 1, 0, 0), Window: image.Rect(0, 0, 4, 4), Offset: image.Pt(4, 4)},
			},
		},
		{
			name: "empty rectangle",
			rect: tile.R(5, 5, 5, 5),
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Plan(tc.rect)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Plan(%v) mismatch (-want +got):\n%s", tc.rect, diff)
			}
		})
	}
}

func TestPlanCoversRectangleExactly(t *testing.T) {
	s, _ := newTestStitcher(t)
	geom := testutil.SmallGeometry(t)

	rects := []tile.Rect{
		tile.R(0, 0, 96, 48),
		tile.R(1, 1, 95, 47),
		tile.R(15, 7, 17, 9),
		tile.R(30, 3, 70, 45),
		tile.R(47, 0, 49, 48),
	}

	for _, r := range rects {
		pieces, err := s.Plan(r)
		require.NoError(t, err)

		covered := make([]int, r.Dx()*r.Dy())
		for _, p := range pieces {
			origin := s.Locator().Origin(p.Zone)
			for y := p.Window.Min.Y; y < p.Window.Max.Y; y++ {
				for x := p.Window.Min.X; x < p.Window.Max.X; x++ {
					// Offset and window must describe the same global pixel
					dx := p.Offset.X + x - p.Window.Min.X
					dy := p.Offset.Y + y - p.Window.Min.Y
					require.Equal(t, origin.X+x, r.Min.X+dx)
					require.Equal(t, origin.Y+y, r.Min.Y+dy)
					covered[dy*r.Dx()+dx]++
				}
			}
			require.LessOrEqual(t, p.Window.Max.X, geom.ZoneWidth())
			require.LessOrEqual(t, p.Window.Max.Y, geom.ZoneHeight())
		}

		for i, n := range covered {
			if n != 1 {
				t.Fatalf("rect %v: pixel %d covered %d times", r, i, n)
			}
		}
	}
}

func TestPlanErrors(t *testing.T) {
	s, _ := newTestStitcher(t)

	testCases := []struct {
		name string
		rect tile.Rect
		want error
	}{
		{"inverted x", tile.R(10, 0, 5, 5), ErrInvalidRectangle},
		{"inverted y", tile.R(0, 10, 5, 5), ErrInvalidRectangle},
		{"negative origin", tile.R(-1, 0, 5, 5), ErrOutOfBounds},
		{"past right edge", tile.R(90, 0, 97, 5), ErrOutOfBounds},
		{"past bottom edge", tile.R(0, 40, 5, 49), ErrOutOfBounds},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Plan(tc.rect)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAssembleDimensions(t *testing.T) {
	s, _ := newTestStitcher(t)

	for _, r := range []tile.Rect{tile.R(0, 0, 8, 8), tile.R(3, 5, 50, 9), tile.R(0, 0, 96, 48), tile.R(95, 47, 96, 48)} {
		img, err := s.Assemble(context.Background(), r)
		require.NoError(t, err)
		require.Equal(t, r.Dx(), img.Bounds().Dx(), "width of %v", r)
		require.Equal(t, r.Dy(), img.Bounds().Dy(), "height of %v", r)
	}
}

func TestAssembleReconstructsGlobalPixels(t *testing.T) {
	s, _ := newTestStitcher(t)
	geom := testutil.SmallGeometry(t)

	r := tile.R(13, 5, 83, 43)
	img, err := s.Assemble(context.Background(), r)
	require.NoError(t, err)

	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			want := testutil.Marker(geom, r.Min.X+x, r.Min.Y+y)
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestAssembleSingleZoneMatchesDirectCrop(t *testing.T) {
	s, _ := newTestStitcher(t)
	geom := testutil.SmallGeometry(t)

	id := zoneID(1, 0, 1, 2)
	origin := s.Locator().Origin(id)
	window := image.Rect(3, 2, 12, 7)

	img, err := s.Assemble(context.Background(), tile.R(origin.X+3, origin.Y+2, origin.X+12, origin.Y+7))
	require.NoError(t, err)

	zoneImg := testutil.ZoneImage(geom, id)
	for y := 0; y < window.Dy(); y++ {
		for x := 0; x < window.Dx(); x++ {
			require.Equal(t, zoneImg.RGBAAt(window.Min.X+x, window.Min.Y+y), img.RGBAAt(x, y))
		}
	}
}

func TestAssembleZoneSeam(t *testing.T) {
	s, _ := newTestStitcher(t)
	geom := testutil.SmallGeometry(t)
	zw := geom.ZoneWidth()

	img, err := s.Assemble(context.Background(), tile.R(zw-5, 0, zw+5, 8))
	require.NoError(t, err)

	left := testutil.ZoneImage(geom, zoneID(0, 0, 0, 0))
	right := testutil.ZoneImage(geom, zoneID(0, 0, 1, 0))

	for y := 0; y < 8; y++ {
		for x := 0; x < 5; x++ {
			require.Equal(t, left.RGBAAt(zw-5+x, y), img.RGBAAt(x, y), "left half at (%d,%d)", x, y)
			require.Equal(t, right.RGBAAt(x, y), img.RGBAAt(5+x, y), "right half at (%d,%d)", x, y)
		}
	}

	// The boundary column belongs to the right zone only
	require.EqualValues(t, 1, img.RGBAAt(5, 0).R)
	require.EqualValues(t, 0, img.RGBAAt(4, 0).R)
}

func TestAssembleLoadsEachPieceFresh(t *testing.T) {
	s, src := newTestStitcher(t)

	_, err := s.Assemble(context.Background(), tile.R(12, 4, 20, 12))
	require.NoError(t, err)
	require.Equal(t, 4, src.Loads())

	_, err = s.Assemble(context.Background(), tile.R(12, 4, 20, 12))
	require.NoError(t, err)
	require.Equal(t, 8, src.Loads())
}

func TestAssembleMissingZone(t *testing.T) {
	geom := testutil.SmallGeometry(t)
	missing := zoneID(0, 0, 1, 0)
	s := NewStitcher(geom, testutil.NewMemSource(geom, missing), nil)

	_, err := s.Assemble(context.Background(), tile.R(10, 0, 20, 8))
	var zerr *testutil.MissingZoneError
	require.True(t, errors.As(err, &zerr))
	require.Equal(t, missing, zerr.Zone)
}

func TestAssembleWrongZoneSize(t *testing.T) {
	geom := testutil.SmallGeometry(t)
	s := NewStitcher(geom, sourceFunc(func(_ context.Context, _ zone.ID) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
	}), nil)

	_, err := s.Assemble(context.Background(), tile.R(0, 0, 8, 8))
	var zerr *ZoneError
	require.True(t, errors.As(err, &zerr))
}

func TestAssembleCancelled(t *testing.T) {
	s, _ := newTestStitcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Assemble(ctx, tile.R(0, 0, 8, 8))
	require.ErrorIs(t, err, context.Canceled)
}

type sourceFunc func(context.Context, zone.ID) (image.Image, error)

func (f sourceFunc) Zone(ctx context.Context, id zone.ID) (image.Image, error) {
	return f(ctx, id)
}
