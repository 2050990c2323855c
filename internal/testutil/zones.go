// Package testutil builds synthetic zone sets for tests.
package testutil

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kernelmethod/worldmap/internal/zone"
	"github.com/kernelmethod/worldmap/pkg/tile"
	"github.com/stretchr/testify/require"
)

// SmallGeometry is a 96x48 map of 16x8 zones (2x2 worlds) cut into 8px tiles,
// giving a 12x6 level-0 grid and a 3x2 level-1 grid.
func SmallGeometry(t testing.TB) tile.Geometry {
	t.Helper()
	g, err := tile.NewGeometry(tile.GeometryOptions{
		ZoneWidth:   16,
		ZoneHeight:  8,
		WorldWidth:  2,
		WorldHeight: 2,
		TileLength:  8,
		ZonePrefix:  "JoppaWorld",
		ZoneSuffix:  10,
	})
	require.NoError(t, err)
	return g
}

// Marker is the color of global pixel (x, y) in the synthetic zone set. It
// encodes the zone column and row plus the position inside the zone, so every
// pixel tells where it was sourced from.
func Marker(geom tile.Geometry, x, y int) color.RGBA {
	zw, zh := geom.ZoneWidth(), geom.ZoneHeight()
	return color.RGBA{
		R: uint8(x / zw),
		G: uint8(y / zh),
		B: uint8((x%zw)*zh + y%zh),
		A: 255,
	}
}

// ZoneImage renders the synthetic image for zone id
func ZoneImage(geom tile.Geometry, id zone.ID) *image.RGBA {
	origin := zone.NewLocator(geom).Origin(id)
	img := image.NewRGBA(image.Rect(0, 0, geom.ZoneWidth(), geom.ZoneHeight()))
	for y := 0; y < geom.ZoneHeight(); y++ {
		for x := 0; x < geom.ZoneWidth(); x++ {
			img.SetRGBA(x, y, Marker(geom, origin.X+x, origin.Y+y))
		}
	}
	return img
}

// AllZones lists every zone of geom
func AllZones(geom tile.Geometry) []zone.ID {
	l := zone.NewLocator(geom)
	var ids []zone.ID
	for y := 0; y < geom.MapHeight(); y += geom.ZoneHeight() {
		for x := 0; x < geom.MapWidth(); x += geom.ZoneWidth() {
			ids = append(ids, l.Locate(tile.Pt(x, y)))
		}
	}
	return ids
}

// WriteZones stores the synthetic zone set as PNG files in dir
func WriteZones(t testing.TB, geom tile.Geometry, dir string) {
	t.Helper()
	for _, id := range AllZones(geom) {
		path := filepath.Join(dir, id.String()+".png")
		require.NoError(t, tile.WritePNG(path, ZoneImage(geom, id)))
	}
}

// MemSource serves synthetic zones from memory and counts the requests it gets
type MemSource struct {
	geom    tile.Geometry
	missing map[zone.ID]bool

	mu    sync.Mutex
	loads map[zone.ID]int
}

// NewMemSource creates a source for geom. Zones listed in missing fail to load.
func NewMemSource(geom tile.Geometry, missing ...zone.ID) *MemSource {
	m := &MemSource{
		geom:    geom,
		missing: make(map[zone.ID]bool),
		loads:   make(map[zone.ID]int),
	}
	for _, id := range missing {
		m.missing[id] = true
	}
	return m
}

func (m *MemSource) Zone(_ context.Context, id zone.ID) (image.Image, error) {
	m.mu.Lock()
	m.loads[id]++
	m.mu.Unlock()

	if m.missing[id] {
		return nil, &MissingZoneError{Zone: id}
	}
	return ZoneImage(m.geom, id), nil
}

// Loads returns the total number of zone requests served
func (m *MemSource) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.loads {
		n += c
	}
	return n
}

// LoadsOf returns how many times id was requested
func (m *MemSource) LoadsOf(id zone.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[id]
}

// MissingZoneError is returned by MemSource for zones marked missing
type MissingZoneError struct {
	Zone zone.ID
}

func (e *MissingZoneError) Error() string {
	return "missing zone " + e.Zone.String()
}
