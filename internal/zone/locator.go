// Package zone maps global pixel coordinates onto the zone images that make up the map.
package zone

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kernelmethod/worldmap/pkg/tile"
)

// ID identifies one zone image: the world cell it belongs to, its position
// inside that cell and the fixed suffix.
type ID struct {
	Prefix string
	WorldX int
	WorldY int
	InnerX int
	InnerY int
	Suffix int
}

// String renders the identifier the way zone files are named
func (id ID) String() string {
	s := fmt.Sprintf("%d.%d.%d.%d.%d", id.WorldX, id.WorldY, id.InnerX, id.InnerY, id.Suffix)
	if id.Prefix == "" {
		return s
	}
	return id.Prefix + "." + s
}

// ParseID decodes an identifier produced by ID.String
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, ".")
	var id ID
	switch len(parts) {
	case 5:
	case 6:
		id.Prefix = parts[0]
		parts = parts[1:]
	default:
		return ID{}, fmt.Errorf("zone id %q: expected 5 numeric fields", s)
	}

	fields := []*int{&id.WorldX, &id.WorldY, &id.InnerX, &id.InnerY, &id.Suffix}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ID{}, fmt.Errorf("zone id %q: field %d: %w", s, i, err)
		}
		*fields[i] = n
	}
	return id, nil
}

// Locator resolves global pixels to zones for one map geometry
type Locator struct {
	geom tile.Geometry
}

// NewLocator creates a locator for geom
func NewLocator(geom tile.Geometry) *Locator {
	return &Locator{geom: geom}
}

// Locate returns the zone containing p. p must lie inside the map.
func (l *Locator) Locate(p tile.Point) ID {
	zw, zh := l.geom.ZoneWidth(), l.geom.ZoneHeight()
	return ID{
		Prefix: l.geom.ZonePrefix(),
		WorldX: p.X / (zw * tile.ZonesPerWorld),
		WorldY: p.Y / (zh * tile.ZonesPerWorld),
		InnerX: (p.X / zw) % tile.ZonesPerWorld,
		InnerY: (p.Y / zh) % tile.ZonesPerWorld,
		Suffix: l.geom.ZoneSuffix(),
	}
}

// Local converts p to coordinates inside its zone
func (l *Locator) Local(p tile.Point) tile.Point {
	return tile.Pt(p.X%l.geom.ZoneWidth(), p.Y%l.geom.ZoneHeight())
}

// Origin returns the global top-left pixel of a zone
func (l *Locator) Origin(id ID) tile.Point {
	col := id.WorldX*tile.ZonesPerWorld + id.InnerX
	row := id.WorldY*tile.ZonesPerWorld + id.InnerY
	return tile.Pt(col*l.geom.ZoneWidth(), row*l.geom.ZoneHeight())
}

// Bounds returns the global extent of a zone
func (l *Locator) Bounds(id ID) tile.Rect {
	o := l.Origin(id)
	return tile.Rect{Min: o, Max: tile.Pt(o.X+l.geom.ZoneWidth(), o.Y+l.geom.ZoneHeight())}
}

// Geometry returns the geometry the locator was built for
func (l *Locator) Geometry() tile.Geometry {
	return l.geom
}
