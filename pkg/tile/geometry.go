package tile

import "fmt"

// ZonesPerWorld is the side of the zone grid inside one world cell
const ZonesPerWorld = 3

// ScaleFactor is the per-axis reduction between level 0 and level 1
const ScaleFactor = 4

// Defaults match the exported Joppa world map: 80x25 parasangs, each split
// into 3x3 zones of 80x25 cells drawn with 16x24 pixel glyphs.
const (
	DefaultZoneWidth   = 80 * 16
	DefaultZoneHeight  = 25 * 24
	DefaultWorldWidth  = 80
	DefaultWorldHeight = 25
	DefaultTileLength  = 600
	DefaultZonePrefix  = "JoppaWorld"
	DefaultZoneSuffix  = 10
)

// GeometryOptions holds the raw geometry settings as read from configuration
type GeometryOptions struct {
	ZoneWidth   int
	ZoneHeight  int
	WorldWidth  int
	WorldHeight int
	TileLength  int
	ZonePrefix  string
	ZoneSuffix  int
}

// DefaultGeometryOptions returns the settings for the full world map
func DefaultGeometryOptions() GeometryOptions {
	return GeometryOptions{
		ZoneWidth:   DefaultZoneWidth,
		ZoneHeight:  DefaultZoneHeight,
		WorldWidth:  DefaultWorldWidth,
		WorldHeight: DefaultWorldHeight,
		TileLength:  DefaultTileLength,
		ZonePrefix:  DefaultZonePrefix,
		ZoneSuffix:  DefaultZoneSuffix,
	}
}

// ConfigurationError reports geometry settings that cannot describe a valid map
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Geometry is the validated, immutable description of the map layout.
// The zero value is not usable; build one with NewGeometry.
type Geometry struct {
	zoneWidth   int
	zoneHeight  int
	worldWidth  int
	worldHeight int
	tileLength  int
	zonePrefix  string
	zoneSuffix  int
}

// NewGeometry validates opts and returns the corresponding geometry
func NewGeometry(opts GeometryOptions) (Geometry, error) {
	positive := []struct {
		field string
		value int
	}{
		{"zone_width", opts.ZoneWidth},
		{"zone_height", opts.ZoneHeight},
		{"world_width", opts.WorldWidth},
		{"world_height", opts.WorldHeight},
		{"tile_length", opts.TileLength},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return Geometry{}, &ConfigurationError{Field: p.field, Message: fmt.Sprintf("must be positive, got %d", p.value)}
		}
	}

	g := Geometry{
		zoneWidth:   opts.ZoneWidth,
		zoneHeight:  opts.ZoneHeight,
		worldWidth:  opts.WorldWidth,
		worldHeight: opts.WorldHeight,
		tileLength:  opts.TileLength,
		zonePrefix:  opts.ZonePrefix,
		zoneSuffix:  opts.ZoneSuffix,
	}

	if g.MapWidth()%g.tileLength != 0 {
		return Geometry{}, &ConfigurationError{
			Field:   "tile_length",
			Message: fmt.Sprintf("%d does not divide map width %d", g.tileLength, g.MapWidth()),
		}
	}
	if g.MapHeight()%g.tileLength != 0 {
		return Geometry{}, &ConfigurationError{
			Field:   "tile_length",
			Message: fmt.Sprintf("%d does not divide map height %d", g.tileLength, g.MapHeight()),
		}
	}
	if g.tileLength%ScaleFactor != 0 {
		return Geometry{}, &ConfigurationError{
			Field:   "tile_length",
			Message: fmt.Sprintf("%d is not a multiple of the scale factor %d", g.tileLength, ScaleFactor),
		}
	}

	return g, nil
}

// MustGeometry is like NewGeometry but panics on invalid options.
// Intended for tests and package-level defaults.
func MustGeometry(opts GeometryOptions) Geometry {
	g, err := NewGeometry(opts)
	if err != nil {
		panic(err)
	}
	return g
}

func (g Geometry) ZoneWidth() int { return g.zoneWidth }
func (g Geometry) ZoneHeight() int { return g.zoneHeight }
func (g Geometry) WorldWidth() int { return g.worldWidth }
func (g Geometry) WorldHeight() int { return g.worldHeight }
func (g Geometry) TileLength() int { return g.tileLength }
func (g Geometry) ZonePrefix() string { return g.zonePrefix }
func (g Geometry) ZoneSuffix() int { return g.zoneSuffix }

// MapWidth is the width of the global pixel space
func (g Geometry) MapWidth() int {
	return g.worldWidth * ZonesPerWorld * g.zoneWidth
}

// MapHeight is the height of the global pixel space
func (g Geometry) MapHeight() int {
	return g.worldHeight * ZonesPerWorld * g.zoneHeight
}

// Bounds returns the whole map as a rectangle
func (g Geometry) Bounds() Rect {
	return R(0, 0, g.MapWidth(), g.MapHeight())
}

// Contains reports whether r lies inside the map
func (g Geometry) Contains(r Rect) bool {
	return r.Min.X >= 0 && r.Min.Y >= 0 && r.Max.X <= g.MapWidth() && r.Max.Y <= g.MapHeight()
}

// TilesX returns the number of level-0 tile columns
func (g Geometry) TilesX() int {
	return g.MapWidth() / g.tileLength
}

// TilesY returns the number of level-0 tile rows
func (g Geometry) TilesY() int {
	return g.MapHeight() / g.tileLength
}

// Level1TilesX returns the number of level-1 tile columns
func (g Geometry) Level1TilesX() int {
	return (g.TilesX() + ScaleFactor - 1) / ScaleFactor
}

// Level1TilesY returns the number of level-1 tile rows
func (g Geometry) Level1TilesY() int {
	return (g.TilesY() + ScaleFactor - 1) / ScaleFactor
}

// GridSize returns the tile grid dimensions at the given level
func (g Geometry) GridSize(level int) (int, int) {
	if level == Level1 {
		return g.Level1TilesX(), g.Level1TilesY()
	}
	return g.TilesX(), g.TilesY()
}

// Valid reports whether id addresses a tile of this map
func (g Geometry) Valid(id ID) bool {
	if id.Level != Level0 && id.Level != Level1 {
		return false
	}
	w, h := g.GridSize(id.Level)
	return id.X >= 0 && id.Y >= 0 && id.X < w && id.Y < h
}

// TileRect returns the global pixel extent of a level-0 tile
func (g Geometry) TileRect(x, y int) Rect {
	l := g.tileLength
	return R(x*l, y*l, x*l+l, y*l+l)
}
