package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/internal/pyramid"
	"github.com/kernelmethod/worldmap/internal/stitch"
	"github.com/kernelmethod/worldmap/internal/store"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

// loadGeometry validates the geometry settings. Errors are
// *tile.ConfigurationError so the process exits before any work starts.
func loadGeometry() (tile.Geometry, error) {
	// Keys are read one by one: viper does not merge a partial geometry
	// section from the config file with the defaults.
	return tile.NewGeometry(tile.GeometryOptions{
		ZoneWidth:   viper.GetInt("geometry.zone_width"),
		ZoneHeight:  viper.GetInt("geometry.zone_height"),
		WorldWidth:  viper.GetInt("geometry.world_width"),
		WorldHeight: viper.GetInt("geometry.world_height"),
		TileLength:  viper.GetInt("geometry.tile_length"),
		ZonePrefix:  viper.GetString("geometry.zone_prefix"),
		ZoneSuffix:  viper.GetInt("geometry.zone_suffix"),
	})
}

// openSource returns the zone source configured under zones.*, wrapped in a
// cache when cacheMB is positive. The returned func releases the cache.
func openSource(cacheMB int) (stitch.Source, func(), error) {
	dir := viper.GetString("zones.dir")
	src := stitch.NewDirSource(dir, viper.GetStringSlice("zones.ext")...)
	if cacheMB <= 0 {
		return src, func() {}, nil
	}

	cached, err := stitch.NewCachedSource(src, int64(cacheMB)<<20)
	if err != nil {
		return nil, nil, fmt.Errorf("zone cache: %w", err)
	}
	log.WithFields(log.Fields{"dir": dir, "cache_mb": cacheMB}).Debug("zone cache enabled")
	return cached, cached.Close, nil
}

func openStore() (*store.Store, error) {
	s, err := store.New(viper.GetString("tiles.dir"), viper.GetString("tiles.pattern"))
	if err != nil {
		return nil, &tile.ConfigurationError{Field: "tiles.pattern", Message: err.Error()}
	}
	return s, nil
}

// pipeline is everything needed to assemble and store tiles
type pipeline struct {
	geom     tile.Geometry
	stitcher *stitch.Stitcher
	store    *store.Store
	builder  *pyramid.Builder
	close    func()
}

func newPipeline(cacheMB int, opts pyramid.Options) (*pipeline, error) {
	geom, err := loadGeometry()
	if err != nil {
		return nil, err
	}
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	src, closeSrc, err := openSource(cacheMB)
	if err != nil {
		return nil, err
	}

	st := stitch.NewStitcher(geom, src, nil)
	return &pipeline{
		geom:     geom,
		stitcher: st,
		store:    s,
		builder:  pyramid.NewBuilder(geom, st, s, nil, opts),
		close:    closeSrc,
	}, nil
}
