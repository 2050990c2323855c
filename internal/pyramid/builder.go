// Package pyramid generates the two tile levels of the world map.
//
// Level 0 tiles are cut from the stitched zone images at native resolution.
// Level 1 tiles each cover a 4x4 block of level 0 tiles shrunk to a quarter
// of their size; slots past the map edge stay transparent.
package pyramid

import (
	"context"
	"fmt"
	"image"

	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/internal/raster"
	"github.com/kernelmethod/worldmap/internal/stitch"
	"github.com/kernelmethod/worldmap/internal/store"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

// Progress receives one Add per tile visited, generated or skipped
type Progress interface {
	Add(n int) error
	Finish() error
}

// ProgressFunc creates the progress reporter for one pass
type ProgressFunc func(description string, total int) Progress

// Counts summarizes one pass over a level
type Counts struct {
	Total     int
	Generated int
	Skipped   int
}

// Stats summarizes a full build
type Stats struct {
	Level0 Counts
	Level1 Counts
}

// Options tunes a Builder
type Options struct {
	Order    Order
	Progress ProgressFunc
}

// Builder drives tile generation
type Builder struct {
	geom     tile.Geometry
	stitcher *stitch.Stitcher
	store    *store.Store
	canvas   raster.Canvas
	order    Order
	progress ProgressFunc
}

// NewBuilder creates a builder assembling level-0 tiles with st and keeping
// all tiles in s
func NewBuilder(geom tile.Geometry, st *stitch.Stitcher, s *store.Store, canvas raster.Canvas, opts Options) *Builder {
	if canvas == nil {
		canvas = raster.New()
	}
	order := opts.Order
	if order == "" {
		order = OrderColumn
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string, int) Progress { return nopProgress{} }
	}
	return &Builder{
		geom:     geom,
		stitcher: st,
		store:    s,
		canvas:   canvas,
		order:    order,
		progress: progress,
	}
}

// Build runs the level-0 pass followed by the level-1 pass
func (b *Builder) Build(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error

	stats.Level0, err = b.BuildLevel0(ctx)
	if err != nil {
		return stats, err
	}
	stats.Level1, err = b.BuildLevel1(ctx)
	return stats, err
}

// BuildLevel0 generates every missing level-0 tile
func (b *Builder) BuildLevel0(ctx context.Context) (Counts, error) {
	return b.pass(ctx, tile.Level0, func(id tile.ID) (image.Image, error) {
		return b.Level0(ctx, id.X, id.Y)
	})
}

// BuildLevel1 generates every missing level-1 tile from the stored level-0
// tiles. A level-0 tile that should exist but cannot be read aborts the pass.
func (b *Builder) BuildLevel1(ctx context.Context) (Counts, error) {
	return b.pass(ctx, tile.Level1, func(id tile.ID) (image.Image, error) {
		return b.Level1(id.X, id.Y)
	})
}

func (b *Builder) pass(ctx context.Context, level int, render func(tile.ID) (image.Image, error)) (Counts, error) {
	w, h := b.geom.GridSize(level)
	counts := Counts{Total: w * h}

	bar := b.progress(fmt.Sprintf("level %d", level), counts.Total)
	defer func() {
		if err := bar.Finish(); err != nil {
			log.WithField("level", level).Debugf("progress: %v", err)
		}
	}()

	log.WithFields(log.Fields{"level": level, "tiles": counts.Total, "order": b.order}).Info("starting tile pass")

	for id := range b.order.Tiles(level, w, h) {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		generated, err := b.ensure(id, render)
		if err != nil {
			return counts, err
		}
		if generated {
			counts.Generated++
		} else {
			counts.Skipped++
		}
		if err := bar.Add(1); err != nil {
			log.WithField("tile", id.String()).Debugf("progress: %v", err)
		}
	}

	log.WithFields(log.Fields{
		"level":     level,
		"generated": counts.Generated,
		"skipped":   counts.Skipped,
	}).Info("finished tile pass")
	return counts, nil
}

// ensure renders and stores id unless it is already present
func (b *Builder) ensure(id tile.ID, render func(tile.ID) (image.Image, error)) (bool, error) {
	exists, err := b.store.Exists(id)
	if err != nil {
		return false, err
	}
	if exists {
		log.WithField("tile", id.String()).Debug("tile exists, skipping")
		return false, nil
	}

	img, err := render(id)
	if err != nil {
		return false, fmt.Errorf("render %s: %w", id, err)
	}
	if err := b.store.Save(id, img); err != nil {
		return false, fmt.Errorf("save %s: %w", id, err)
	}
	log.WithField("tile", id.String()).Debug("tile written")
	return true, nil
}

// Level0 assembles the level-0 tile at grid position (x, y)
func (b *Builder) Level0(ctx context.Context, x, y int) (*image.RGBA, error) {
	return b.stitcher.Assemble(ctx, b.geom.TileRect(x, y))
}

// Level1 composes the level-1 tile at grid position (x, y) from stored
// level-0 tiles
func (b *Builder) Level1(x, y int) (*image.RGBA, error) {
	l := b.geom.TileLength()
	sub := l / tile.ScaleFactor
	dst := b.canvas.NewTransparent(l, l)

	for _, id := range b.children(x, y) {
		img, err := b.store.Load(id)
		if err != nil {
			return nil, err
		}
		if size := img.Bounds().Size(); size != image.Pt(l, l) {
			return nil, &store.TileError{
				Tile: id,
				Path: b.store.Path(id),
				Err:  fmt.Errorf("wrong tile size: got %dx%d, expected %dx%d", size.X, size.Y, l, l),
			}
		}

		i, j := id.X-x*tile.ScaleFactor, id.Y-y*tile.ScaleFactor
		b.canvas.Paste(dst, b.canvas.Resize(img, sub, sub), image.Pt(i*sub, j*sub))
	}

	return dst, nil
}

// children lists the level-0 tiles inside the level-1 tile (x, y) that lie
// within the level-0 grid
func (b *Builder) children(x, y int) []tile.ID {
	var ids []tile.ID
	for j := 0; j < tile.ScaleFactor; j++ {
		for i := 0; i < tile.ScaleFactor; i++ {
			id := tile.ID{Level: tile.Level0, X: x*tile.ScaleFactor + i, Y: y*tile.ScaleFactor + j}
			if b.geom.Valid(id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// RenderTile makes sure a single tile is stored, generating it when missing.
// For level-1 tiles the contributing level-0 tiles are generated first.
// It reports whether anything was written.
func (b *Builder) RenderTile(ctx context.Context, id tile.ID) (bool, error) {
	if !b.geom.Valid(id) {
		return false, fmt.Errorf("%w: %s", ErrNoSuchTile, id)
	}

	if id.Level == tile.Level0 {
		return b.ensure(id, func(id tile.ID) (image.Image, error) {
			return b.Level0(ctx, id.X, id.Y)
		})
	}

	exists, err := b.store.Exists(id)
	if err != nil || exists {
		return false, err
	}
	for _, child := range b.children(id.X, id.Y) {
		if _, err := b.RenderTile(ctx, child); err != nil {
			return false, err
		}
	}
	return b.ensure(id, func(id tile.ID) (image.Image, error) {
		return b.Level1(id.X, id.Y)
	})
}

type nopProgress struct{}

func (nopProgress) Add(int) error { return nil }
func (nopProgress) Finish() error { return nil }
