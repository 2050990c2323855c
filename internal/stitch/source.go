package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/internal/zone"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

// DefaultExtensions are tried in order when looking up a zone file
var DefaultExtensions = []string{"webp", "png"}

// ZoneError reports a zone image that could not be used
type ZoneError struct {
	Zone zone.ID
	Path string
	Err  error
}

func (e *ZoneError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("zone %s: %v", e.Zone, e.Err)
	}
	return fmt.Sprintf("zone %s (%s): %v", e.Zone, e.Path, e.Err)
}

func (e *ZoneError) Unwrap() error {
	return e.Err
}

// Source provides zone images
type Source interface {
	Zone(ctx context.Context, id zone.ID) (image.Image, error)
}

// DirSource loads zone images from files named "{zone id}.{ext}" in a directory
type DirSource struct {
	dir  string
	exts []string
}

// NewDirSource creates a source reading from dir. With no extensions given,
// DefaultExtensions are used.
func NewDirSource(dir string, exts ...string) *DirSource {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return &DirSource{dir: dir, exts: exts}
}

// Path returns the first existing file for id, or the path with the first
// extension when none exists
func (s *DirSource) Path(id zone.ID) string {
	var first string
	for _, ext := range s.exts {
		p := filepath.Join(s.dir, id.String()+"."+ext)
		if first == "" {
			first = p
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return first
}

// Zone reads and decodes the image for id. Every call hits the filesystem.
func (s *DirSource) Zone(ctx context.Context, id zone.ID) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(id)
	img, err := tile.ReadImage(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("missing zone image: %w", err)
		}
		return nil, &ZoneError{Zone: id, Path: path, Err: err}
	}
	return img, nil
}

// CachedSource keeps recently used zone images in a bounded in-memory cache
type CachedSource struct {
	next  Source
	cache *ristretto.Cache[string, image.Image]
}

// NewCachedSource wraps next with a cache holding up to maxBytes of decoded pixels
func NewCachedSource(next Source, maxBytes int64) (*CachedSource, error) {
	cache, err := ristretto.NewCache[string, image.Image](&ristretto.Config[string, image.Image]{
		NumCounters: 10000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedSource{next: next, cache: cache}, nil
}

func (s *CachedSource) Zone(ctx context.Context, id zone.ID) (image.Image, error) {
	key := id.String()
	if img, ok := s.cache.Get(key); ok {
		return img, nil
	}

	img, err := s.next.Zone(ctx, id)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if !s.cache.Set(key, img, int64(b.Dx()*b.Dy()*4)) {
		log.Debugf("zone %s not admitted to cache", key)
	}
	return img, nil
}

// Close releases the cache
func (s *CachedSource) Close() {
	s.cache.Close()
}
