// Package store keeps generated tiles as individual image files in a directory.
package store

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kernelmethod/worldmap/pkg/tile"
)

// DefaultPattern is the viewer's tile_{z}_{x}_{y} naming with a PNG extension.
// The viewer itself asks for .webp; the server maps that name onto this one.
const DefaultPattern = "tile_{z}_{x}_{y}.png"

var ErrInvalidPattern = errors.New("invalid tile file pattern")

// TileError reports a stored tile that could not be read
type TileError struct {
	Tile tile.ID
	Path string
	Err  error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile %s (%s): %v", e.Tile, e.Path, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}

// Store reads and writes tiles below a root directory
type Store struct {
	dir     string
	pattern string
}

// New creates a store writing to dir with file names built from pattern.
// The pattern must contain the {z}, {x} and {y} placeholders.
func New(dir, pattern string) (*Store, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(pattern, p) {
			return nil, fmt.Errorf("%w: placeholder %v not found in %q", ErrInvalidPattern, p, pattern)
		}
	}
	return &Store{dir: dir, pattern: pattern}, nil
}

// Dir returns the store root
func (s *Store) Dir() string {
	return s.dir
}

// Name returns the file name of a tile relative to the store root
func (s *Store) Name(id tile.ID) string {
	name := s.pattern
	name = strings.ReplaceAll(name, "{z}", strconv.Itoa(id.Level))
	name = strings.ReplaceAll(name, "{x}", strconv.Itoa(id.X))
	name = strings.ReplaceAll(name, "{y}", strconv.Itoa(id.Y))
	return name
}

// Path returns the full path of a tile
func (s *Store) Path(id tile.ID) string {
	return filepath.Join(s.dir, s.Name(id))
}

// Exists reports whether a tile has already been written
func (s *Store) Exists(id tile.ID) (bool, error) {
	_, err := os.Stat(s.Path(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Load decodes a stored tile
func (s *Store) Load(id tile.ID) (image.Image, error) {
	path := s.Path(id)
	img, err := tile.ReadImage(path)
	if err != nil {
		return nil, &TileError{Tile: id, Path: path, Err: err}
	}
	return img, nil
}

// Save writes a tile as a lossless PNG, replacing the file atomically
func (s *Store) Save(id tile.ID, img image.Image) error {
	return tile.WritePNG(s.Path(id), img)
}

// ReadFile returns the encoded bytes of a stored tile
func (s *Store) ReadFile(id tile.ID) ([]byte, error) {
	return os.ReadFile(s.Path(id))
}

// Parse maps a file name produced by Name back to a tile id
func (s *Store) Parse(name string) (tile.ID, bool) {
	var id tile.ID
	rest := name
	pattern := s.pattern

	for len(pattern) > 0 {
		i := strings.IndexByte(pattern, '{')
		if i < 0 {
			return id, rest == pattern
		}
		if !strings.HasPrefix(rest, pattern[:i]) {
			return id, false
		}
		rest = rest[i:]
		pattern = pattern[i:]

		j := strings.IndexByte(pattern, '}')
		if j < 0 {
			return id, false
		}
		key := pattern[:j+1]
		pattern = pattern[j+1:]

		n := 0
		for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
			n++
		}
		if n == 0 {
			return id, false
		}
		v, err := strconv.Atoi(rest[:n])
		if err != nil {
			return id, false
		}
		rest = rest[n:]

		switch key {
		case "{z}":
			id.Level = v
		case "{x}":
			id.X = v
		case "{y}":
			id.Y = v
		default:
			return id, false
		}
	}
	return id, rest == ""
}
