package tile

import (
	"fmt"
	"image"
)

// Tile levels
const (
	Level0 = iota
	Level1
)

// Point is a pixel coordinate in global map space, (0, 0) at the top left
type Point struct {
	X, Y int
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// In reports whether p lies inside r
func (p Point) In(r Rect) bool {
	return r.Min.X <= p.X && p.X < r.Max.X && r.Min.Y <= p.Y && p.Y < r.Max.Y
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Rect is an axis-aligned rectangle of global map space. Min is the top-left
// corner and Max the bottom-right one; Max is exclusive.
type Rect struct {
	Min, Max Point
}

// R builds a rectangle from its two corners without normalizing them
func R(x0, y0, x1, y1 int) Rect {
	return Rect{Min: Pt(x0, y0), Max: Pt(x1, y1)}
}

// Dx returns the rectangle width
func (r Rect) Dx() int {
	return r.Max.X - r.Min.X
}

// Dy returns the rectangle height
func (r Rect) Dy() int {
	return r.Max.Y - r.Min.Y
}

// Wellformed reports whether Min <= Max on both axes
func (r Rect) Wellformed() bool {
	return r.Min.X <= r.Max.X && r.Min.Y <= r.Max.Y
}

// Image converts the rectangle to an image.Rectangle with the same corners
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

func (r Rect) String() string {
	return fmt.Sprintf("%v-%v", r.Min, r.Max)
}

// ID identifies an output tile by level and grid index
type ID struct {
	Level int
	X     int
	Y     int
}

func (id ID) String() string {
	return fmt.Sprintf("tile_%d_%d_%d", id.Level, id.X, id.Y)
}
