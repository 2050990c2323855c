package pyramid

import (
	"fmt"
	"iter"

	"github.com/google/hilbert"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

// Order is the sequence in which a level's tiles are visited
type Order string

const (
	// OrderColumn walks x in the outer loop and y in the inner one
	OrderColumn Order = "column"
	// OrderRow walks y in the outer loop and x in the inner one
	OrderRow Order = "row"
	// OrderHilbert follows a Hilbert curve, keeping consecutive tiles close
	// together on the map so they share zone images
	OrderHilbert Order = "hilbert"
)

// ParseOrder validates an order name. The empty string selects OrderColumn.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "":
		return OrderColumn, nil
	case OrderColumn, OrderRow, OrderHilbert:
		return Order(s), nil
	}
	return "", fmt.Errorf("unknown tile order %q (want column, row or hilbert)", s)
}

// Tiles yields every tile of a w x h grid at the given level, in this order
func (o Order) Tiles(level, w, h int) iter.Seq[tile.ID] {
	switch o {
	case OrderRow:
		return func(yield func(tile.ID) bool) {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					if !yield(tile.ID{Level: level, X: x, Y: y}) {
						return
					}
				}
			}
		}
	case OrderHilbert:
		return hilbertTiles(level, w, h)
	default:
		return func(yield func(tile.ID) bool) {
			for x := 0; x < w; x++ {
				for y := 0; y < h; y++ {
					if !yield(tile.ID{Level: level, X: x, Y: y}) {
						return
					}
				}
			}
		}
	}
}

// hilbertTiles walks the curve over the smallest power-of-two square holding
// the grid and drops the points that fall outside it
func hilbertTiles(level, w, h int) iter.Seq[tile.ID] {
	return func(yield func(tile.ID) bool) {
		if w <= 0 || h <= 0 {
			return
		}
		n := 1
		for n < w || n < h {
			n <<= 1
		}
		curve, err := hilbert.NewHilbert(n)
		if err != nil {
			// n is a positive power of two
			panic(err)
		}

		for t := 0; t < n*n; t++ {
			x, y, err := curve.Map(t)
			if err != nil {
				panic(err)
			}
			if x >= w || y >= h {
				continue
			}
			if !yield(tile.ID{Level: level, X: x, Y: y}) {
				return
			}
		}
	}
}
