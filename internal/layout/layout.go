// Package layout computes the collage grid.
package layout

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidDimensions is returned for an empty set or a zero-sized image.
var ErrInvalidDimensions = errors.New("invalid image dimensions")

// Grid is a cols x rows arrangement of equally sized cells.
type Grid struct {
	Cols  int
	Rows  int
	Cell  image.Point
	Count int
}

// Plan sizes a near-square grid for len(sizes) images. Every cell is as wide
// as the widest image and as tall as the tallest one.
func Plan(sizes []image.Point) (Grid, error) {
	n := len(sizes)
	if n == 0 {
		return Grid{}, fmt.Errorf("%w: no images", ErrInvalidDimensions)
	}

	var cell image.Point
	for i, s := range sizes {
		if s.X <= 0 || s.Y <= 0 {
			return Grid{}, fmt.Errorf("%w: image %d is %dx%d", ErrInvalidDimensions, i, s.X, s.Y)
		}
		cell.X = max(cell.X, s.X)
		cell.Y = max(cell.Y, s.Y)
	}

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	// Guard against sqrt rounding for large perfect squares.
	for cols*cols < n {
		cols++
	}
	for cols > 1 && (cols-1)*(cols-1) >= n {
		cols--
	}
	rows := (n + cols - 1) / cols

	return Grid{Cols: cols, Rows: rows, Cell: cell, Count: n}, nil
}

// CanvasSize is the full collage size in pixels. It is computed in int64 so
// that oversized grids can be reported rather than overflow.
func (g Grid) CanvasSize() (width, height int64) {
	return int64(g.Cols) * int64(g.Cell.X), int64(g.Rows) * int64(g.Cell.Y)
}

// CellOrigin returns the top-left corner of cell i, filled row by row.
func (g Grid) CellOrigin(i int) image.Point {
	return image.Pt((i%g.Cols)*g.Cell.X, (i/g.Cols)*g.Cell.Y)
}

// Placement centers an image of the given size in cell i.
func (g Grid) Placement(i int, size image.Point) image.Rectangle {
	origin := g.CellOrigin(i)
	offset := image.Pt((g.Cell.X-size.X)/2, (g.Cell.Y-size.Y)/2)
	at := origin.Add(offset)
	return image.Rectangle{Min: at, Max: at.Add(size)}
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d grid of %dx%d cells", g.Cols, g.Rows, g.Cell.X, g.Cell.Y)
}
