package layout

import (
	"errors"
	"image"
	"testing"
)

func squares(n, side int) []image.Point {
	out := make([]image.Point, n)
	for i := range out {
		out[i] = image.Pt(side, side)
	}
	return out
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		sizes    []image.Point
		wantCols int
		wantRows int
		wantCell image.Point
	}{
		{"single", squares(1, 50), 1, 1, image.Pt(50, 50)},
		{"two", squares(2, 10), 2, 1, image.Pt(10, 10)},
		{"three", squares(3, 10), 2, 2, image.Pt(10, 10)},
		{"four", squares(4, 10), 2, 2, image.Pt(10, 10)},
		{"five", squares(5, 10), 3, 2, image.Pt(10, 10)},
		{"ten", squares(10, 10), 4, 3, image.Pt(10, 10)},
		{"hundred", squares(100, 1), 10, 10, image.Pt(1, 1)},
		{"mixed sizes", []image.Point{{30, 10}, {5, 40}, {20, 20}}, 2, 2, image.Pt(30, 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Plan(tt.sizes)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if g.Cols != tt.wantCols || g.Rows != tt.wantRows {
				t.Errorf("grid = %dx%d, want %dx%d", g.Cols, g.Rows, tt.wantCols, tt.wantRows)
			}
			if g.Cell != tt.wantCell {
				t.Errorf("cell = %v, want %v", g.Cell, tt.wantCell)
			}
			if g.Cols*g.Rows < len(tt.sizes) {
				t.Errorf("grid has %d slots for %d images", g.Cols*g.Rows, len(tt.sizes))
			}
			for _, s := range tt.sizes {
				if s.X > g.Cell.X || s.Y > g.Cell.Y {
					t.Errorf("image %v does not fit cell %v", s, g.Cell)
				}
			}
		})
	}
}

func TestPlan_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name  string
		sizes []image.Point
	}{
		{"empty", nil},
		{"zero width", []image.Point{{10, 10}, {0, 10}}},
		{"zero height", []image.Point{{10, 0}}},
		{"negative", []image.Point{{-1, 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Plan(tt.sizes); !errors.Is(err, ErrInvalidDimensions) {
				t.Errorf("Plan() error = %v, want ErrInvalidDimensions", err)
			}
		})
	}
}

func TestGridGeometry(t *testing.T) {
	g := Grid{Cols: 3, Rows: 2, Cell: image.Pt(100, 80), Count: 5}

	if w, h := g.CanvasSize(); w != 300 || h != 160 {
		t.Errorf("CanvasSize() = %dx%d, want 300x160", w, h)
	}
	if got := g.CellOrigin(4); got != image.Pt(100, 80) {
		t.Errorf("CellOrigin(4) = %v, want (100,80)", got)
	}

	// 51x30 in a 100x80 cell: offset (24, 25).
	want := image.Rect(224, 25, 275, 55)
	if got := g.Placement(2, image.Pt(51, 30)); got != want {
		t.Errorf("Placement(2) = %v, want %v", got, want)
	}
}

func TestCanvasSizeDoesNotOverflow(t *testing.T) {
	g := Grid{Cols: 70000, Rows: 70000, Cell: image.Pt(70000, 70000)}
	w, h := g.CanvasSize()
	if w != 4_900_000_000 || h != 4_900_000_000 {
		t.Errorf("CanvasSize() = %dx%d", w, h)
	}
}
