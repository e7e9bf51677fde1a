package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"image-collage/internal/layout"
	"image-collage/internal/media"
)

func record(name string, w, h int, c color.NRGBA) *media.Record {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	mode := media.ModeRGB
	if c.A != 0xff {
		mode = media.ModeRGBA
	}
	return &media.Record{Name: name, Width: w, Height: h, Mode: mode, Image: img}
}

func plan(t *testing.T, records []*media.Record) layout.Grid {
	t.Helper()
	sizes := make([]image.Point, len(records))
	for i, r := range records {
		sizes[i] = r.Size()
	}
	g, err := layout.Plan(sizes)
	if err != nil {
		t.Fatalf("layout.Plan() error = %v", err)
	}
	return g
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	black = color.RGBA{A: 255}
)

func TestCompose_SingleImageFillsCanvas(t *testing.T) {
	records := []*media.Record{record("a.png", 50, 50, red)}
	grid := plan(t, records)

	canvas, err := New(Config{}).Compose(context.Background(), grid, records, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if b := canvas.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Fatalf("canvas = %v, want 50x50", b)
	}
	if got := rgbaAt(canvas, 25, 25); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("center = %v, want red", got)
	}
	if records[0].Image != nil {
		t.Error("record should be released after paste")
	}
}

func TestCompose_CentersInCells(t *testing.T) {
	records := []*media.Record{
		record("big.png", 40, 20, red),
		record("small.png", 10, 10, green),
		record("tall.png", 4, 30, red),
	}
	grid := plan(t, records)

	canvas, err := New(Config{}).Compose(context.Background(), grid, records, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	// 2x2 grid of 40x30 cells.
	if b := canvas.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Fatalf("canvas = %v, want 80x60", b)
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"big image top band is background", 20, 2, black},
		{"big image body", 20, 10, color.RGBA{R: 255, A: 255}},
		{"small image offset (15,10) in cell 1", 40 + 15, 10, color.RGBA{G: 255, A: 255}},
		{"left of small image", 40 + 14, 10, black},
		{"tall image in second row", 18, 30, color.RGBA{R: 255, A: 255}},
		{"right of tall image", 22, 30, black},
		{"empty fourth cell", 60, 45, black},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rgbaAt(canvas, tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestCompose_TransparentBorderKeepsBackground(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			img.SetNRGBA(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	// Half-transparent pixel with a saturated color underneath.
	img.SetNRGBA(5, 5, color.NRGBA{R: 255, A: 128})
	records := []*media.Record{
		{Name: "clear.png", Width: 20, Height: 20, Mode: media.ModeRGBA, Image: img},
		record("wide.png", 30, 20, green),
	}
	grid := plan(t, records)

	canvas, err := New(Config{}).Compose(context.Background(), grid, records, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	// Cell 0 is 30x20, the image sits at x 5..25.
	if got := rgbaAt(canvas, 6, 1); got != black {
		t.Errorf("transparent border pixel = %v, want opaque black", got)
	}
	if got := rgbaAt(canvas, 15, 15); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("opaque body pixel = %v, want blue", got)
	}
	got := rgbaAt(canvas, 10, 5)
	if got.A != 255 || got.R < 126 || got.R > 130 || got.G != 0 || got.B != 0 {
		t.Errorf("half-transparent pixel = %v, want ~50%% red over black", got)
	}
}

func TestCompose_DimensionLimit(t *testing.T) {
	records := []*media.Record{record("a.png", 60, 10, red), record("b.png", 60, 10, red)}
	grid := plan(t, records)

	_, err := New(Config{MaxDimension: 100}).Compose(context.Background(), grid, records, nil)
	if !errors.Is(err, ErrDimensionLimitExceeded) {
		t.Fatalf("Compose() error = %v, want ErrDimensionLimitExceeded", err)
	}
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("error %T is not a *DimensionError", err)
	}
	if dimErr.Width != 120 || dimErr.Height != 10 || dimErr.Limit != 100 {
		t.Errorf("DimensionError = %+v", dimErr)
	}
	if records[0].Image == nil {
		t.Error("records should not be released when the canvas is rejected")
	}
}

func TestCheckSize(t *testing.T) {
	c := New(Config{MaxPixels: 1000})
	if err := c.CheckSize(layout.Grid{Cols: 1, Rows: 1, Cell: image.Pt(65500, 1)}); !errors.Is(err, ErrDimensionLimitExceeded) {
		t.Errorf("pixel budget: error = %v", err)
	}
	if err := New(Config{}).CheckSize(layout.Grid{Cols: 2, Rows: 1, Cell: image.Pt(32750, 10)}); err != nil {
		t.Errorf("exactly at the limit: error = %v", err)
	}
	if err := New(Config{}).CheckSize(layout.Grid{Cols: 2, Rows: 1, Cell: image.Pt(32751, 10)}); err == nil {
		t.Error("one pixel over the limit should fail")
	}
}

func TestCompose_Progress(t *testing.T) {
	var records []*media.Record
	for i := 0; i < 23; i++ {
		records = append(records, record(fmt.Sprintf("%d.png", i), 2, 2, red))
	}
	grid := plan(t, records)

	var percents []int
	var last string
	_, err := New(Config{}).Compose(context.Background(), grid, records, func(p int, msg string) {
		percents = append(percents, p)
		last = msg
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if fmt.Sprint(percents) != "[80 91 95]" {
		t.Errorf("percents = %v, want [80 91 95]", percents)
	}
	if last != "Assembling collage: 23/23" {
		t.Errorf("last message = %q", last)
	}
}

func TestCompose_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []*media.Record{record("a.png", 2, 2, red), record("b.png", 2, 2, red), record("c.png", 2, 2, red)}
	grid := plan(t, records)

	events := 0
	canvas, err := New(Config{}).Compose(ctx, grid, records, func(int, string) { events++ })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Compose() error = %v, want context.Canceled", err)
	}
	if canvas != nil || events != 0 {
		t.Errorf("cancelled Compose returned canvas=%v after %d progress events", canvas != nil, events)
	}
}

func TestCompose_RejectsMoreRecordsThanCells(t *testing.T) {
	records := []*media.Record{record("a.png", 2, 2, red), record("b.png", 2, 2, red)}
	grid := layout.Grid{Cols: 1, Rows: 1, Cell: image.Pt(2, 2), Count: 1}

	if _, err := New(Config{}).Compose(context.Background(), grid, records, nil); !errors.Is(err, layout.ErrInvalidDimensions) {
		t.Errorf("Compose() error = %v, want ErrInvalidDimensions", err)
	}
}

func TestSplitAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, A: 0})
	img.SetNRGBA(1, 0, color.NRGBA{R: 20, A: 99})

	mask, err := splitAlpha(img)
	if err != nil {
		t.Fatalf("splitAlpha() error = %v", err)
	}
	if mask.AlphaAt(0, 0).A != 0 || mask.AlphaAt(1, 0).A != 99 {
		t.Errorf("mask = %v", mask.Pix)
	}
	if img.NRGBAAt(1, 0) != (color.NRGBA{R: 20, A: 255}) {
		t.Errorf("source not made opaque: %v", img.NRGBAAt(1, 0))
	}

	broken := &image.NRGBA{Pix: make([]uint8, 4), Stride: 8, Rect: image.Rect(0, 0, 2, 2)}
	if _, err := splitAlpha(broken); err == nil {
		t.Error("splitAlpha() should reject a short pixel buffer")
	}
}

func TestPaste_DegradesToOpaque(t *testing.T) {
	// Two rows declared, one row of pixels present.
	short := &image.NRGBA{Pix: []uint8{200, 0, 0, 0}, Stride: 8, Rect: image.Rect(0, 0, 1, 2)}
	rec := &media.Record{Name: "broken.png", Width: 1, Height: 1, Mode: media.ModeRGBA, Image: short}

	canvas := image.NewRGBA(image.Rect(0, 0, 1, 1))
	paste(canvas, canvas.Bounds(), rec)

	if got := canvas.RGBAAt(0, 0); got != (color.RGBA{R: 200, A: 255}) {
		t.Errorf("degraded paste = %v, want opaque source color", got)
	}
}
