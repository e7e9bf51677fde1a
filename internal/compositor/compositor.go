// Package compositor pastes scaled records into a collage canvas.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"image-collage/internal/layout"
	"image-collage/internal/logging"
	"image-collage/internal/media"
	"image-collage/internal/metrics"

	"golang.org/x/image/draw"
)

const (
	// DefaultMaxDimension is the largest canvas side the PNG writer and most
	// viewers accept.
	DefaultMaxDimension = 65500

	// ProgressStart and ProgressSpan place compositing at 70-95% of a run.
	ProgressStart = 70
	ProgressSpan  = 25

	progressEvery = 10
)

// ErrDimensionLimitExceeded is wrapped by every *DimensionError.
var ErrDimensionLimitExceeded = errors.New("collage dimensions exceed limit")

// DimensionError reports a canvas that would be too large.
type DimensionError struct {
	Width, Height int64
	Limit         int
	// PixelLimit is set when the total pixel budget was the constraint.
	PixelLimit int64
}

func (e *DimensionError) Error() string {
	if e.PixelLimit > 0 {
		return fmt.Sprintf("collage dimensions (%dx%d) exceed the %d pixel budget", e.Width, e.Height, e.PixelLimit)
	}
	return fmt.Sprintf("collage dimensions (%dx%d) exceed the limit of %d px", e.Width, e.Height, e.Limit)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionLimitExceeded
}

// ProgressFunc receives overall pipeline percentages with a status line.
type ProgressFunc func(percent int, message string)

// Config bounds the canvas.
type Config struct {
	// MaxDimension caps each canvas side. Zero means DefaultMaxDimension.
	MaxDimension int
	// MaxPixels caps width*height. Zero disables the check.
	MaxPixels int64
}

// Compositor builds collages. It is stateless between calls.
type Compositor struct {
	config Config
}

// New creates a compositor.
func New(config Config) *Compositor {
	if config.MaxDimension <= 0 {
		config.MaxDimension = DefaultMaxDimension
	}
	return &Compositor{config: config}
}

// CheckSize validates the canvas a grid needs without allocating it.
func (c *Compositor) CheckSize(grid layout.Grid) error {
	w, h := grid.CanvasSize()
	if w > int64(c.config.MaxDimension) || h > int64(c.config.MaxDimension) {
		return &DimensionError{Width: w, Height: h, Limit: c.config.MaxDimension}
	}
	if c.config.MaxPixels > 0 && w*h > c.config.MaxPixels {
		return &DimensionError{Width: w, Height: h, Limit: c.config.MaxDimension, PixelLimit: c.config.MaxPixels}
	}
	return nil
}

// Compose pastes records into grid cells row by row, each centered in its
// cell on an opaque black canvas. Each record is released as soon as it has
// been pasted. Cancellation is checked before every paste.
func (c *Compositor) Compose(ctx context.Context, grid layout.Grid, records []*media.Record, progress ProgressFunc) (*image.RGBA, error) {
	if len(records) == 0 || len(records) > grid.Cols*grid.Rows {
		return nil, fmt.Errorf("%w: %d records for %s", layout.ErrInvalidDimensions, len(records), grid)
	}
	if err := c.CheckSize(grid); err != nil {
		return nil, err
	}

	w, h := grid.CanvasSize()
	canvas := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	metrics.CanvasPixels.Observe(float64(w * h))

	total := len(records)
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rec.Image == nil {
			return nil, fmt.Errorf("record %s has no pixel data", rec.Name)
		}

		paste(canvas, grid.Placement(i, rec.Size()), rec)
		rec.Release()

		pasted := i + 1
		if progress != nil && (pasted%progressEvery == 0 || pasted == total) {
			progress(PastePercent(pasted, total), fmt.Sprintf("Assembling collage: %d/%d", pasted, total))
		}
	}

	return canvas, nil
}

// PastePercent maps paste completions onto 70-95%.
func PastePercent(pasted, total int) int {
	if total <= 0 {
		return ProgressStart
	}
	return ProgressStart + pasted*ProgressSpan/total
}

func paste(canvas *image.RGBA, dst image.Rectangle, rec *media.Record) {
	src := rec.Image
	if !rec.HasAlpha() {
		draw.Draw(canvas, dst, src, src.Bounds().Min, draw.Src)
		return
	}

	mask, err := splitAlpha(src)
	if err != nil {
		logging.Warn("Pasting %s without transparency: %v", rec.Name, err)
		metrics.PasteDegradedTotal.Inc()
		draw.Draw(canvas, dst, opaque{src}, src.Bounds().Min, draw.Src)
		return
	}
	draw.DrawMask(canvas, dst, src, src.Bounds().Min, mask, mask.Bounds().Min, draw.Over)
}

// splitAlpha moves img's alpha channel into a separate mask and leaves img
// fully opaque, so the mask is applied exactly once.
func splitAlpha(img *image.NRGBA) (*image.Alpha, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	if need := img.PixOffset(b.Min.X, b.Max.Y-1) + b.Dx()*4; len(img.Pix) < need {
		return nil, fmt.Errorf("pixel buffer holds %d bytes, need %d", len(img.Pix), need)
	}

	mask := image.NewAlpha(b)
	for y := 0; y < b.Dy(); y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+b.Dx()*4]
		out := mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()]
		for x := range out {
			out[x] = row[x*4+3]
			row[x*4+3] = 0xff
		}
	}
	return mask, nil
}

// opaque presents an image with its alpha channel ignored.
type opaque struct {
	image.Image
}

func (o opaque) ColorModel() color.Model { return color.NRGBAModel }

func (o opaque) At(x, y int) color.Color {
	c := color.NRGBAModel.Convert(o.Image.At(x, y)).(color.NRGBA)
	c.A = 0xff
	return c
}
