package media

import (
	"errors"
	"image"
	"time"
)

// DefaultScaleFactor halves both dimensions of every loaded image.
const DefaultScaleFactor = 0.5

// DefaultMaxSourcePixels rejects decompression bombs before decoding.
const DefaultMaxSourcePixels = 178_956_970

var (
	// ErrMetadataUnavailable is returned when the file's creation time cannot
	// be read.
	ErrMetadataUnavailable = errors.New("creation time unavailable")
	// ErrDecodeFailed covers missing, unreadable and undecodable files.
	ErrDecodeFailed = errors.New("decode failed")
)

// Record is one successfully loaded image.
type Record struct {
	// Index is the submission position, assigned by the dispatcher.
	Index int
	Path  string
	// Name is the base name, the key for name-based duplicate removal.
	Name        string
	Created     time.Time
	Fingerprint Fingerprint
	// SourceMode is the mode the decoder produced; Mode is after conversion
	// and is always ModeRGB or ModeRGBA.
	SourceMode ColorMode
	Mode       ColorMode
	Format     string
	Width      int
	Height     int
	Image      *image.NRGBA
}

// Size returns the scaled dimensions. It stays valid after Release.
func (r *Record) Size() image.Point {
	return image.Pt(r.Width, r.Height)
}

// HasAlpha reports whether the record carries a meaningful alpha channel.
func (r *Record) HasAlpha() bool {
	return r.Mode == ModeRGBA
}

// Release drops the pixel buffer once it has been pasted.
func (r *Record) Release() {
	r.Image = nil
}

// ScaledSize applies factor to both dimensions, flooring and never going
// below one pixel.
func ScaledSize(width, height int, factor float64) (int, int) {
	w := int(float64(width) * factor)
	h := int(float64(height) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
