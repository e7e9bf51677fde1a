package media

import (
	"image"

	"github.com/disintegration/imaging"
)

// ColorMode classifies how a decoded image stores its pixels.
type ColorMode int

const (
	// ModeRGB is opaque three-channel color.
	ModeRGB ColorMode = iota
	// ModeRGBA is color with a meaningful alpha channel.
	ModeRGBA
	// ModeGrayscale is single-channel luminance.
	ModeGrayscale
	// ModePalette is palette-indexed color.
	ModePalette
	// ModeOther is anything else (CMYK, ...).
	ModeOther
)

// modeConversions maps each decoded mode to the mode a record is stored in.
var modeConversions = map[ColorMode]ColorMode{
	ModeRGB:       ModeRGB,
	ModeRGBA:      ModeRGBA,
	ModeGrayscale: ModeRGB,
	ModePalette:   ModeRGBA,
	ModeOther:     ModeRGB,
}

func (m ColorMode) String() string {
	switch m {
	case ModeRGB:
		return "RGB"
	case ModeRGBA:
		return "RGBA"
	case ModeGrayscale:
		return "L"
	case ModePalette:
		return "P"
	default:
		return "other"
	}
}

// TargetMode returns the mode that images decoded as m are converted to.
func TargetMode(m ColorMode) ColorMode {
	if target, ok := modeConversions[m]; ok {
		return target
	}
	return ModeRGB
}

type opaquer interface {
	Opaque() bool
}

// DetectMode inspects the concrete type produced by the decoder.
// Premultiplied RGBA buffers count as RGB when every pixel is opaque, which
// is how the PNG decoder returns truecolor images without an alpha channel.
func DetectMode(img image.Image) ColorMode {
	switch src := img.(type) {
	case *image.Paletted:
		return ModePalette
	case *image.Gray, *image.Gray16:
		return ModeGrayscale
	case *image.YCbCr:
		return ModeRGB
	case *image.RGBA, *image.RGBA64:
		if src.(opaquer).Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA:
		return ModeRGBA
	default:
		return ModeOther
	}
}

// NormalizeMode converts a canonical NRGBA buffer in place to the target
// mode of its source mode and returns that target. RGB targets get their
// alpha channel forced opaque; RGBA targets keep it.
func NormalizeMode(canon *image.NRGBA, source ColorMode) ColorMode {
	target := TargetMode(source)
	if target == ModeRGB {
		setOpaque(canon)
	}
	return target
}

// canonicalize returns img as a freshly allocated, zero-origin NRGBA buffer.
func canonicalize(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

func setOpaque(img *image.NRGBA) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 3; i < len(row); i += 4 {
			row[i] = 0xff
		}
	}
}
