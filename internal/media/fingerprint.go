package media

import (
	"encoding/binary"
	"encoding/hex"
	"image"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies decoded pixel content independent of file name and
// encoding.
type Fingerprint [blake2b.Size256]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex digits, for logs.
func (f Fingerprint) Short() string {
	return hex.EncodeToString(f[:6])
}

// ComputeFingerprint hashes img's pixels in canonical 8-bit non-premultiplied
// RGBA form, prefixed by its dimensions. Two images with the same pixels hash
// equal whether they came from PNG, BMP or TIFF.
func ComputeFingerprint(img image.Image) Fingerprint {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return fingerprintNRGBA(nrgba)
	}
	return fingerprintNRGBA(canonicalize(img))
}

func fingerprintNRGBA(img *image.NRGBA) Fingerprint {
	h, _ := blake2b.New256(nil)

	b := img.Bounds()
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(header[4:8], uint32(b.Dy()))
	h.Write(header[:])

	rowLen := b.Dx() * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		h.Write(img.Pix[off : off+rowLen])
	}

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}
