package media

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"image-collage/internal/filesystem"
	"image-collage/internal/logging"
)

// jpegPadding is added to width*height zero bytes when completing a cut-off
// JPEG scan, so tiny images still get a full MCU of padding.
const jpegPadding = 4096

// maxPartialPixelBytes bounds the raw PNG buffer rebuilt for a truncated file.
const maxPartialPixelBytes = 1 << 31

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	jpegEOI      = []byte{0xFF, 0xD9}

	errNoPartialDecoder = errors.New("no partial decoder for format")
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// decodePartial decodes a JPEG or PNG whose data ends early. The missing
// tail is filled with zeros, so absent rows come out as filler instead of
// failing the file. The header must be intact.
func (l *Loader) decodePartial(path string) (image.Image, string, error) {
	file, err := filesystem.OpenWithRetry(path, l.config.Retry)
	if err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(file)
	if closeErr := file.Close(); closeErr != nil {
		logging.Warn("failed to close image file %s: %v", path, closeErr)
	}
	if err != nil {
		return nil, "", err
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	var img image.Image
	switch format {
	case "jpeg":
		img, err = decodePartialJPEG(data, config)
	case "png":
		img, err = decodePartialPNG(data)
	default:
		return nil, "", fmt.Errorf("%w %s", errNoPartialDecoder, format)
	}
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

// decodePartialJPEG completes the entropy-coded scan with zero bits and an
// EOI marker. Zero bits always form valid Huffman codes, and the decoder
// skips the padding left over once every block is filled.
func decodePartialJPEG(data []byte, config image.Config) (image.Image, error) {
	pad := int64(config.Width)*int64(config.Height) + jpegPadding
	r := io.MultiReader(
		bytes.NewReader(data),
		io.LimitReader(zeroReader{}, pad),
		bytes.NewReader(jpegEOI),
	)
	return jpeg.Decode(r)
}

// decodePartialPNG inflates whatever IDAT data is present, pads the pixel
// rows with zeros and re-encodes a well-formed file for image/png.
func decodePartialPNG(data []byte) (image.Image, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errors.New("missing PNG signature")
	}

	var header, idat bytes.Buffer
	header.Write(pngSignature)
	var ihdr []byte

	rest := data[len(pngSignature):]
	for len(rest) >= 8 {
		length := int64(binary.BigEndian.Uint32(rest[:4]))
		typ := string(rest[4:8])
		body := rest[8:]
		complete := length+4 <= int64(len(body))

		if typ == "IDAT" {
			idat.Write(body[:min(length, int64(len(body)))])
		} else if typ == "IEND" {
			break
		} else if complete && idat.Len() == 0 {
			// IHDR, PLTE, tRNS and other chunks the pixels depend on.
			header.Write(rest[:8+length+4])
			if typ == "IHDR" {
				ihdr = body[:length]
			}
		}

		if !complete {
			break
		}
		rest = body[length+4:]
	}

	if len(ihdr) < 13 {
		return nil, errors.New("missing PNG header")
	}
	if idat.Len() == 0 {
		return nil, errors.New("no PNG pixel data")
	}
	if ihdr[12] != 0 {
		return nil, errors.New("interlaced PNG cannot be partially decoded")
	}

	size, err := pngRawSize(ihdr)
	if err != nil {
		return nil, err
	}

	zr, err := zlib.NewReader(&idat)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, size)
	n, err := io.ReadFull(zr, raw)
	if n == 0 {
		return nil, fmt.Errorf("no PNG pixel data recovered: %w", err)
	}

	var compressed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compressed, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(header.Bytes())
	writePNGChunk(&out, "IDAT", compressed.Bytes())
	writePNGChunk(&out, "IEND", nil)
	return png.Decode(&out)
}

// pngRawSize returns the length of the filtered, uncompressed pixel stream
// described by an IHDR chunk.
func pngRawSize(ihdr []byte) (int64, error) {
	width := int64(binary.BigEndian.Uint32(ihdr[0:4]))
	height := int64(binary.BigEndian.Uint32(ihdr[4:8]))
	depth := int64(ihdr[8])

	var channels int64
	switch ihdr[9] {
	case 0, 3:
		channels = 1
	case 4:
		channels = 2
	case 2:
		channels = 3
	case 6:
		channels = 4
	default:
		return 0, fmt.Errorf("bad PNG color type %d", ihdr[9])
	}

	rowBytes := 1 + (width*channels*depth+7)/8
	size := rowBytes * height
	if width == 0 || height == 0 || size > maxPartialPixelBytes {
		return 0, fmt.Errorf("unsupported PNG size %dx%d", width, height)
	}
	return size, nil
}

func writePNGChunk(w *bytes.Buffer, typ string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	w.Write(length[:])

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	w.WriteString(typ)
	w.Write(data)

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}
