// Package mediatypes defines which source image files the collage pipeline
// accepts. Callers filter their input with IsSupportedImage or
// FilterSupported before starting a run.
package mediatypes

import (
	"path/filepath"
	"strings"
)

// ImageFormat names a decodable source format.
type ImageFormat string

const (
	// FormatPNG is Portable Network Graphics.
	FormatPNG ImageFormat = "png"
	// FormatJPEG is JPEG/JFIF.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is WebP (lossy or lossless).
	FormatWebP ImageFormat = "webp"
	// FormatBMP is Windows bitmap.
	FormatBMP ImageFormat = "bmp"
	// FormatGIF is GIF; only the first frame is used.
	FormatGIF ImageFormat = "gif"
	// FormatTIFF is TIFF.
	FormatTIFF ImageFormat = "tiff"
	// FormatUnknown marks an unsupported extension.
	FormatUnknown ImageFormat = ""
)

// ImageExtensions maps lowercase file extensions to their image format.
var ImageExtensions = map[string]ImageFormat{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".webp": FormatWebP,
	".bmp":  FormatBMP,
	".gif":  FormatGIF,
	".tiff": FormatTIFF,
	".tif":  FormatTIFF,
}

// MimeTypes maps image formats to their MIME types.
var MimeTypes = map[ImageFormat]string{
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatWebP: "image/webp",
	FormatBMP:  "image/bmp",
	FormatGIF:  "image/gif",
	FormatTIFF: "image/tiff",
}

// GetFormat returns the image format for a file path, matching the
// extension case-insensitively. Returns FormatUnknown for anything else.
func GetFormat(path string) ImageFormat {
	return ImageExtensions[strings.ToLower(filepath.Ext(path))]
}

// GetMimeType returns the MIME type for a file path.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(path string) string {
	if mime, ok := MimeTypes[GetFormat(path)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsSupportedImage reports whether path has an accepted image extension.
func IsSupportedImage(path string) bool {
	return GetFormat(path) != FormatUnknown
}

// FilterSupported splits paths into accepted images and rejected files,
// preserving the input order within each group.
func FilterSupported(paths []string) (kept, skipped []string) {
	kept = make([]string, 0, len(paths))
	for _, p := range paths {
		if IsSupportedImage(p) {
			kept = append(kept, p)
		} else {
			skipped = append(skipped, p)
		}
	}
	return kept, skipped
}
