// Package media loads image files into scaled, fingerprinted records.
//
// A Loader reads a file's creation time, decodes it (falling back to libvips
// for inputs the Go decoders reject), hashes the decoded pixels, normalizes
// the color mode and downscales with a Lanczos filter. Decoded full-size
// buffers do not outlive Load; only the scaled image is retained.
package media
