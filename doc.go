// Command image-collage builds a single grid collage from a set of images.
//
// Usage:
//
//	image-collage build [flags] <image|dir>...
//	image-collage serve [flags]
//	image-collage history [--limit N] [--json]
//	image-collage version
//
// build loads every input in parallel, drops duplicates by content and by
// file name, lays the survivors out on a near-square grid and writes one PNG
// to the output directory. The path of the written file is printed on stdout.
//
// serve exposes the same pipeline as an HTTP API under /api/collages, with
// run history under /api/history and Prometheus metrics on /metrics. Clients
// name input files and output directories on the server, so it listens on
// loopback unless HOST or --host says otherwise.
//
// Configuration comes from COLLAGE_* environment variables, DATABASE_DIR,
// VIPS_ENABLED, HOST, PORT and METRICS_ENABLED; flags override them.
package main
