// Package wobsite builds static websites from Markdown documents and assets.
//
// A build starts by scanning the source directory into an Index: every
// regular file, with a SHA-256 content hash keyed by the file's site URL
// path. The caller then registers build rules on a Site and waits for the
// spawned jobs to finish. Copy rules place matching files verbatim under
// the output directory. Page rules render Markdown documents into HTML,
// and a generate rule produces one derived file such as a feed. Jobs run
// concurrently and independently; a failure is isolated to its job and
// collected into a single Errors report.
//
// Rendered pages pass through an asset link rewriter that appends a
// cache-busting ?hash= query parameter to stylesheet, icon, preload, image
// and script references whose target is present in the Index.
package wobsite
