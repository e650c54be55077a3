// Package sparseflow computes sparse optical flow between grayscale
// frames: Shi-Tomasi corner detection picks trackable points, and a
// pyramidal Lucas-Kanade solver estimates their displacement into the
// next frame with an explicit per-point TRACKED/LOST status.
//
// The implementation lives in internal/flow; this package re-exports
// the stable surface so callers never import internal packages.
//
// Coordinates are level-0 pixels, origin top-left, x = column,
// y = row. Pyramid level 0 is the finest resolution. All operations
// are deterministic: the same inputs produce bit-identical outputs,
// regardless of worker count.
package sparseflow
