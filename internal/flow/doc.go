// Package flow implements the sparse optical flow core: Shi-Tomasi
// corner detection and pyramidal Lucas-Kanade displacement estimation
// over single-channel float32 images.
//
// Responsibilities: gradient and structure tensor computation, image
// pyramid construction, corner selection with non-maximum suppression
// and spacing enforcement, and coarse-to-fine iterative flow solving
// with a per-point TRACKED/LOST status.
// Key types: Image, Pyramid, Point, FlowResult.
//
// The package performs no I/O, keeps no state between calls, and
// treats every input as immutable once constructed. Decoding, drawing
// and persistence live in internal/imageutil and the cmd tools.
package flow
