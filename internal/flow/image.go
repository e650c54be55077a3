package flow

import (
	"fmt"
	"image"
	"math"
)

// Image is a single-channel raster with float32 samples. Intensities
// keep the 8-bit 0..255 scale of the source frame; conversion happens
// once at construction so every downstream stage shares one numeric
// representation.
//
// Samples are stored row-major: pixel (x, y) lives at Pix[y*W+x].
// Coordinates follow the raster convention, origin top-left,
// x = column, y = row. Treat an Image as read-only after construction.
type Image struct {
	W, H int
	Pix  []float32
}

// NewImage allocates a zeroed w x h image. Non-positive dimensions
// produce an empty image, which every entry point rejects as invalid.
func NewImage(w, h int) *Image {
	if w <= 0 || h <= 0 {
		return &Image{}
	}
	return &Image{W: w, H: h, Pix: make([]float32, w*h)}
}

// FromBytes builds an image from 8-bit intensity samples in row-major
// order.
func FromBytes(w, h int, pix []byte) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: image dimensions %dx%d", ErrInvalidParameter, w, h)
	}
	if len(pix) != w*h {
		return nil, fmt.Errorf("%w: pixel buffer length %d, want %d", ErrInvalidParameter, len(pix), w*h)
	}
	img := NewImage(w, h)
	for i, v := range pix {
		img.Pix[i] = float32(v)
	}
	return img, nil
}

// FromGray converts a standard library grayscale image. The source
// stride is honoured, so subimages convert correctly.
func FromGray(src *image.Gray) *Image {
	if src == nil {
		return &Image{}
	}
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy())
	for y := 0; y < img.H; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < img.W; x++ {
			img.Pix[y*img.W+x] = float32(row[x])
		}
	}
	return img
}

// Empty reports whether the image has no pixels.
func (img *Image) Empty() bool {
	return img == nil || img.W <= 0 || img.H <= 0 || len(img.Pix) == 0
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	dst := &Image{W: img.W, H: img.H, Pix: make([]float32, len(img.Pix))}
	copy(dst.Pix, img.Pix)
	return dst
}

// At returns the sample at (x, y) with clamped (replicate) edge
// extension: out-of-range coordinates read the nearest border pixel.
// The same border policy backs gradients, smoothing and interpolation,
// so the detector and the tracker see identical values near edges.
func (img *Image) At(x, y int) float32 {
	x = clampInt(x, 0, img.W-1)
	y = clampInt(y, 0, img.H-1)
	return img.Pix[y*img.W+x]
}

// SampleBilinear returns the bilinearly interpolated intensity at a
// fractional position. Integer coordinates return the exact sample;
// taps falling outside the image clamp to the border.
func (img *Image) SampleBilinear(x, y float32) float32 {
	x0 := int(math.Floor(float64(x)))
	y0 := int(math.Floor(float64(y)))
	fx := x - float32(x0)
	fy := y - float32(y0)

	p00 := img.At(x0, y0)
	p10 := img.At(x0+1, y0)
	p01 := img.At(x0, y0+1)
	p11 := img.At(x0+1, y0+1)

	top := p00 + (p10-p00)*fx
	bottom := p01 + (p11-p01)*fx
	return top + (bottom-top)*fy
}

// Point is a position on the level-0 image, origin top-left,
// x = column, y = row.
type Point struct {
	X, Y float32
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
