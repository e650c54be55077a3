package flow

import (
	"math"
	"math/rand"
)

// Synthetic inputs shared across the package tests. Everything here is
// seeded or analytic, so test runs are reproducible.

// flatImage returns a w x h image filled with a single intensity.
func flatImage(w, h int, v float32) *Image {
	img := NewImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// rampImage returns an image whose intensity grows linearly along x
// and y with the given per-pixel slopes.
func rampImage(w, h int, slopeX, slopeY float32) *Image {
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*w+x] = slopeX*float32(x) + slopeY*float32(y)
		}
	}
	return img
}

// cornerImage returns a dark w x h image with one bright quadrant
// covering x >= cx, y >= cy. The quadrant's top-left corner is the
// only corner in frame; its geometric position is the pixel boundary
// (cx-0.5, cy-0.5).
func cornerImage(w, h, cx, cy int) *Image {
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= cx && y >= cy {
				img.Pix[y*w+x] = 200
			} else {
				img.Pix[y*w+x] = 20
			}
		}
	}
	return img
}

// texturedImage returns a deterministic synthetic texture with
// gradient energy in every direction, suitable for detection and flow
// recovery tests.
func texturedImage(w, h int, seed int64) *Image {
	rng := rand.New(rand.NewSource(seed))
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 128 +
				55*math.Sin(float64(x)*0.35) +
				45*math.Cos(float64(y)*0.27) +
				25*math.Sin(float64(x+y)*0.15) +
				rng.Float64()*8 - 4
			img.Pix[y*w+x] = float32(v)
		}
	}
	return img
}

// crop copies a w x h window of src with its top-left at (ox, oy).
func crop(src *Image, ox, oy, w, h int) *Image {
	dst := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[y*w+x] = src.Pix[(oy+y)*src.W+ox+x]
		}
	}
	return dst
}

// shiftedPair cuts two w x h views from one larger texture so that
// content moves by exactly (dx, dy) pixels from prev to next. The
// shift must stay within the internal margin.
func shiftedPair(w, h, dx, dy int, seed int64) (prev, next *Image) {
	const margin = 16
	big := texturedImage(w+2*margin, h+2*margin, seed)
	prev = crop(big, margin, margin, w, h)
	next = crop(big, margin-dx, margin-dy, w, h)
	return prev, next
}
