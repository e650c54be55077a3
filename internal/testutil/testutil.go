// Package testutil provides shared test utilities and fixtures.
//
// This package centralises synthetic image generation and small
// assertion helpers to reduce duplication across test files.
package testutil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/sparseflow/internal/flow"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Flat returns a w x h image filled with a single intensity.
func Flat(w, h int, v float32) *flow.Image {
	img := flow.NewImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// Corner returns a dark w x h image with one bright quadrant covering
// x >= cx, y >= cy, so the quadrant's top-left corner is the only
// corner in frame.
func Corner(w, h, cx, cy int) *flow.Image {
	img := flow.NewImage(w, h)
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

// Textured returns a deterministic synthetic texture with gradient
// energy in every direction. The same seed always produces the same
// image.
func Textured(w, h int, seed int64) *flow.Image {
	rng := rand.New(rand.NewSource(seed))
	img := flow.NewImage(w, h)
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

// ShiftedPair cuts two w x h views from one larger texture so that
// content moves by exactly (dx, dy) pixels from prev to next. Shifts
// must stay within the 16 pixel margin.
func ShiftedPair(w, h, dx, dy int, seed int64) (prev, next *flow.Image) {
	const margin = 16
	big := Textured(w+2*margin, h+2*margin, seed)
	prev = cropImage(big, margin, margin, w, h)
	next = cropImage(big, margin-dx, margin-dy, w, h)
	return prev, next
}

func cropImage(src *flow.Image, ox, oy, w, h int) *flow.Image {
	dst := flow.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[y*w+x] = src.Pix[(oy+y)*src.W+ox+x]
		}
	}
	return dst
}
