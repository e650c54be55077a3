package flow

import "fmt"

// Pyramid is a multi-resolution image series. Levels[0] is the finest
// (original resolution); each further level halves both dimensions by
// floor division. The pyramid exclusively owns its level images,
// including a private copy of the base, so callers may reuse their
// input buffer after construction.
type Pyramid struct {
	Levels []*Image
}

// BuildPyramid constructs a pyramid with up to levels entries. Every
// level past the base applies a 2x2 box average fused with the 2x
// decimation; the smoothing is fixed across calls, so two pyramids
// built with the same requested depth stay level-compatible for
// tracking.
//
// Construction stops early once the next level would be narrower or
// shorter than MinWindowSize, so Depth may come back smaller than
// requested.
func BuildPyramid(img *Image, levels int) (*Pyramid, error) {
	if img.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidParameter)
	}
	if levels < 1 {
		return nil, fmt.Errorf("%w: pyramid levels %d, want >= 1", ErrInvalidParameter, levels)
	}

	p := &Pyramid{Levels: make([]*Image, 1, levels)}
	p.Levels[0] = img.Clone()

	for len(p.Levels) < levels {
		prev := p.Levels[len(p.Levels)-1]
		if prev.W/2 < MinWindowSize || prev.H/2 < MinWindowSize {
			break
		}
		p.Levels = append(p.Levels, downsample(prev))
	}
	return p, nil
}

// downsample halves both dimensions, averaging each 2x2 source block
// into one destination pixel. Odd trailing rows and columns are
// dropped by the floor division.
func downsample(src *Image) *Image {
	w, h := src.W/2, src.H/2
	dst := NewImage(w, h)

	for y := 0; y < h; y++ {
		sy := 2 * y
		for x := 0; x < w; x++ {
			sx := 2 * x
			sum := src.Pix[sy*src.W+sx] +
				src.Pix[sy*src.W+sx+1] +
				src.Pix[(sy+1)*src.W+sx] +
				src.Pix[(sy+1)*src.W+sx+1]
			dst.Pix[y*w+x] = sum * 0.25
		}
	}
	return dst
}

// Depth returns the number of levels actually built.
func (p *Pyramid) Depth() int {
	return len(p.Levels)
}

// Level returns the image at index i, 0 = finest.
func (p *Pyramid) Level(i int) *Image {
	return p.Levels[i]
}

// Base returns the finest (original resolution) level.
func (p *Pyramid) Base() *Image {
	return p.Levels[0]
}
