package flow

import (
	"errors"
	"math"
	"testing"
)

func TestBuildPyramid_DimensionLaw(t *testing.T) {
	img := texturedImage(101, 64, 5)
	p, err := BuildPyramid(img, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Depth() != 4 {
		t.Fatalf("Depth = %d, want 4", p.Depth())
	}

	// Every level halves its predecessor by floor division.
	for i := 1; i < p.Depth(); i++ {
		prev, cur := p.Level(i-1), p.Level(i)
		if cur.W != prev.W/2 || cur.H != prev.H/2 {
			t.Errorf("level %d = %dx%d, want %dx%d", i, cur.W, cur.H, prev.W/2, prev.H/2)
		}
	}
	if p.Level(3).W != 12 || p.Level(3).H != 8 {
		t.Errorf("level 3 = %dx%d, want 12x8", p.Level(3).W, p.Level(3).H)
	}
}

func TestBuildPyramid_SingleLevelEqualsInput(t *testing.T) {
	img := texturedImage(32, 24, 9)
	p, err := BuildPyramid(img, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Depth() != 1 {
		t.Fatalf("Depth = %d, want 1", p.Depth())
	}

	base := p.Base()
	for i := range img.Pix {
		if base.Pix[i] != img.Pix[i] {
			t.Fatalf("base pixel %d = %v, want %v", i, base.Pix[i], img.Pix[i])
		}
	}
}

func TestBuildPyramid_OwnsItsLevels(t *testing.T) {
	img := flatImage(16, 16, 100)
	p, err := BuildPyramid(img, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The pyramid holds a private copy of the base, so mutating the
	// caller's buffer must not leak in.
	img.Pix[0] = -500
	if p.Base().Pix[0] != 100 {
		t.Errorf("base pixel 0 = %v after caller mutation, want 100", p.Base().Pix[0])
	}
}

func TestBuildPyramid_StopsBeforeTinyLevels(t *testing.T) {
	img := flatImage(16, 16, 1)
	p, err := BuildPyramid(img, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 16 -> 8 -> 4; the next halving would drop below the minimum
	// usable window.
	if p.Depth() != 3 {
		t.Errorf("Depth = %d, want 3", p.Depth())
	}
	last := p.Level(p.Depth() - 1)
	if last.W < MinWindowSize || last.H < MinWindowSize {
		t.Errorf("last level %dx%d smaller than minimum window %d", last.W, last.H, MinWindowSize)
	}
}

func TestBuildPyramid_Validation(t *testing.T) {
	img := flatImage(8, 8, 0)

	if _, err := BuildPyramid(img, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("levels=0 error = %v, want ErrInvalidParameter", err)
	}
	if _, err := BuildPyramid(nil, 3); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("nil image error = %v, want ErrInvalidParameter", err)
	}
	if _, err := BuildPyramid(&Image{}, 3); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("empty image error = %v, want ErrInvalidParameter", err)
	}
}

func TestDownsample_Averages2x2Blocks(t *testing.T) {
	src := NewImage(4, 4)
	src.Pix = []float32{
		10, 20, 100, 200,
		30, 40, 300, 400,
		1, 2, 5, 6,
		3, 4, 7, 8,
	}

	dst := downsample(src)
	if dst.W != 2 || dst.H != 2 {
		t.Fatalf("dims = %dx%d, want 2x2", dst.W, dst.H)
	}
	want := []float32{25, 250, 2.5, 6.5}
	for i := range want {
		if math.Abs(float64(dst.Pix[i]-want[i])) > 1e-4 {
			t.Errorf("pixel %d = %v, want %v", i, dst.Pix[i], want[i])
		}
	}
}

func TestDownsample_OddDimensionsDropTrailing(t *testing.T) {
	src := flatImage(5, 7, 9)
	dst := downsample(src)
	if dst.W != 2 || dst.H != 3 {
		t.Fatalf("dims = %dx%d, want 2x3", dst.W, dst.H)
	}
	for i, v := range dst.Pix {
		if v != 9 {
			t.Errorf("pixel %d = %v, want 9", i, v)
		}
	}
}
