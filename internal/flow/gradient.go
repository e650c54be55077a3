package flow

// scharrNorm rescales raw 3x3 Scharr responses (weights 3/10/3) back
// onto the intensity scale. Detector and tracker both rely on this so
// their thresholds share one unit.
const scharrNorm = 1.0 / 32.0

// Gradients computes per-pixel horizontal (x) and vertical (y) Scharr
// derivatives of img. Border neighbourhoods use clamped edge
// extension, so the output covers every pixel and has the input's
// dimensions.
func Gradients(img *Image) (gx, gy *Image) {
	w, h := img.W, img.H
	gx = NewImage(w, h)
	gy = NewImage(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p00 := img.At(x-1, y-1)
			p10 := img.At(x, y-1)
			p20 := img.At(x+1, y-1)
			p01 := img.At(x-1, y)
			p21 := img.At(x+1, y)
			p02 := img.At(x-1, y+1)
			p12 := img.At(x, y+1)
			p22 := img.At(x+1, y+1)

			sx := 3*(p20-p00) + 10*(p21-p01) + 3*(p22-p02)
			sy := 3*(p02-p00) + 10*(p12-p10) + 3*(p22-p20)

			i := y*w + x
			gx.Pix[i] = sx * scharrNorm
			gy.Pix[i] = sy * scharrNorm
		}
	}
	return gx, gy
}

// StructureTensor holds the smoothed per-pixel gradient products of
// one image: Ixx, Ixy and Iyy planes with the image's dimensions,
// row-major like Image.Pix.
type StructureTensor struct {
	W, H          int
	Ixx, Ixy, Iyy []float32
}

// ComputeStructureTensor derives gradients of img and box-averages
// their per-pixel products over a blockSize window. blockSize must be
// odd and >= MinWindowSize; callers validate it.
func ComputeStructureTensor(img *Image, blockSize int) *StructureTensor {
	gx, gy := Gradients(img)

	n := img.W * img.H
	st := &StructureTensor{
		W:   img.W,
		H:   img.H,
		Ixx: make([]float32, n),
		Ixy: make([]float32, n),
		Iyy: make([]float32, n),
	}
	for i := 0; i < n; i++ {
		ix := gx.Pix[i]
		iy := gy.Pix[i]
		st.Ixx[i] = ix * ix
		st.Ixy[i] = ix * iy
		st.Iyy[i] = iy * iy
	}

	r := blockSize / 2
	boxSmooth(st.Ixx, st.W, st.H, r)
	boxSmooth(st.Ixy, st.W, st.H, r)
	boxSmooth(st.Iyy, st.W, st.H, r)
	return st
}

// boxSmooth averages a plane in place with a separable box filter of
// the given radius, using a sliding window per row and column. Taps
// beyond the border clamp to the edge sample, matching the border
// policy of At and SampleBilinear.
func boxSmooth(plane []float32, w, h, r int) {
	if r <= 0 {
		return
	}
	norm := 1.0 / float32(2*r+1)

	row := make([]float32, w)
	for y := 0; y < h; y++ {
		base := y * w
		copy(row, plane[base:base+w])

		var sum float32
		for i := -r; i <= r; i++ {
			sum += row[clampInt(i, 0, w-1)]
		}
		plane[base] = sum * norm
		for x := 1; x < w; x++ {
			sum += row[clampInt(x+r, 0, w-1)] - row[clampInt(x-r-1, 0, w-1)]
			plane[base+x] = sum * norm
		}
	}

	col := make([]float32, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = plane[y*w+x]
		}

		var sum float32
		for i := -r; i <= r; i++ {
			sum += col[clampInt(i, 0, h-1)]
		}
		plane[x] = sum * norm
		for y := 1; y < h; y++ {
			sum += col[clampInt(y+r, 0, h-1)] - col[clampInt(y-r-1, 0, h-1)]
			plane[y*w+x] = sum * norm
		}
	}
}
