// Package imageutil converts between the tracker's float32 raster and
// standard library image types, and renders annotated overlays for the
// command line tools.
package imageutil

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"

	"git.sr.ht/~sbinet/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/banshee-data/sparseflow/internal/flow"
)

// crossArm is the marker arm length in pixels for corner overlays.
const crossArm = 4

// LoadGray reads a PNG or JPEG file and converts it to a grayscale
// raster on the 0..255 scale.
func LoadGray(path string) (*flow.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return flow.FromGray(toGrayImage(src)), nil
}

// toGrayImage converts an arbitrary decoded image to *image.Gray.
func toGrayImage(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	gray := image.NewGray(b)
	xdraw.Draw(gray, b, src, b.Min, xdraw.Src)
	return gray
}

// ToGray converts the float raster back to an 8-bit grayscale image,
// clamping values to the 0..255 range.
func ToGray(img *flow.Image) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, img.W, img.H))
	for y := 0; y < img.H; y++ {
		for x := 0; x < img.W; x++ {
			v := img.At(x, y)
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			gray.SetGray(x, y, color.Gray{Y: uint8(v + 0.5)})
		}
	}
	return gray
}

// Resize scales the raster to w x h with Catmull-Rom resampling.
func Resize(img *flow.Image, w, h int) (*flow.Image, error) {
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("resize target %dx%d: %w", w, h, flow.ErrInvalidParameter)
	}
	src := ToGray(img)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return flow.FromGray(dst), nil
}

// SavePNG writes an image to path in PNG format.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// AnnotateCorners draws a green cross at each detected corner over the
// frame and writes the result to path as PNG.
func AnnotateCorners(img *flow.Image, pts []flow.Point, path string) error {
	dc := gg.NewContextForImage(ToGray(img))
	dc.SetRGB(0, 1, 0)
	dc.SetLineWidth(1)
	for _, p := range pts {
		x, y := float64(p.X), float64(p.Y)
		dc.DrawLine(x-crossArm, y, x+crossArm, y)
		dc.DrawLine(x, y-crossArm, x, y+crossArm)
	}
	dc.Stroke()
	return dc.SavePNG(path)
}

// DrawFlowField renders displacement vectors over the previous frame:
// green segments ending in a dot for tracked points, red circles at
// the seed position for lost ones. The result is written to path.
func DrawFlowField(img *flow.Image, pts []flow.Point, results []flow.FlowResult, path string) error {
	if len(pts) != len(results) {
		return fmt.Errorf("points and results length mismatch: %d vs %d", len(pts), len(results))
	}

	dc := gg.NewContextForImage(ToGray(img))
	dc.SetLineWidth(1)

	dc.SetRGB(0, 1, 0)
	for i, r := range results {
		if r.Status != flow.StatusTracked {
			continue
		}
		dc.DrawLine(float64(pts[i].X), float64(pts[i].Y), float64(r.X), float64(r.Y))
	}
	dc.Stroke()

	for _, r := range results {
		if r.Status != flow.StatusTracked {
			continue
		}
		dc.DrawCircle(float64(r.X), float64(r.Y), 1.5)
	}
	dc.Fill()

	dc.SetRGB(1, 0, 0)
	for i, r := range results {
		if r.Status == flow.StatusTracked {
			continue
		}
		dc.DrawCircle(float64(pts[i].X), float64(pts[i].Y), 2.5)
	}
	dc.Stroke()

	return dc.SavePNG(path)
}
