package monitor

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sparseflow/internal/flow"
)

// responseGrid adapts a corner response plane to the plotter grid
// interface. Rows are flipped so image row 0 appears at the top.
type responseGrid struct {
	w, h int
	resp []float32
}

func (g responseGrid) Dims() (c, r int)   { return g.w, g.h }
func (g responseGrid) X(c int) float64    { return float64(c) }
func (g responseGrid) Y(r int) float64    { return float64(r) }
func (g responseGrid) Z(c, r int) float64 { return float64(g.resp[(g.h-1-r)*g.w+c]) }

// SaveResponseHeatmap renders the corner response of img as a heat map
// PNG at path. blockSize is the smoothing window passed through to the
// response computation.
func SaveResponseHeatmap(img *flow.Image, blockSize int, path string) error {
	if img.Empty() {
		return fmt.Errorf("empty image")
	}

	resp := flow.CornerResponse(img, blockSize)
	grid := responseGrid{w: img.W, h: img.H, resp: resp}

	p := plot.New()
	p.Title.Text = "Corner Response"
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 255))
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save heatmap: %w", err)
	}
	return nil
}
