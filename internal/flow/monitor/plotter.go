// Package monitor renders diagnostic plots and aggregates statistics
// for optical flow runs. It is used by the command line tools to
// produce per-frame flow field images, corner response heat maps, and
// sequence-level summaries.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sparseflow/internal/flow"
)

// magnitudeBuckets is the number of displacement magnitude bands used
// to colour flow vectors.
const magnitudeBuckets = 6

// FlowPlotter records per-frame tracking outcomes for visualisation.
// Call Record once per frame pair during a sequence run, then
// GeneratePlots to produce one flow field PNG per frame.
type FlowPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	frames    []FrameRecord
}

// FrameRecord holds one frame pair's tracking outcome.
type FrameRecord struct {
	FrameIdx  int
	Timestamp time.Time
	Points    []flow.Point
	Results   []flow.FlowResult
}

// NewFlowPlotter creates a plotter. It stays disabled until Start.
func NewFlowPlotter() *FlowPlotter {
	return &FlowPlotter{}
}

// Start initialises the plotter for a new run.
// outputDir should be a timestamped directory (e.g. "plots/seq-001/20260825_101500").
func (fp *FlowPlotter) Start(outputDir string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	fp.outputDir = outputDir
	fp.enabled = true
	fp.frames = nil
	return nil
}

// Stop disables recording. Call GeneratePlots to produce output files.
func (fp *FlowPlotter) Stop() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (fp *FlowPlotter) IsEnabled() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.enabled
}

// Record captures one frame pair's outcome. Points and results must be
// aligned 1:1; mismatched or empty input is ignored.
func (fp *FlowPlotter) Record(points []flow.Point, results []flow.FlowResult) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if !fp.enabled || len(points) == 0 || len(points) != len(results) {
		return
	}

	rec := FrameRecord{
		FrameIdx:  len(fp.frames),
		Timestamp: time.Now(),
		Points:    append([]flow.Point(nil), points...),
		Results:   append([]flow.FlowResult(nil), results...),
	}
	fp.frames = append(fp.frames, rec)
}

// FrameCount returns the number of recorded frames.
func (fp *FlowPlotter) FrameCount() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return len(fp.frames)
}

// GetOutputDir returns the current output directory for plots.
func (fp *FlowPlotter) GetOutputDir() string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.outputDir
}

// GeneratePlots creates one flow field PNG per recorded frame.
// Returns the number of plots generated and any error.
func (fp *FlowPlotter) GeneratePlots() (int, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}

	plotCount := 0
	for _, rec := range fp.frames {
		if err := fp.generateFramePlot(rec); err != nil {
			return plotCount, fmt.Errorf("frame %d: %w", rec.FrameIdx, err)
		}
		plotCount++
	}

	return plotCount, nil
}

// generateFramePlot renders one frame's displacement vectors, coloured
// by magnitude band, with lost points marked separately.
func (fp *FlowPlotter) generateFramePlot(rec FrameRecord) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Frame %d - Flow Field", rec.FrameIdx)
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"

	// Find the magnitude range across tracked points.
	maxMag := 0.0
	for i, r := range rec.Results {
		if r.Status != flow.StatusTracked {
			continue
		}
		dx := float64(r.X - rec.Points[i].X)
		dy := float64(r.Y - rec.Points[i].Y)
		if m := math.Hypot(dx, dy); m > maxMag {
			maxMag = m
		}
	}

	colors := generateColors(magnitudeBuckets)
	bucketWidth := maxMag / magnitudeBuckets
	if bucketWidth == 0 {
		bucketWidth = 1
	}
	labelled := make([]bool, magnitudeBuckets)

	for i, r := range rec.Results {
		if r.Status != flow.StatusTracked {
			continue
		}
		x0, y0 := float64(rec.Points[i].X), float64(rec.Points[i].Y)
		x1, y1 := float64(r.X), float64(r.Y)

		bucket := int(math.Hypot(x1-x0, y1-y0) / bucketWidth)
		if bucket >= magnitudeBuckets {
			bucket = magnitudeBuckets - 1
		}

		line, err := plotter.NewLine(plotter.XYs{{X: x0, Y: y0}, {X: x1, Y: y1}})
		if err != nil {
			return err
		}
		line.Color = colors[bucket]
		line.Width = vg.Points(1)
		p.Add(line)

		if !labelled[bucket] {
			label := fmt.Sprintf("%.1f-%.1fpx", float64(bucket)*bucketWidth, float64(bucket+1)*bucketWidth)
			p.Legend.Add(label, line)
			labelled[bucket] = true
		}
	}

	// Mark lost points at their seed position.
	lostPts := make(plotter.XYs, 0)
	for i, r := range rec.Results {
		if r.Status == flow.StatusTracked {
			continue
		}
		lostPts = append(lostPts, plotter.XY{X: float64(rec.Points[i].X), Y: float64(rec.Points[i].Y)})
	}
	if len(lostPts) > 0 {
		scatter, err := plotter.NewScatter(lostPts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add("lost", scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	file := filepath.Join(fp.outputDir, fmt.Sprintf("frame_%04d_flow.png", rec.FrameIdx))
	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return fmt.Errorf("save flow plot: %w", err)
	}

	return nil
}

// generateColors creates a palette of distinct colours for vector bands.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir creates a timestamped output directory path.
// For a named sequence: plots/<name>/<timestamp>
// Otherwise: plots/run_<timestamp>
func MakePlotOutputDir(baseDir, seqName string) string {
	ts := FormatTimestamp(time.Now())
	if seqName != "" {
		return filepath.Join(baseDir, seqName, ts)
	}
	return filepath.Join(baseDir, "run_"+ts)
}
