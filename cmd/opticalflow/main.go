// Package main provides a two-frame optical flow tool.
// It detects corners on the first frame, tracks them into the second
// with pyramidal Lucas-Kanade, and can write a flow field overlay.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/banshee-data/sparseflow/internal/config"
	"github.com/banshee-data/sparseflow/internal/flow"
	"github.com/banshee-data/sparseflow/internal/flow/monitor"
	"github.com/banshee-data/sparseflow/internal/imageutil"
	"github.com/banshee-data/sparseflow/internal/version"
)

// Config holds configuration for the flow run.
type Config struct {
	PrevFile    string
	NextFile    string
	OutputFile  string
	HeatmapFile string
	PlotDir     string
	ConfigFile  string
	OutputJSON  string
	MaxFeatures int
	Levels      int
	ShowVersion bool
}

// FlowVector is one tracked point in the JSON export.
type FlowVector struct {
	X0     float32 `json:"x0"`
	Y0     float32 `json:"y0"`
	X1     float32 `json:"x1"`
	Y1     float32 `json:"y1"`
	Status string  `json:"status"`
}

// FlowRunResult holds the results of a two-frame flow run.
type FlowRunResult struct {
	PrevFile         string       `json:"prev_file"`
	NextFile         string       `json:"next_file"`
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	PyramidLevels    int          `json:"pyramid_levels"`
	PointCount       int          `json:"point_count"`
	TrackedCount     int          `json:"tracked_count"`
	LostCount        int          `json:"lost_count"`
	MeanMagnitude    float64      `json:"mean_magnitude"`
	MedianMagnitude  float64      `json:"median_magnitude"`
	P95Magnitude     float64      `json:"p95_magnitude"`
	MeanDX           float64      `json:"mean_dx"`
	MeanDY           float64      `json:"mean_dy"`
	Vectors          []FlowVector `json:"vectors"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("opticalflow %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if cfg.PrevFile == "" || cfg.NextFile == "" {
		log.Fatal("both -prev and -next images are required")
	}

	result, overlay, err := runFlow(cfg)
	if err != nil {
		log.Fatalf("Flow run failed: %v", err)
	}

	printResults(result)

	if cfg.OutputFile != "" {
		if err := imageutil.DrawFlowField(overlay.img, overlay.points, overlay.results, cfg.OutputFile); err != nil {
			log.Fatalf("Failed to write flow field overlay: %v", err)
		}
		log.Printf("Overlay written to: %s", cfg.OutputFile)
	}

	if cfg.HeatmapFile != "" {
		tuning := loadTuning(cfg.ConfigFile)
		if err := monitor.SaveResponseHeatmap(overlay.img, tuning.GetBlockSize(), cfg.HeatmapFile); err != nil {
			log.Fatalf("Failed to write heatmap: %v", err)
		}
		log.Printf("Heatmap written to: %s", cfg.HeatmapFile)
	}

	if cfg.PlotDir != "" {
		if err := writePlots(cfg.PlotDir, overlay); err != nil {
			log.Printf("Warning: failed to generate plots: %v", err)
		}
	}

	if cfg.OutputJSON != "" {
		if err := exportJSON(result, cfg.OutputJSON); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", cfg.OutputJSON)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.PrevFile, "prev", "", "Path to the first frame (PNG or JPEG)")
	flag.StringVar(&cfg.NextFile, "next", "", "Path to the second frame (PNG or JPEG)")
	flag.StringVar(&cfg.OutputFile, "out", "", "Output path for the flow field overlay PNG")
	flag.StringVar(&cfg.HeatmapFile, "heatmap", "", "Output path for the first frame's corner response heat map PNG")
	flag.StringVar(&cfg.PlotDir, "plots", "", "Base directory for displacement plots (empty = no plots)")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to a tuning JSON file")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g., flow.json)")
	flag.IntVar(&cfg.MaxFeatures, "max", -1, "Maximum corners to track (-1 = use tuning config)")
	flag.IntVar(&cfg.Levels, "levels", -1, "Pyramid levels (-1 = use tuning config)")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	flag.Parse()

	return cfg
}

// overlayData carries what DrawFlowField needs alongside the summary.
type overlayData struct {
	img     *flow.Image
	points  []flow.Point
	results []flow.FlowResult
}

func runFlow(cfg Config) (*FlowRunResult, *overlayData, error) {
	tuning := loadTuning(cfg.ConfigFile)

	prev, err := imageutil.LoadGray(cfg.PrevFile)
	if err != nil {
		return nil, nil, err
	}
	next, err := imageutil.LoadGray(cfg.NextFile)
	if err != nil {
		return nil, nil, err
	}
	if prev.W != next.W || prev.H != next.H {
		return nil, nil, fmt.Errorf("frame sizes differ: %dx%d vs %dx%d", prev.W, prev.H, next.W, next.H)
	}

	levels := cfg.Levels
	if levels < 0 {
		levels = tuning.GetPyramidLevels()
	}

	startTime := time.Now()

	points, err := flow.GoodFeaturesToTrack(prev, tuning.DetectParams())
	if err != nil {
		return nil, nil, err
	}
	maxFeatures := cfg.MaxFeatures
	if maxFeatures < 0 {
		maxFeatures = tuning.GetMaxFeatures()
	}
	if maxFeatures > 0 && len(points) > maxFeatures {
		points = points[:maxFeatures]
	}
	if len(points) == 0 {
		return nil, nil, fmt.Errorf("no trackable corners found in %s", cfg.PrevFile)
	}

	prevPyr, err := flow.BuildPyramid(prev, levels)
	if err != nil {
		return nil, nil, err
	}
	nextPyr, err := flow.BuildPyramid(next, levels)
	if err != nil {
		return nil, nil, err
	}

	results, err := flow.CalcOpticalFlow(prevPyr, nextPyr, points, tuning.TrackParams())
	if err != nil {
		return nil, nil, err
	}

	elapsed := time.Since(startTime)
	stats := monitor.ComputeFlowStats(points, results)

	vectors := make([]FlowVector, len(results))
	for i, r := range results {
		vectors[i] = FlowVector{
			X0:     points[i].X,
			Y0:     points[i].Y,
			X1:     r.X,
			Y1:     r.Y,
			Status: r.Status.String(),
		}
	}

	result := &FlowRunResult{
		PrevFile:         cfg.PrevFile,
		NextFile:         cfg.NextFile,
		Width:            prev.W,
		Height:           prev.H,
		PyramidLevels:    len(prevPyr.Levels),
		PointCount:       len(points),
		TrackedCount:     stats.TrackedCount,
		LostCount:        stats.LostCount,
		MeanMagnitude:    stats.MeanMag,
		MedianMagnitude:  stats.MedianMag,
		P95Magnitude:     stats.P95Mag,
		MeanDX:           stats.MeanDX,
		MeanDY:           stats.MeanDY,
		Vectors:          vectors,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}

	overlay := &overlayData{img: prev, points: points, results: results}
	return result, overlay, nil
}

// writePlots renders the pair's displacement plot under its own
// timestamped directory.
func writePlots(baseDir string, overlay *overlayData) error {
	plotter := monitor.NewFlowPlotter()
	if err := plotter.Start(monitor.MakePlotOutputDir(baseDir, "")); err != nil {
		return err
	}
	plotter.Record(overlay.points, overlay.results)
	plotter.Stop()

	count, err := plotter.GeneratePlots()
	if err != nil {
		return err
	}
	log.Printf("Generated %d plot(s) in %s", count, plotter.GetOutputDir())
	return nil
}

// loadTuning loads the tuning file, or returns an empty config whose
// getters supply the defaults.
func loadTuning(path string) *config.TuningConfig {
	if path == "" {
		return config.EmptyTuningConfig()
	}
	tuning, err := config.LoadTuningConfig(path)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	return tuning
}

func printResults(result *FlowRunResult) {
	fmt.Println("\n=== Optical Flow Results ===")
	fmt.Printf("Frames: %s -> %s (%dx%d)\n", result.PrevFile, result.NextFile, result.Width, result.Height)
	fmt.Printf("Pyramid Levels: %d\n", result.PyramidLevels)
	fmt.Printf("Points: %d tracked, %d lost of %d\n", result.TrackedCount, result.LostCount, result.PointCount)
	fmt.Printf("Processing Time: %dms\n", result.ProcessingTimeMs)

	if result.TrackedCount > 0 {
		fmt.Println("\n--- Displacement ---")
		fmt.Printf("Mean: %.2fpx  Median: %.2fpx  P95: %.2fpx\n",
			result.MeanMagnitude, result.MedianMagnitude, result.P95Magnitude)
		fmt.Printf("Mean Vector: (%.2f, %.2f)\n", result.MeanDX, result.MeanDY)
	}
}

func exportJSON(result *FlowRunResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
