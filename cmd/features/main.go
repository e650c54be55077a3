// Package main provides a corner detection tool.
// It finds trackable features in a grayscale image, prints them
// strongest first, and can write an annotated overlay and a corner
// response heat map.
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

// Config holds configuration for the detection run.
type Config struct {
	InputFile   string
	OutputFile  string
	HeatmapFile string
	ConfigFile  string
	OutputJSON  string
	MaxFeatures int
	MaxDim      int
	ShowVersion bool
}

// FeaturePoint is one detected corner in the JSON export.
type FeaturePoint struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// DetectionResult holds the results of a detection run.
type DetectionResult struct {
	InputFile        string         `json:"input_file"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	Count            int            `json:"count"`
	Points           []FeaturePoint `json:"points"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("features %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if cfg.InputFile == "" {
		log.Fatal("input image is required")
	}

	if _, err := os.Stat(cfg.InputFile); os.IsNotExist(err) {
		log.Fatalf("input image not found: %s", cfg.InputFile)
	}

	result, img, err := runDetection(cfg)
	if err != nil {
		log.Fatalf("Detection failed: %v", err)
	}

	printResults(result)

	if cfg.OutputFile != "" {
		pts := make([]flow.Point, len(result.Points))
		for i, p := range result.Points {
			pts[i] = flow.Point{X: p.X, Y: p.Y}
		}
		if err := imageutil.AnnotateCorners(img, pts, cfg.OutputFile); err != nil {
			log.Fatalf("Failed to write overlay: %v", err)
		}
		log.Printf("Overlay written to: %s", cfg.OutputFile)
	}

	if cfg.HeatmapFile != "" {
		tuning := loadTuning(cfg.ConfigFile)
		if err := monitor.SaveResponseHeatmap(img, tuning.GetBlockSize(), cfg.HeatmapFile); err != nil {
			log.Fatalf("Failed to write heatmap: %v", err)
		}
		log.Printf("Heatmap written to: %s", cfg.HeatmapFile)
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

	flag.StringVar(&cfg.InputFile, "input", "", "Path to input image (PNG or JPEG)")
	flag.StringVar(&cfg.OutputFile, "out", "", "Output path for the annotated overlay PNG")
	flag.StringVar(&cfg.HeatmapFile, "heatmap", "", "Output path for the corner response heat map PNG")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to a tuning JSON file")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g., corners.json)")
	flag.IntVar(&cfg.MaxFeatures, "max", -1, "Maximum corners to keep (-1 = use tuning config)")
	flag.IntVar(&cfg.MaxDim, "maxdim", 0, "Downscale input so its longest side is at most this (0 = no resize)")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	flag.Parse()

	return cfg
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

func runDetection(cfg Config) (*DetectionResult, *flow.Image, error) {
	tuning := loadTuning(cfg.ConfigFile)

	img, err := imageutil.LoadGray(cfg.InputFile)
	if err != nil {
		return nil, nil, err
	}

	if cfg.MaxDim > 0 && (img.W > cfg.MaxDim || img.H > cfg.MaxDim) {
		w, h := fitDims(img.W, img.H, cfg.MaxDim)
		img, err = imageutil.Resize(img, w, h)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Downscaled input to %dx%d", w, h)
	}

	startTime := time.Now()
	corners, err := flow.GoodFeaturesToTrack(img, tuning.DetectParams())
	if err != nil {
		return nil, nil, err
	}

	// Corners arrive strongest first, so truncation keeps the best.
	maxFeatures := cfg.MaxFeatures
	if maxFeatures < 0 {
		maxFeatures = tuning.GetMaxFeatures()
	}
	if maxFeatures > 0 && len(corners) > maxFeatures {
		corners = corners[:maxFeatures]
	}

	points := make([]FeaturePoint, len(corners))
	for i, c := range corners {
		points[i] = FeaturePoint{X: c.X, Y: c.Y}
	}

	result := &DetectionResult{
		InputFile:        cfg.InputFile,
		Width:            img.W,
		Height:           img.H,
		Count:            len(points),
		Points:           points,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}

	return result, img, nil
}

// fitDims scales w x h so the longest side equals maxDim, preserving
// aspect ratio.
func fitDims(w, h, maxDim int) (int, int) {
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}

func printResults(result *DetectionResult) {
	fmt.Println("\n=== Corner Detection Results ===")
	fmt.Printf("Input: %s (%dx%d)\n", result.InputFile, result.Width, result.Height)
	fmt.Printf("Corners: %d\n", result.Count)
	fmt.Printf("Processing Time: %dms\n", result.ProcessingTimeMs)

	show := len(result.Points)
	if show > 10 {
		show = 10
	}
	if show > 0 {
		fmt.Println("\n--- Strongest Corners ---")
		for i := 0; i < show; i++ {
			fmt.Printf("  %2d: (%.1f, %.1f)\n", i+1, result.Points[i].X, result.Points[i].Y)
		}
		if len(result.Points) > show {
			fmt.Printf("  ... and %d more\n", len(result.Points)-show)
		}
	}
}

func exportJSON(result *DetectionResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
