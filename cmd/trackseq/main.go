// Package main provides a sequence tracking tool.
// It detects corners on the first frame of a directory of frames and
// chains them forward with pyramidal Lucas-Kanade, without
// re-detection, so each feature keeps its identity until it is lost.
// Results can be persisted to SQLite and rendered as per-frame plots.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/sparseflow/internal/config"
	"github.com/banshee-data/sparseflow/internal/flow"
	"github.com/banshee-data/sparseflow/internal/flow/monitor"
	"github.com/banshee-data/sparseflow/internal/imageutil"
	"github.com/banshee-data/sparseflow/internal/version"
)

// Config holds configuration for the sequence run.
type Config struct {
	FrameDir    string
	Pattern     string
	DBFile      string
	ConfigFile  string
	OutputJSON  string
	PlotDir     string
	MaxFeatures int
	Levels      int
	Verbose     bool
	ShowVersion bool
}

// SequenceResult holds the results of a sequence run.
type SequenceResult struct {
	RunID            string  `json:"run_id"`
	FrameDir         string  `json:"frame_dir"`
	FrameCount       int     `json:"frame_count"`
	PairCount        int     `json:"pair_count"`
	InitialFeatures  int     `json:"initial_features"`
	FinalFeatures    int     `json:"final_features"`
	TrackedCount     int64   `json:"tracked_count"`
	LostCount        int64   `json:"lost_count"`
	SurvivalPct      float64 `json:"survival_pct"`
	MeanDisplacement float64 `json:"mean_displacement"`
	PlotCount        int     `json:"plot_count,omitempty"`
	PlotDir          string  `json:"plot_dir,omitempty"`
	DBFile           string  `json:"db_file,omitempty"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("trackseq %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if cfg.FrameDir == "" {
		log.Fatal("frame directory is required")
	}

	if info, err := os.Stat(cfg.FrameDir); err != nil || !info.IsDir() {
		log.Fatalf("frame directory not found: %s", cfg.FrameDir)
	}

	result, err := runSequence(cfg)
	if err != nil {
		log.Fatalf("Sequence run failed: %v", err)
	}

	printResults(result)

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

	flag.StringVar(&cfg.FrameDir, "frames", "", "Directory of sequential frames")
	flag.StringVar(&cfg.Pattern, "pattern", "*.png", "Glob pattern for frame files within the directory")
	flag.StringVar(&cfg.DBFile, "db", "", "SQLite file for per-point results (optional)")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to a tuning JSON file")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g., sequence.json)")
	flag.StringVar(&cfg.PlotDir, "plots", "", "Base directory for per-frame flow plots (optional)")
	flag.IntVar(&cfg.MaxFeatures, "max", -1, "Maximum corners to seed (-1 = use tuning config)")
	flag.IntVar(&cfg.Levels, "levels", -1, "Pyramid levels (-1 = use tuning config)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Log per-frame tracking counts")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	flag.Parse()

	return cfg
}

// frameItem is one decoded frame handed from the loader to the tracker.
type frameItem struct {
	idx int
	img *flow.Image
	pyr *flow.Pyramid
}

func runSequence(cfg Config) (*SequenceResult, error) {
	paths, err := filepath.Glob(filepath.Join(cfg.FrameDir, cfg.Pattern))
	if err != nil {
		return nil, fmt.Errorf("bad frame pattern %q: %w", cfg.Pattern, err)
	}
	sort.Strings(paths)
	if len(paths) < 2 {
		return nil, fmt.Errorf("need at least 2 frames matching %q in %s, found %d", cfg.Pattern, cfg.FrameDir, len(paths))
	}

	tuning := loadTuning(cfg.ConfigFile)
	levels := cfg.Levels
	if levels < 0 {
		levels = tuning.GetPyramidLevels()
	}
	maxFeatures := cfg.MaxFeatures
	if maxFeatures < 0 {
		maxFeatures = tuning.GetMaxFeatures()
	}

	runID := uuid.New().String()
	startTime := time.Now()

	var store *ResultStore
	if cfg.DBFile != "" {
		store, err = OpenResultStore(cfg.DBFile)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if err := store.BeginRun(runID, cfg.FrameDir); err != nil {
			return nil, err
		}
	}

	plotter := monitor.NewFlowPlotter()
	if cfg.PlotDir != "" {
		dir := monitor.MakePlotOutputDir(cfg.PlotDir, filepath.Base(cfg.FrameDir))
		if err := plotter.Start(dir); err != nil {
			return nil, fmt.Errorf("start plotter: %w", err)
		}
	}

	seqStats := monitor.NewSeqStats()
	result := &SequenceResult{
		RunID:      runID,
		FrameDir:   cfg.FrameDir,
		FrameCount: len(paths),
		DBFile:     cfg.DBFile,
	}

	// The loader decodes and pyramids frames one ahead of the tracker.
	g, ctx := errgroup.WithContext(context.Background())
	frames := make(chan frameItem, 2)

	g.Go(func() error {
		defer close(frames)
		for i, path := range paths {
			img, err := imageutil.LoadGray(path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			pyr, err := flow.BuildPyramid(img, levels)
			if err != nil {
				return fmt.Errorf("pyramid %s: %w", path, err)
			}
			select {
			case frames <- frameItem{idx: i, img: img, pyr: pyr}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		var points []flow.Point
		var prev *frameItem
		for item := range frames {
			it := item
			if prev == nil {
				corners, err := flow.GoodFeaturesToTrack(it.img, tuning.DetectParams())
				if err != nil {
					return fmt.Errorf("detect frame %d: %w", it.idx, err)
				}
				if maxFeatures > 0 && len(corners) > maxFeatures {
					corners = corners[:maxFeatures]
				}
				if len(corners) == 0 {
					return fmt.Errorf("no trackable corners found in %s", paths[it.idx])
				}
				points = corners
				result.InitialFeatures = len(corners)
				if cfg.Verbose {
					log.Printf("frame %d: seeded %d features", it.idx, len(corners))
				}
				prev = &it
				continue
			}

			results, err := flow.CalcOpticalFlow(prev.pyr, it.pyr, points, tuning.TrackParams())
			if err != nil {
				return fmt.Errorf("track frames %d->%d: %w", prev.idx, it.idx, err)
			}

			fs := monitor.ComputeFlowStats(points, results)
			seqStats.AddFrame(fs)
			result.PairCount++
			plotter.Record(points, results)

			if store != nil {
				if err := store.InsertFrameResults(runID, prev.idx, points, results); err != nil {
					return err
				}
			}

			if cfg.Verbose {
				log.Printf("frame %d->%d: %d tracked, %d lost, mean %.2fpx",
					prev.idx, it.idx, fs.TrackedCount, fs.LostCount, fs.MeanMag)
			}

			// Survivors carry forward as the seeds for the next pair.
			survivors := make([]flow.Point, 0, len(results))
			for _, r := range results {
				if r.Status == flow.StatusTracked {
					survivors = append(survivors, flow.Point{X: r.X, Y: r.Y})
				}
			}
			points = survivors
			prev = &it

			if len(points) == 0 {
				log.Printf("all features lost after frame %d, stopping early", it.idx)
				break
			}
		}
		result.FinalFeatures = len(points)
		// Drain so the loader never blocks after an early stop.
		for range frames {
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	frameCount, tracked, lost, meanMag := seqStats.Totals()
	result.TrackedCount = tracked
	result.LostCount = lost
	result.MeanDisplacement = meanMag
	if tracked+lost > 0 {
		result.SurvivalPct = 100 * float64(tracked) / float64(tracked+lost)
	}
	result.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	seqStats.LogStats()

	if store != nil {
		if err := store.FinishRun(runID, frameCount, tracked, lost, meanMag); err != nil {
			return nil, err
		}
	}

	if plotter.IsEnabled() {
		plotter.Stop()
		n, err := plotter.GeneratePlots()
		if err != nil {
			return nil, fmt.Errorf("generate plots: %w", err)
		}
		result.PlotCount = n
		result.PlotDir = plotter.GetOutputDir()
		log.Printf("Wrote %d plots to %s", n, result.PlotDir)
	}

	return result, nil
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

func printResults(result *SequenceResult) {
	fmt.Println("\n=== Sequence Tracking Results ===")
	fmt.Printf("Run: %s\n", result.RunID)
	fmt.Printf("Frames: %d (%d pairs) from %s\n", result.FrameCount, result.PairCount, result.FrameDir)
	fmt.Printf("Features: %d seeded, %d surviving\n", result.InitialFeatures, result.FinalFeatures)
	fmt.Printf("Tracking: %d tracked, %d lost (%.1f%% survival)\n", result.TrackedCount, result.LostCount, result.SurvivalPct)
	fmt.Printf("Mean Displacement: %.2fpx\n", result.MeanDisplacement)
	fmt.Printf("Processing Time: %dms\n", result.ProcessingTimeMs)

	if result.DBFile != "" {
		fmt.Printf("Database: %s\n", result.DBFile)
	}
	if result.PlotDir != "" {
		fmt.Printf("Plots: %d in %s\n", result.PlotCount, result.PlotDir)
	}
}

func exportJSON(result *SequenceResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
