package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/sparseflow/internal/flow"
)

func testFramePair() ([]flow.Point, []flow.FlowResult) {
	pts := []flow.Point{
		{X: 10, Y: 10},
		{X: 30, Y: 20},
		{X: 50, Y: 40},
	}
	results := []flow.FlowResult{
		{X: 12, Y: 11, Status: flow.StatusTracked},
		{X: 33, Y: 22, Status: flow.StatusTracked},
		{X: 50, Y: 40, Status: flow.StatusLost},
	}
	return pts, results
}

func TestNewFlowPlotter(t *testing.T) {
	fp := NewFlowPlotter()

	if fp == nil {
		t.Fatal("NewFlowPlotter returned nil")
	}

	if fp.enabled {
		t.Error("expected enabled to be false initially")
	}

	if fp.FrameCount() != 0 {
		t.Errorf("expected 0 frames initially, got %d", fp.FrameCount())
	}
}

func TestFlowPlotter_StartStop(t *testing.T) {
	fp := NewFlowPlotter()
	outputDir := t.TempDir()

	err := fp.Start(outputDir)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !fp.IsEnabled() {
		t.Error("expected plotter to be enabled after Start")
	}

	if fp.GetOutputDir() != outputDir {
		t.Errorf("expected outputDir '%s', got '%s'", outputDir, fp.GetOutputDir())
	}

	fp.Stop()

	if fp.IsEnabled() {
		t.Error("expected plotter to be disabled after Stop")
	}
}

func TestFlowPlotter_StartCreatesDirectory(t *testing.T) {
	fp := NewFlowPlotter()
	tempBase := t.TempDir()
	nestedDir := filepath.Join(tempBase, "nested", "plots")

	err := fp.Start(nestedDir)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fp.Stop()

	info, err := os.Stat(nestedDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}

	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestFlowPlotter_Record_Disabled(t *testing.T) {
	fp := NewFlowPlotter()
	// Don't call Start - plotter is disabled

	pts, results := testFramePair()
	fp.Record(pts, results)

	if fp.FrameCount() != 0 {
		t.Errorf("expected 0 frames when disabled, got %d", fp.FrameCount())
	}
}

func TestFlowPlotter_Record_Mismatched(t *testing.T) {
	fp := NewFlowPlotter()
	err := fp.Start(t.TempDir())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fp.Stop()

	pts, results := testFramePair()
	fp.Record(pts, results[:2])
	fp.Record(nil, nil)

	if fp.FrameCount() != 0 {
		t.Errorf("expected 0 frames for invalid input, got %d", fp.FrameCount())
	}
}

func TestFlowPlotter_Record_CopiesInput(t *testing.T) {
	fp := NewFlowPlotter()
	err := fp.Start(t.TempDir())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fp.Stop()

	pts, results := testFramePair()
	fp.Record(pts, results)

	// Mutating the caller's slices must not affect the record.
	pts[0].X = 999
	results[0].X = 999

	fp.mu.Lock()
	stored := fp.frames[0]
	fp.mu.Unlock()

	if stored.Points[0].X == 999 || stored.Results[0].X == 999 {
		t.Error("Record stored a reference to the caller's slices")
	}
}

func TestFlowPlotter_GeneratePlots_NoOutputDir(t *testing.T) {
	fp := NewFlowPlotter()

	count, err := fp.GeneratePlots()
	if err == nil {
		t.Error("expected error when no output directory configured")
	}

	if count != 0 {
		t.Errorf("expected 0 plots, got %d", count)
	}
}

func TestFlowPlotter_GeneratePlots_NoFrames(t *testing.T) {
	fp := NewFlowPlotter()
	err := fp.Start(t.TempDir())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fp.Stop()

	count, err := fp.GeneratePlots()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if count != 0 {
		t.Errorf("expected 0 plots with no frames, got %d", count)
	}
}

func TestFlowPlotter_GeneratePlots_WithFrames(t *testing.T) {
	fp := NewFlowPlotter()
	outputDir := t.TempDir()
	err := fp.Start(outputDir)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fp.Stop()

	pts, results := testFramePair()
	fp.Record(pts, results)
	fp.Record(pts, results)

	count, err := fp.GeneratePlots()
	if err != nil {
		t.Fatalf("GeneratePlots failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 plots, got %d", count)
	}

	for i := 0; i < 2; i++ {
		file := filepath.Join(outputDir, fmt.Sprintf("frame_%04d_flow.png", i))
		info, err := os.Stat(file)
		if err != nil {
			t.Errorf("plot %d not written: %v", i, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("plot %d is empty", i)
		}
	}
}

func TestFlowPlotter_StartResetsState(t *testing.T) {
	fp := NewFlowPlotter()

	dir1 := t.TempDir()
	err := fp.Start(dir1)
	if err != nil {
		t.Fatalf("First Start failed: %v", err)
	}

	pts, results := testFramePair()
	fp.Record(pts, results)
	fp.Stop()

	dir2 := t.TempDir()
	err = fp.Start(dir2)
	if err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	defer fp.Stop()

	if fp.FrameCount() != 0 {
		t.Error("expected frames to be reset on Start")
	}

	if fp.GetOutputDir() != dir2 {
		t.Errorf("expected outputDir '%s', got '%s'", dir2, fp.GetOutputDir())
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 1, 30, 14, 35, 22, 0, time.UTC)
	result := FormatTimestamp(ts)

	expected := "20260130_143522"
	if result != expected {
		t.Errorf("expected '%s', got '%s'", expected, result)
	}
}

func TestMakePlotOutputDir_WithName(t *testing.T) {
	baseDir := "/tmp/plots"

	result := MakePlotOutputDir(baseDir, "seq-001")

	if filepath.Dir(filepath.Dir(result)) != baseDir {
		t.Errorf("expected base dir '%s' in path, got '%s'", baseDir, result)
	}
	if filepath.Base(filepath.Dir(result)) != "seq-001" {
		t.Errorf("expected sequence name in path, got '%s'", result)
	}
}

func TestMakePlotOutputDir_WithoutName(t *testing.T) {
	baseDir := "/tmp/plots"

	result := MakePlotOutputDir(baseDir, "")

	base := filepath.Base(result)
	if len(base) < 4 || base[:4] != "run_" {
		t.Errorf("expected path to contain 'run_', got '%s'", result)
	}
}

func TestGenerateColors(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{0, 0},
		{1, 1},
		{5, 5},
		{10, 10},
	}

	for _, tt := range tests {
		colors := generateColors(tt.n)
		if len(colors) != tt.expected {
			t.Errorf("generateColors(%d): expected %d colours, got %d", tt.n, tt.expected, len(colors))
		}
	}

	colors := generateColors(5)
	for i, c := range colors {
		rgba, ok := c.(color.RGBA)
		if !ok {
			t.Errorf("colour %d: expected color.RGBA, got %T", i, c)
			continue
		}
		if rgba.A != 255 {
			t.Errorf("colour %d: expected alpha 255, got %d", i, rgba.A)
		}
	}
}

func TestGenerateColors_Distinct(t *testing.T) {
	colors := generateColors(6)
	if len(colors) != 6 {
		t.Fatalf("expected 6 colours, got %d", len(colors))
	}

	seen := make(map[uint32]bool)
	for _, c := range colors {
		rgba := c.(color.RGBA)
		key := uint32(rgba.R)<<16 | uint32(rgba.G)<<8 | uint32(rgba.B)
		if seen[key] {
			t.Error("duplicate colour found in generated palette")
		}
		seen[key] = true
	}
}

func TestHslToRGB(t *testing.T) {
	tests := []struct {
		h, s, l   float64
		expectedR uint8
		expectedG uint8
		expectedB uint8
	}{
		{0.0, 1.0, 0.5, 255, 0, 0},
		{1.0 / 3.0, 1.0, 0.5, 0, 255, 0},
		{2.0 / 3.0, 1.0, 0.5, 0, 0, 255},
		{0.0, 0.0, 1.0, 255, 255, 255},
		{0.0, 0.0, 0.0, 0, 0, 0},
		{0.0, 0.0, 0.5, 127, 127, 127},
	}

	for _, tt := range tests {
		r, g, b := hslToRGB(tt.h, tt.s, tt.l)

		if absInt(int(r)-int(tt.expectedR)) > 1 ||
			absInt(int(g)-int(tt.expectedG)) > 1 ||
			absInt(int(b)-int(tt.expectedB)) > 1 {
			t.Errorf("hslToRGB(%f, %f, %f): expected (%d, %d, %d), got (%d, %d, %d)",
				tt.h, tt.s, tt.l, tt.expectedR, tt.expectedG, tt.expectedB, r, g, b)
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
