package sparseflow_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/sparseflow"
	"github.com/banshee-data/sparseflow/internal/testutil"
)

// TestEndToEndTranslation runs the full pipeline on a textured frame
// pair with a known shift: detect corners, build both pyramids, track,
// and check every interior point lands on the translated position.
func TestEndToEndTranslation(t *testing.T) {
	const (
		w, h   = 256, 256
		dx, dy = 3, 2
		levels = 3
	)
	prev, next := testutil.ShiftedPair(w, h, dx, dy, 7)

	corners, err := sparseflow.GoodFeaturesToTrack(prev, sparseflow.DefaultDetectParams())
	testutil.AssertNoError(t, err)
	if len(corners) == 0 {
		t.Fatal("no corners detected on textured frame")
	}

	// Keep points away from the border so every pyramid level has a
	// full integration window.
	var pts []sparseflow.Point
	for _, c := range corners {
		if c.X >= 48 && c.X < w-48 && c.Y >= 48 && c.Y < h-48 {
			pts = append(pts, c)
		}
	}
	if len(pts) < 8 {
		t.Fatalf("interior corners = %d, want at least 8", len(pts))
	}

	prevPyr, err := sparseflow.BuildPyramid(prev, levels)
	testutil.AssertNoError(t, err)
	nextPyr, err := sparseflow.BuildPyramid(next, levels)
	testutil.AssertNoError(t, err)

	got, err := sparseflow.CalcOpticalFlow(prevPyr, nextPyr, pts, sparseflow.DefaultTrackParams())
	testutil.AssertNoError(t, err)

	want := make([]sparseflow.FlowResult, len(pts))
	for i, p := range pts {
		want[i] = sparseflow.FlowResult{X: p.X + dx, Y: p.Y + dy, Status: sparseflow.StatusTracked}
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 0.5)); diff != "" {
		t.Errorf("optical flow mismatch (-want +got):\n%s", diff)
	}
}

// TestLostPointsKeepSeedCoordinates checks the façade passes LOST
// results through unchanged: a point on a flat region cannot be
// tracked and must come back at its seed position.
func TestLostPointsKeepSeedCoordinates(t *testing.T) {
	img := testutil.Flat(64, 64, 128)

	pyr, err := sparseflow.BuildPyramid(img, 2)
	testutil.AssertNoError(t, err)

	pts := []sparseflow.Point{{X: 32, Y: 32}}
	got, err := sparseflow.CalcOpticalFlow(pyr, pyr, pts, sparseflow.DefaultTrackParams())
	testutil.AssertNoError(t, err)

	want := []sparseflow.FlowResult{{X: 32, Y: 32, Status: sparseflow.StatusLost}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lost point mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationErrorsAreIdentifiable(t *testing.T) {
	img := testutil.Textured(64, 64, 3)

	p := sparseflow.DefaultDetectParams()
	p.QualityLevel = 2
	if _, err := sparseflow.GoodFeaturesToTrack(img, p); !errors.Is(err, sparseflow.ErrInvalidParameter) {
		t.Errorf("GoodFeaturesToTrack error = %v, want ErrInvalidParameter", err)
	}

	if _, err := sparseflow.BuildPyramid(img, 0); !errors.Is(err, sparseflow.ErrInvalidParameter) {
		t.Errorf("BuildPyramid error = %v, want ErrInvalidParameter", err)
	}

	pyr, err := sparseflow.BuildPyramid(img, 2)
	testutil.AssertNoError(t, err)

	tp := sparseflow.DefaultTrackParams()
	tp.WindowSize = 4
	pts := []sparseflow.Point{{X: 32, Y: 32}}
	if _, err := sparseflow.CalcOpticalFlow(pyr, pyr, pts, tp); !errors.Is(err, sparseflow.ErrInvalidParameter) {
		t.Errorf("CalcOpticalFlow error = %v, want ErrInvalidParameter", err)
	}
}
