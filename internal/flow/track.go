package flow

import (
	"fmt"
	"runtime"
	"sync"
)

// Status reports the outcome of tracking a single point.
type Status uint8

const (
	// StatusTracked means the displacement estimate survived every
	// pyramid level.
	StatusTracked Status = iota
	// StatusLost means the point could not be followed: its gradient
	// matrix went singular or its sampling window left the image.
	StatusLost
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusTracked:
		return "tracked"
	case StatusLost:
		return "lost"
	default:
		return "unknown"
	}
}

// FlowResult is the tracking outcome for one input point, aligned
// positionally with the points slice passed to CalcOpticalFlow.
// Tracked results hold the estimated position in the next frame; lost
// results keep the seed position. Callers must branch on Status,
// never on coordinate values.
type FlowResult struct {
	X, Y   float32
	Status Status
}

// Constants for tracker configuration
const (
	// MinWindowSize is the smallest legal tracking window and the
	// smallest pyramid level dimension worth building.
	MinWindowSize = 3
	// DefaultWindowSize is the integration window for the flow solver.
	DefaultWindowSize = 21
	// DefaultMaxIterations bounds the refinement loop per level.
	DefaultMaxIterations = 30
	// DefaultEpsilon is the convergence threshold on the per-iteration
	// update norm, in pixels.
	DefaultEpsilon = 0.01
	// DefaultMinDeterminant is the minimum determinant for gradient
	// matrix inversion; below it the point is reported lost.
	DefaultMinDeterminant = 1e-6
)

// TrackParams holds configuration for CalcOpticalFlow.
type TrackParams struct {
	WindowSize     int     // Integration window side (odd, >= MinWindowSize)
	MaxIterations  int     // Refinement iterations per pyramid level
	Epsilon        float32 // Convergence threshold on the update norm (pixels)
	MinDeterminant float32 // Singularity guard for the 2x2 gradient matrix
	Workers        int     // Parallel point workers; 0 means GOMAXPROCS
}

// DefaultTrackParams returns tracker defaults mirroring classical
// pyramidal Lucas-Kanade practice.
func DefaultTrackParams() TrackParams {
	return TrackParams{
		WindowSize:     DefaultWindowSize,
		MaxIterations:  DefaultMaxIterations,
		Epsilon:        DefaultEpsilon,
		MinDeterminant: DefaultMinDeterminant,
	}
}

// levelData bundles the per-level inputs shared read-only by every
// point.
type levelData struct {
	prev, next *Image
	gx, gy     *Image
}

// CalcOpticalFlow estimates, for every input point, the displacement
// between the previous and the next frame by coarse-to-fine
// Lucas-Kanade refinement. Results align 1:1 with points. A point
// that cannot be followed comes back as StatusLost; individual
// failures never abort the batch.
//
// Both pyramids must have been built with the same requested depth so
// their levels agree pairwise in size.
func CalcOpticalFlow(prev, next *Pyramid, points []Point, p TrackParams) ([]FlowResult, error) {
	if err := validateTrackInputs(prev, next, p); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}

	// Gradients of each previous level are computed once and shared by
	// every point.
	levels := make([]*levelData, prev.Depth())
	for i := range levels {
		gx, gy := Gradients(prev.Level(i))
		levels[i] = &levelData{
			prev: prev.Level(i),
			next: next.Level(i),
			gx:   gx,
			gy:   gy,
		}
	}

	results := make([]FlowResult, len(points))

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(points) {
		workers = len(points)
	}

	// Data-parallel map over points: each worker owns a disjoint range
	// of result slots, so no synchronisation is needed beyond the
	// WaitGroup. Input order is preserved by index.
	var wg sync.WaitGroup
	chunk := (len(points) + workers - 1) / workers
	for start := 0; start < len(points); start += chunk {
		end := start + chunk
		if end > len(points) {
			end = len(points)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				results[i] = trackPoint(levels, points[i], p)
			}
		}(start, end)
	}
	wg.Wait()

	return results, nil
}

// validateTrackInputs rejects whole-call parameter errors before any
// per-point work starts.
func validateTrackInputs(prev, next *Pyramid, p TrackParams) error {
	if prev == nil || prev.Depth() == 0 || next == nil || next.Depth() == 0 {
		return fmt.Errorf("%w: empty pyramid", ErrInvalidParameter)
	}
	if prev.Depth() != next.Depth() {
		return fmt.Errorf("%w: pyramid depth mismatch %d vs %d", ErrInvalidParameter, prev.Depth(), next.Depth())
	}
	for i := 0; i < prev.Depth(); i++ {
		a, b := prev.Level(i), next.Level(i)
		if a.W != b.W || a.H != b.H {
			return fmt.Errorf("%w: level %d size mismatch %dx%d vs %dx%d",
				ErrInvalidParameter, i, a.W, a.H, b.W, b.H)
		}
	}
	if p.WindowSize < MinWindowSize || p.WindowSize%2 == 0 {
		return fmt.Errorf("%w: window size %d, want odd and >= %d", ErrInvalidParameter, p.WindowSize, MinWindowSize)
	}
	if p.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations %d, want >= 1", ErrInvalidParameter, p.MaxIterations)
	}
	if p.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon %v, want > 0", ErrInvalidParameter, p.Epsilon)
	}
	if p.MinDeterminant <= 0 {
		return fmt.Errorf("%w: min determinant %v, want > 0", ErrInvalidParameter, p.MinDeterminant)
	}
	return nil
}

// trackPoint refines one point's displacement from the coarsest level
// down to level 0. It reads only the immutable level data, so points
// can be mapped across workers freely.
func trackPoint(levels []*levelData, pt Point, p TrackParams) FlowResult {
	lost := FlowResult{X: pt.X, Y: pt.Y, Status: StatusLost}
	radius := p.WindowSize / 2

	// Displacement estimate in current-level pixel units.
	var dx, dy float32

	for level := len(levels) - 1; level >= 0; level-- {
		ld := levels[level]
		scale := float32(int(1) << uint(level))

		// Seed position at this level's resolution.
		x := pt.X / scale
		y := pt.Y / scale

		// The fixed gradient window around the seed must fit inside
		// the previous level, or the point cannot be estimated at all.
		if !windowInBounds(ld.prev, x, y, radius) {
			return lost
		}

		// The gradient window is fixed per level, so the 2x2 gradient
		// matrix G is accumulated once and reused by every iteration.
		var gxx, gxy, gyy float64
		for j := -radius; j <= radius; j++ {
			for i := -radius; i <= radius; i++ {
				sx := x + float32(i)
				sy := y + float32(j)
				ix := float64(ld.gx.SampleBilinear(sx, sy))
				iy := float64(ld.gy.SampleBilinear(sx, sy))
				gxx += ix * ix
				gxy += ix * iy
				gyy += iy * iy
			}
		}

		det := gxx*gyy - gxy*gxy
		if det < float64(p.MinDeterminant) {
			return lost
		}
		invGxx := gyy / det
		invGxy := -gxy / det
		invGyy := gxx / det

		// Refine the displacement at this level: solve G*dd = b with
		// the closed-form inverse, where b is the gradient-weighted
		// intensity mismatch between the fixed previous window and the
		// displaced next window.
		eps2 := float64(p.Epsilon) * float64(p.Epsilon)
		for iter := 0; iter < p.MaxIterations; iter++ {
			curX := x + dx
			curY := y + dy
			if !windowInBounds(ld.next, curX, curY, radius) {
				return lost
			}

			var bx, by float64
			for j := -radius; j <= radius; j++ {
				for i := -radius; i <= radius; i++ {
					fi := float32(i)
					fj := float32(j)
					diff := float64(ld.prev.SampleBilinear(x+fi, y+fj) -
						ld.next.SampleBilinear(curX+fi, curY+fj))
					bx += float64(ld.gx.SampleBilinear(x+fi, y+fj)) * diff
					by += float64(ld.gy.SampleBilinear(x+fi, y+fj)) * diff
				}
			}

			ddx := invGxx*bx + invGxy*by
			ddy := invGxy*bx + invGyy*by
			dx += float32(ddx)
			dy += float32(ddy)

			if ddx*ddx+ddy*ddy < eps2 {
				break
			}
		}

		// Moving one level finer doubles the resolution, so the
		// displacement estimate doubles with it.
		if level > 0 {
			dx *= 2
			dy *= 2
		}
	}

	return FlowResult{X: pt.X + dx, Y: pt.Y + dy, Status: StatusTracked}
}

// windowInBounds reports whether the square window of the given radius
// around (x, y) lies fully inside img.
func windowInBounds(img *Image, x, y float32, radius int) bool {
	r := float32(radius)
	return x >= r && x < float32(img.W)-r && y >= r && y < float32(img.H)-r
}
