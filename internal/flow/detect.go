package flow

import (
	"fmt"
	"math"
	"sort"
)

// Constants for detector configuration
const (
	// DefaultQualityLevel keeps corners within 10% of the strongest response.
	DefaultQualityLevel = 0.1
	// DefaultMinDistance is the minimum pixel spacing between accepted corners.
	DefaultMinDistance = 5
	// DefaultBlockSize is the structure tensor smoothing window.
	DefaultBlockSize = 3
)

// DetectParams holds configuration for GoodFeaturesToTrack.
type DetectParams struct {
	QualityLevel float32 // Relative response threshold in (0, 1]
	MinDistance  float32 // Minimum Euclidean spacing in pixels; 0 disables spacing
	BlockSize    int     // Structure tensor window side (odd, >= MinWindowSize)
}

// DefaultDetectParams returns detector defaults suitable for natural
// images.
func DefaultDetectParams() DetectParams {
	return DetectParams{
		QualityLevel: DefaultQualityLevel,
		MinDistance:  DefaultMinDistance,
		BlockSize:    DefaultBlockSize,
	}
}

// GoodFeaturesToTrack finds Shi-Tomasi corners in img, strongest
// first. Equal responses keep row-major order, so results are
// deterministic. A uniform image yields an empty result, which is a
// valid outcome, not an error. No count cap is applied; truncation is
// the caller's concern.
func GoodFeaturesToTrack(img *Image, p DetectParams) ([]Point, error) {
	if img.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidParameter)
	}
	if p.QualityLevel <= 0 || p.QualityLevel > 1 {
		return nil, fmt.Errorf("%w: quality level %v, want in (0, 1]", ErrInvalidParameter, p.QualityLevel)
	}
	if p.MinDistance < 0 {
		return nil, fmt.Errorf("%w: min distance %v, want >= 0", ErrInvalidParameter, p.MinDistance)
	}
	if p.BlockSize < MinWindowSize || p.BlockSize%2 == 0 {
		return nil, fmt.Errorf("%w: block size %d, want odd and >= %d", ErrInvalidParameter, p.BlockSize, MinWindowSize)
	}

	response := CornerResponse(img, p.BlockSize)

	// The global maximum sets the quality threshold. A flat image has
	// no positive response anywhere.
	var maxResponse float32
	for _, r := range response {
		if r > maxResponse {
			maxResponse = r
		}
	}
	if maxResponse <= 0 {
		return []Point{}, nil
	}
	threshold := p.QualityLevel * maxResponse

	candidates := suppressNonMaxima(response, img.W, img.H, threshold)

	// Strongest first; SliceStable keeps row-major order for ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].response > candidates[j].response
	})

	return filterByDistance(candidates, p.MinDistance), nil
}

// CornerResponse computes the per-pixel Shi-Tomasi response map: the
// smaller eigenvalue of the local structure tensor, via the
// closed-form root of its characteristic polynomial. Row-major, same
// dimensions as img.
func CornerResponse(img *Image, blockSize int) []float32 {
	st := ComputeStructureTensor(img, blockSize)

	response := make([]float32, len(st.Ixx))
	for i := range response {
		xx := float64(st.Ixx[i])
		yy := float64(st.Iyy[i])
		xy := float64(st.Ixy[i])

		// Smaller root of l^2 - (xx+yy)*l + (xx*yy - xy^2) = 0.
		disc := (xx-yy)*(xx-yy) + 4*xy*xy
		response[i] = float32((xx + yy - math.Sqrt(disc)) / 2)
	}
	return response
}

// candidate pairs a pixel position with its corner response during
// selection.
type candidate struct {
	x, y     int
	response float32
}

// suppressNonMaxima collects pixels at or above threshold that are
// the strongest in their own 3x3 neighbourhood, in row-major order.
// Border pixels are never candidates since their neighbourhood is
// truncated.
func suppressNonMaxima(response []float32, w, h int, threshold float32) []candidate {
	var out []candidate
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			r := response[y*w+x]
			if r < threshold {
				continue
			}
			if isLocalMax(response, w, x, y, r) {
				out = append(out, candidate{x: x, y: y, response: r})
			}
		}
	}
	return out
}

// isLocalMax reports whether no 3x3 neighbour strictly exceeds r.
// Ties survive, so plateau corners are not suppressed entirely.
func isLocalMax(response []float32, w, x, y int, r float32) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if response[(y+dy)*w+(x+dx)] > r {
				return false
			}
		}
	}
	return true
}

// filterByDistance greedily accepts candidates in order, rejecting any
// candidate closer than minDist to an already-accepted point. A grid
// hash with cell size minDist bounds each check to the 3x3 cell
// neighbourhood, since a conflicting point must lie within one cell
// width of the candidate.
func filterByDistance(candidates []candidate, minDist float32) []Point {
	points := make([]Point, 0, len(candidates))
	if minDist <= 0 {
		for _, c := range candidates {
			points = append(points, Point{X: float32(c.x), Y: float32(c.y)})
		}
		return points
	}

	cell := float64(minDist)
	minDist2 := minDist * minDist
	grid := make(map[[2]int][]Point)

	for _, c := range candidates {
		px := float32(c.x)
		py := float32(c.y)
		cx := int(math.Floor(float64(px) / cell))
		cy := int(math.Floor(float64(py) / cell))

		tooClose := false
	scan:
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				for _, q := range grid[[2]int{cx + dx, cy + dy}] {
					ddx := px - q.X
					ddy := py - q.Y
					if ddx*ddx+ddy*ddy < minDist2 {
						tooClose = true
						break scan
					}
				}
			}
		}
		if tooClose {
			continue
		}

		accepted := Point{X: px, Y: py}
		grid[[2]int{cx, cy}] = append(grid[[2]int{cx, cy}], accepted)
		points = append(points, accepted)
	}
	return points
}
