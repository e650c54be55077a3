package monitor

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sparseflow/internal/flow"
	"github.com/banshee-data/sparseflow/internal/monitoring"
)

// FlowStats summarises one frame pair's tracking outcome.
type FlowStats struct {
	TrackedCount int
	LostCount    int
	MeanMag      float64
	MedianMag    float64
	P95Mag       float64
	MeanDX       float64
	MeanDY       float64
}

// ComputeFlowStats computes displacement statistics over the tracked
// points of one frame pair. Points and results must be aligned 1:1;
// mismatched input yields zero stats.
func ComputeFlowStats(points []flow.Point, results []flow.FlowResult) FlowStats {
	var s FlowStats
	if len(points) != len(results) {
		return s
	}

	mags := make([]float64, 0, len(results))
	var sumDX, sumDY float64
	for i, r := range results {
		if r.Status != flow.StatusTracked {
			s.LostCount++
			continue
		}
		s.TrackedCount++
		dx := float64(r.X - points[i].X)
		dy := float64(r.Y - points[i].Y)
		sumDX += dx
		sumDY += dy
		mags = append(mags, math.Hypot(dx, dy))
	}

	if s.TrackedCount == 0 {
		return s
	}

	sort.Float64s(mags)
	s.MeanMag = stat.Mean(mags, nil)
	s.MedianMag = stat.Quantile(0.5, stat.Empirical, mags, nil)
	s.P95Mag = stat.Quantile(0.95, stat.Empirical, mags, nil)
	s.MeanDX = sumDX / float64(s.TrackedCount)
	s.MeanDY = sumDY / float64(s.TrackedCount)
	return s
}

// SeqStats accumulates tracking statistics across a frame sequence
// with thread-safe operations.
type SeqStats struct {
	mu           sync.Mutex
	frameCount   int
	trackedCount int64
	lostCount    int64
	magSum       float64
	startTime    time.Time
}

// NewSeqStats creates a new SeqStats instance.
func NewSeqStats() *SeqStats {
	return &SeqStats{startTime: time.Now()}
}

// AddFrame folds one frame pair's statistics into the totals.
func (ss *SeqStats) AddFrame(s FlowStats) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.frameCount++
	ss.trackedCount += int64(s.TrackedCount)
	ss.lostCount += int64(s.LostCount)
	ss.magSum += s.MeanMag * float64(s.TrackedCount)
}

// Totals returns the accumulated frame count, point counts, and the
// overall mean displacement magnitude across all tracked points.
func (ss *SeqStats) Totals() (frames int, tracked, lost int64, meanMag float64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	frames = ss.frameCount
	tracked = ss.trackedCount
	lost = ss.lostCount
	if tracked > 0 {
		meanMag = ss.magSum / float64(tracked)
	}
	return
}

// LogStats logs a one-line summary of the sequence so far.
func (ss *SeqStats) LogStats() {
	frames, tracked, lost, meanMag := ss.Totals()
	if frames == 0 {
		return
	}

	total := tracked + lost
	survivalPct := 0.0
	if total > 0 {
		survivalPct = float64(tracked) / float64(total) * 100
	}

	monitoring.Logf("Flow stats: %d frames, %d tracked, %d lost (%.1f%% survival), mean displacement %.2fpx",
		frames, tracked, lost, survivalPct, meanMag)
}

// GetUptime returns the time since the stats were created.
func (ss *SeqStats) GetUptime() time.Duration {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return time.Since(ss.startTime)
}
