package sparseflow

import (
	"github.com/banshee-data/sparseflow/internal/flow"
)

// Type aliases re-export the core types from the internal package.

// Image is a single-channel float32 raster on the 0..255 intensity
// scale, row-major, origin top-left.
type Image = flow.Image

// Pyramid is a multi-resolution image series, index 0 = finest.
type Pyramid = flow.Pyramid

// Point is a position on the level-0 image, x = column, y = row.
type Point = flow.Point

// Status reports the outcome of tracking a single point.
type Status = flow.Status

// FlowResult is the tracking outcome for one input point.
type FlowResult = flow.FlowResult

// DetectParams holds configuration for GoodFeaturesToTrack.
type DetectParams = flow.DetectParams

// TrackParams holds configuration for CalcOpticalFlow.
type TrackParams = flow.TrackParams

// Status values.
const (
	StatusTracked = flow.StatusTracked
	StatusLost    = flow.StatusLost
)

// ErrInvalidParameter is wrapped by every whole-call validation
// failure; test with errors.Is.
var ErrInvalidParameter = flow.ErrInvalidParameter

// Constructor and function re-exports.

// NewImage allocates a zeroed w x h image.
var NewImage = flow.NewImage

// FromBytes builds an image from row-major 8-bit intensity samples.
var FromBytes = flow.FromBytes

// FromGray converts a standard library grayscale image.
var FromGray = flow.FromGray

// BuildPyramid constructs a multi-resolution pyramid with up to the
// requested number of levels.
var BuildPyramid = flow.BuildPyramid

// GoodFeaturesToTrack finds Shi-Tomasi corners, strongest first.
var GoodFeaturesToTrack = flow.GoodFeaturesToTrack

// CalcOpticalFlow estimates per-point displacement between two
// pyramids, aligned 1:1 with the input points.
var CalcOpticalFlow = flow.CalcOpticalFlow

// DefaultDetectParams returns detector defaults.
var DefaultDetectParams = flow.DefaultDetectParams

// DefaultTrackParams returns tracker defaults.
var DefaultTrackParams = flow.DefaultTrackParams
