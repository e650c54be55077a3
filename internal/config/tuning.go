package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/sparseflow/internal/flow"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/flow.defaults.json"

// Tool-level defaults with no counterpart in the core package.
const (
	// DefaultPyramidLevels is the pyramid depth requested by the tools.
	DefaultPyramidLevels = 3
	// DefaultMaxFeatures caps how many corners the tools keep per frame.
	DefaultMaxFeatures = 100
)

// TuningConfig represents the root configuration for flow tuning
// parameters. All fields are optional; the Get* methods fall back to
// the core defaults, so the same JSON works for partial overrides and
// full configuration.
type TuningConfig struct {
	// Detector params
	QualityLevel *float64 `json:"quality_level,omitempty"`
	MinDistance  *float64 `json:"min_distance,omitempty"`
	BlockSize    *int     `json:"block_size,omitempty"`
	MaxFeatures  *int     `json:"max_features,omitempty"`

	// Pyramid params
	PyramidLevels *int `json:"pyramid_levels,omitempty"`

	// Tracker params
	WindowSize     *int     `json:"window_size,omitempty"`
	MaxIterations  *int     `json:"max_iterations,omitempty"`
	Epsilon        *float64 `json:"epsilon,omitempty"`
	MinDeterminant *float64 `json:"min_determinant,omitempty"`
	Workers        *int     `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.QualityLevel != nil {
		if *c.QualityLevel <= 0 || *c.QualityLevel > 1 {
			return fmt.Errorf("quality_level must be in (0, 1], got %f", *c.QualityLevel)
		}
	}

	if c.MinDistance != nil && *c.MinDistance < 0 {
		return fmt.Errorf("min_distance must be non-negative, got %f", *c.MinDistance)
	}

	if c.BlockSize != nil {
		if *c.BlockSize < flow.MinWindowSize || *c.BlockSize%2 == 0 {
			return fmt.Errorf("block_size must be odd and >= %d, got %d", flow.MinWindowSize, *c.BlockSize)
		}
	}

	if c.MaxFeatures != nil && *c.MaxFeatures < 0 {
		return fmt.Errorf("max_features must be non-negative, got %d", *c.MaxFeatures)
	}

	if c.PyramidLevels != nil && *c.PyramidLevels < 1 {
		return fmt.Errorf("pyramid_levels must be at least 1, got %d", *c.PyramidLevels)
	}

	if c.WindowSize != nil {
		if *c.WindowSize < flow.MinWindowSize || *c.WindowSize%2 == 0 {
			return fmt.Errorf("window_size must be odd and >= %d, got %d", flow.MinWindowSize, *c.WindowSize)
		}
	}

	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", *c.MaxIterations)
	}

	if c.Epsilon != nil && *c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %f", *c.Epsilon)
	}

	if c.MinDeterminant != nil && *c.MinDeterminant <= 0 {
		return fmt.Errorf("min_determinant must be positive, got %f", *c.MinDeterminant)
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	return nil
}

// GetQualityLevel returns the quality_level value or the default.
func (c *TuningConfig) GetQualityLevel() float64 {
	if c.QualityLevel == nil {
		return flow.DefaultQualityLevel
	}
	return *c.QualityLevel
}

// GetMinDistance returns the min_distance value or the default.
func (c *TuningConfig) GetMinDistance() float64 {
	if c.MinDistance == nil {
		return flow.DefaultMinDistance
	}
	return *c.MinDistance
}

// GetBlockSize returns the block_size value or the default.
func (c *TuningConfig) GetBlockSize() int {
	if c.BlockSize == nil {
		return flow.DefaultBlockSize
	}
	return *c.BlockSize
}

// GetMaxFeatures returns the max_features value or the default.
func (c *TuningConfig) GetMaxFeatures() int {
	if c.MaxFeatures == nil {
		return DefaultMaxFeatures
	}
	return *c.MaxFeatures
}

// GetPyramidLevels returns the pyramid_levels value or the default.
func (c *TuningConfig) GetPyramidLevels() int {
	if c.PyramidLevels == nil {
		return DefaultPyramidLevels
	}
	return *c.PyramidLevels
}

// GetWindowSize returns the window_size value or the default.
func (c *TuningConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return flow.DefaultWindowSize
	}
	return *c.WindowSize
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *TuningConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return flow.DefaultMaxIterations
	}
	return *c.MaxIterations
}

// GetEpsilon returns the epsilon value or the default.
func (c *TuningConfig) GetEpsilon() float64 {
	if c.Epsilon == nil {
		return flow.DefaultEpsilon
	}
	return *c.Epsilon
}

// GetMinDeterminant returns the min_determinant value or the default.
func (c *TuningConfig) GetMinDeterminant() float64 {
	if c.MinDeterminant == nil {
		return flow.DefaultMinDeterminant
	}
	return *c.MinDeterminant
}

// GetWorkers returns the workers value or the default (0 = GOMAXPROCS).
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// DetectParams returns the detector configuration with defaults applied.
func (c *TuningConfig) DetectParams() flow.DetectParams {
	return flow.DetectParams{
		QualityLevel: float32(c.GetQualityLevel()),
		MinDistance:  float32(c.GetMinDistance()),
		BlockSize:    c.GetBlockSize(),
	}
}

// TrackParams returns the tracker configuration with defaults applied.
func (c *TuningConfig) TrackParams() flow.TrackParams {
	return flow.TrackParams{
		WindowSize:     c.GetWindowSize(),
		MaxIterations:  c.GetMaxIterations(),
		Epsilon:        float32(c.GetEpsilon()),
		MinDeterminant: float32(c.GetMinDeterminant()),
		Workers:        c.GetWorkers(),
	}
}
