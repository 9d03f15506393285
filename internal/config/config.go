// Package config loads the YAML configuration of a tierstat run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/tierstat/config"
	"github.com/xtxerr/tierstat/internal/cohort"
	"github.com/xtxerr/tierstat/internal/errors"
)

// Config represents the complete analyzer configuration.
type Config struct {
	// Tiers is the number of storage tiers, fastest first.
	Tiers int `yaml:"tiers"`

	// BlockSize is the byte size of one block in the usage stream.
	BlockSize uint64 `yaml:"block_size"`

	// Workers is the number of timesteps stepped concurrently.
	Workers int `yaml:"workers"`

	// Cohorts configures the access cohort layout.
	Cohorts CohortsConfig `yaml:"cohorts"`

	// Latency configures latency statistics.
	Latency LatencyConfig `yaml:"latency"`

	// Input configures telemetry decoding.
	Input InputConfig `yaml:"input"`

	// Export configures Parquet and frame output.
	Export ExportConfig `yaml:"export"`

	// Query configures the DuckDB query service.
	Query QueryConfig `yaml:"query"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	// FSBench configures the filesystem benchmark summaries.
	FSBench FSBenchConfig `yaml:"fsbench"`
}

// CohortConfig is one cohort of the layout.
type CohortConfig struct {
	Name     string `yaml:"name"`
	Start    int    `yaml:"start"`
	End      int    `yaml:"end"`
	Capacity int    `yaml:"capacity"`
}

// CohortsConfig configures the cohort layout.
type CohortsConfig struct {
	// Layout lists the cohorts in rank order.
	Layout []CohortConfig `yaml:"layout"`

	// Fractions, when set, replaces the fixed ranges of Layout with
	// fractions of the population observed in the first timestep. Names
	// are taken from Layout.
	Fractions []float64 `yaml:"fractions"`
}

// LatencyConfig configures latency statistics.
type LatencyConfig struct {
	// Percentile configures DDSketch percentiles of normalized latency.
	Percentile PercentileConfig `yaml:"percentile"`
}

// PercentileConfig configures DDSketch percentile calculation.
type PercentileConfig struct {
	// Enabled enables percentile calculation.
	Enabled bool `yaml:"enabled"`

	// Accuracy is the relative accuracy (0.01 = 1% error).
	Accuracy float64 `yaml:"accuracy"`
}

// InputConfig configures telemetry decoding.
type InputConfig struct {
	// MaxRecordSize bounds one JSONL line in bytes.
	MaxRecordSize int `yaml:"max_record_size"`
}

// ExportConfig configures series export.
type ExportConfig struct {
	// Dir receives the Parquet files. Empty disables export.
	Dir string `yaml:"dir"`

	// Compression is the Parquet codec: snappy, zstd, gzip, none.
	Compression string `yaml:"compression"`

	// Frames also writes the protobuf frame stream into Dir.
	Frames bool `yaml:"frames"`

	// MaxFrameSize bounds one frame when reading the stream back.
	MaxFrameSize int `yaml:"max_frame_size"`
}

// QueryConfig configures the query service.
type QueryConfig struct {
	// MemoryLimit is the DuckDB memory limit.
	MemoryLimit string `yaml:"memory_limit"`

	// MaxRows is the maximum number of rows returned. 0 means unlimited.
	MaxRows int `yaml:"max_rows"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches to the JSON handler.
	JSON bool `yaml:"json"`
}

// FSBenchConfig configures the filesystem benchmark summaries.
type FSBenchConfig struct {
	// EvaluationRows is how many rows of each evaluation CSV are read.
	EvaluationRows int `yaml:"evaluation_rows"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w: %w", err, errors.ErrInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the documented defaults.
func DefaultConfig() *Config {
	layout := cohort.DefaultLayout()
	cohorts := make([]CohortConfig, len(layout))
	for i, s := range layout {
		cohorts[i] = CohortConfig{Name: s.Name, Start: s.Start, End: s.End, Capacity: s.Capacity}
	}

	return &Config{
		Tiers:     config.DefaultNumTiers,
		BlockSize: config.DefaultBlockSize,
		Workers:   config.DefaultWorkers,
		Cohorts: CohortsConfig{
			Layout: cohorts,
		},
		Latency: LatencyConfig{
			Percentile: PercentileConfig{
				Enabled:  true,
				Accuracy: config.DefaultPercentileAccuracy,
			},
		},
		Input: InputConfig{
			MaxRecordSize: config.DefaultMaxRecordSize,
		},
		Export: ExportConfig{
			Compression:  config.DefaultCompression,
			MaxFrameSize: config.DefaultMaxFrameSize,
		},
		Query: QueryConfig{
			MemoryLimit: config.DefaultQueryMemoryLimit,
		},
		Log: LogConfig{
			Level: "info",
		},
		FSBench: FSBenchConfig{
			EvaluationRows: config.DefaultEvaluationRows,
		},
	}
}

// FixedLayout returns the configured cohort ranges.
func (c *CohortsConfig) FixedLayout() cohort.Layout {
	layout := make(cohort.Layout, len(c.Layout))
	for i, cc := range c.Layout {
		layout[i] = cohort.Spec{Name: cc.Name, Start: cc.Start, End: cc.End, Capacity: cc.Capacity}
	}
	return layout
}

// UsesFractions reports whether the layout depends on the population.
func (c *CohortsConfig) UsesFractions() bool {
	return len(c.Fractions) > 0
}

// Names returns the cohort names in layout order.
func (c *CohortsConfig) Names() []string {
	names := make([]string, len(c.Layout))
	for i, cc := range c.Layout {
		names[i] = cc.Name
	}
	return names
}

// Resolve returns the layout for a timestep holding population objects.
func (c *CohortsConfig) Resolve(population int) (cohort.Layout, error) {
	if !c.UsesFractions() {
		return c.FixedLayout(), nil
	}
	return cohort.LayoutFromFractions(c.Names(), c.Fractions, population)
}
