// Package config provides configuration defaults for the tierstat analyzer.
//
// This package defines all tunable constants with documented defaults.
// Users can override these values via a YAML config file or CLI flags.
package config

// =============================================================================
// Storage Engine Layout
// =============================================================================

const (
	// DefaultNumTiers is the number of storage classes reported by the
	// storage engine (fastest, fast, slow, slowest).
	// Override via config: tiers
	DefaultNumTiers = 4

	// DefaultBlockSize is the size of one storage block in bytes.
	// Free/total counts in the usage stream are expressed in blocks.
	// Override via config: block_size
	DefaultBlockSize = 4096
)

// =============================================================================
// Access Cohorts
// =============================================================================
//
// Objects are ranked by the integer part of their identifier and split
// into three cohorts. The ranges assume the workload generator's object
// population of 4728 objects; capacities are perfect squares so every
// cohort renders as a square grid.

const (
	// DefaultCohortSeldomEnd is the exclusive rank bound of the seldom
	// accessed cohort, which starts at rank 0.
	// Override via config: cohorts[0].end
	DefaultCohortSeldomEnd = 4030

	// DefaultCohortOccasionalEnd is the exclusive rank bound of the
	// occasionally accessed cohort.
	// Override via config: cohorts[1].end
	DefaultCohortOccasionalEnd = 4678

	// DefaultCohortOftenEnd is the exclusive rank bound of the often
	// accessed cohort.
	// Override via config: cohorts[2].end
	DefaultCohortOftenEnd = 4728

	// DefaultCohortSeldomCapacity is the padded slot count (64x64).
	DefaultCohortSeldomCapacity = 4096

	// DefaultCohortOccasionalCapacity is the padded slot count (26x26).
	DefaultCohortOccasionalCapacity = 676

	// DefaultCohortOftenCapacity is the padded slot count (8x8).
	DefaultCohortOftenCapacity = 64
)

// =============================================================================
// Analysis Defaults
// =============================================================================

const (
	// DefaultWorkers is the number of timesteps stepped concurrently.
	// 1 keeps strictly sequential streaming.
	// Override via config: workers
	DefaultWorkers = 1

	// DefaultPercentileAccuracy is the DDSketch relative accuracy used for
	// run-wide latency percentiles.
	// Override via config: latency.percentile_accuracy
	DefaultPercentileAccuracy = 0.01

	// DefaultMaxRecordSize bounds a single JSONL record (one timestep).
	// Override via config: input.max_record_size
	DefaultMaxRecordSize = 256 * 1024 * 1024
)

// =============================================================================
// Output Defaults
// =============================================================================

const (
	// DefaultCompression is the Parquet compression codec for exports.
	// Override via config: export.compression
	DefaultCompression = "zstd"

	// DefaultQueryMemoryLimit is the DuckDB memory limit for the query shell.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "1GB"

	// DefaultMaxFrameSize limits one protobuf frame in the renderer stream.
	DefaultMaxFrameSize = 64 * 1024 * 1024

	// DefaultEvaluationRows is how many rows of an evaluation CSV are
	// summarized, matching the scatter plots of the workload harness.
	DefaultEvaluationRows = 5000
)
