// Package constants provides centralized domain-specific constants
// for the tierstat analyzer.
//
// This file consolidates the file names of a benchmark run directory,
// the labels of tiers and cohorts, and the names of exported series.
package constants

// =============================================================================
// Run Directory Layout - files written by the benchmark harness
// =============================================================================

const (
	// TierStateFile holds one tier membership snapshot per line.
	TierStateFile = "tier_state.jsonl"

	// MetricsFile holds one engine metrics record per line, including
	// per-tier usage.
	MetricsFile = "betree-metrics.jsonl"

	// FilesystemMeasurementsFile holds per-object filesystem benchmark rows.
	FilesystemMeasurementsFile = "filesystem_measurements.csv"

	// EvaluationFilePattern is formatted with the evaluation variant.
	EvaluationFilePattern = "evaluation_%s.csv"

	// FramesFile is the default name of the renderer frame stream.
	FramesFile = "frames.pb"
)

// EvaluationVariants are the evaluation CSVs looked up in a run directory.
var EvaluationVariants = []string{"read", "rw"}

// =============================================================================
// Tier Labels - fastest first
// =============================================================================

// TierNames names storage tiers by index. Tiers past the table are
// rendered as "tier<N>".
var TierNames = []string{"Fastest", "Fast", "Slow", "Slowest"}

// =============================================================================
// Cohort Labels
// =============================================================================

const (
	// CohortSeldom is the cohort of seldom accessed objects.
	CohortSeldom = "seldom"

	// CohortOccasional is the cohort of occasionally accessed objects.
	CohortOccasional = "occasional"

	// CohortOften is the cohort of often accessed objects.
	CohortOften = "often"
)

// CohortNames lists cohorts in rank order.
var CohortNames = []string{CohortSeldom, CohortOccasional, CohortOften}

// =============================================================================
// Exported Series
// =============================================================================

const (
	// AnalysisCohortLevel is the mean tier level per cohort.
	AnalysisCohortLevel = "cohort_level"

	// AnalysisTierLatency is the mean normalized latency per tier (ns/byte).
	AnalysisTierLatency = "tier_latency"

	// AnalysisTierUsed is the used capacity per tier in bytes.
	AnalysisTierUsed = "tier_used_bytes"

	// AnalysisTierTotal is the total capacity per tier in bytes.
	AnalysisTierTotal = "tier_total_bytes"
)

// =============================================================================
// Export Files - written into the export directory
// =============================================================================

const (
	// CohortLevelsFile holds the cohort_level series.
	CohortLevelsFile = "cohort_levels.parquet"

	// TierLatencyFile holds the tier_latency series.
	TierLatencyFile = "tier_latency.parquet"

	// TierCapacityFile holds the used and total bytes series.
	TierCapacityFile = "tier_capacity.parquet"

	// LatencyStatsFile holds run-wide latency statistics per tier.
	LatencyStatsFile = "latency_stats.parquet"
)
