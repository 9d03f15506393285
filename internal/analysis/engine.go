// Package analysis drives a tierstat run: it steps every timestep through
// validation, cohort partitioning and the aggregators, and accumulates
// the results into ordered series.
package analysis

import (
	"log/slog"

	"github.com/xtxerr/tierstat/internal/aggregate"
	"github.com/xtxerr/tierstat/internal/cohort"
	"github.com/xtxerr/tierstat/internal/config"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/logging"
	"github.com/xtxerr/tierstat/internal/series"
	"github.com/xtxerr/tierstat/internal/telemetry"
	"github.com/xtxerr/tierstat/internal/validation"
)

// Engine evaluates timesteps. It is safe for concurrent use.
type Engine struct {
	cfg *config.Config
	log *slog.Logger

	// fixed is nil when the layout follows each timestep's population.
	fixed *cohort.Partitioner
	names []string
}

// StepResult holds everything derived from one tier_state timestep.
type StepResult struct {
	Timestep int

	// Partition holds the padded cohorts, including their grids.
	Partition *cohort.Partition

	// Fingerprint identifies the cohort assignment of Partition.
	Fingerprint uint64

	// Levels is the mean tier level of each cohort in layout order.
	Levels []series.Value

	// Latency is the mean normalized latency of each tier.
	Latency []series.Value

	// samples holds this step's normalized latencies when percentiles
	// are enabled.
	samples *aggregate.Manager
}

// UsageResult holds the capacity accounting of one usage record.
type UsageResult struct {
	Timestep int
	Capacity aggregate.Capacity
}

// NewEngine creates an engine for a validated configuration.
func NewEngine(cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:   cfg,
		log:   logging.Component("analysis"),
		names: cfg.Cohorts.Names(),
	}

	if !cfg.Cohorts.UsesFractions() {
		p, err := cohort.NewPartitioner(cfg.Cohorts.FixedLayout())
		if err != nil {
			return nil, err
		}
		e.fixed = p
	}
	return e, nil
}

// CohortNames returns the cohort names in layout order. They do not
// change between timesteps, even when the ranges do.
func (e *Engine) CohortNames() []string {
	return e.names
}

// partitioner returns the partitioner for snap. A fraction layout is
// derived from the population of every timestep.
func (e *Engine) partitioner(snap *telemetry.TimestepSnapshot) (*cohort.Partitioner, error) {
	if e.fixed != nil {
		return e.fixed, nil
	}
	layout, err := e.cfg.Cohorts.Resolve(snap.NumObjects())
	if err != nil {
		return nil, err
	}
	return cohort.NewPartitioner(layout)
}

// Step evaluates one timestep.
func (e *Engine) Step(snap *telemetry.TimestepSnapshot) (*StepResult, error) {
	if err := validation.ValidateSnapshot(snap, e.cfg.Tiers); err != nil {
		return nil, err
	}

	p, err := e.partitioner(snap)
	if err != nil {
		return nil, err
	}

	part, err := p.Partition(snap)
	if err != nil {
		return nil, err
	}

	res := &StepResult{
		Timestep:    snap.Index,
		Partition:   part,
		Fingerprint: part.Fingerprint(),
		Levels:      aggregate.CohortLevels(part),
	}

	var observe aggregate.Observer
	if pc := e.cfg.Latency.Percentile; pc.Enabled {
		res.samples = aggregate.NewManagerWithAccuracy(pc.Accuracy)
		observe = func(tier int, v float64) {
			res.samples.Observe(LatencyKey(tier), v, snap.Index)
		}
	}

	res.Latency, err = aggregate.TierLatency(snap, e.cfg.Tiers, observe)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// StepUsage evaluates one usage record.
func (e *Engine) StepUsage(rec *telemetry.UsageRecord) (*UsageResult, error) {
	if err := validation.ValidateUsage(rec, e.cfg.Tiers); err != nil {
		return nil, err
	}
	c, err := aggregate.TierCapacity(rec, e.cfg.Tiers, e.cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	return &UsageResult{Timestep: rec.Index, Capacity: c}, nil
}

// LatencyKey is the aggregate key of a tier's normalized latency.
func LatencyKey(tier int) string {
	return constants.AnalysisTierLatency + "/" + telemetry.Tier(tier).String()
}
