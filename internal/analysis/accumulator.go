package analysis

import (
	"fmt"

	"github.com/xtxerr/tierstat/internal/aggregate"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/series"
	"github.com/xtxerr/tierstat/internal/telemetry"
)

// Accumulator appends step results to the run's series. Results must be
// appended in timestep order; the accumulator does not reorder.
type Accumulator struct {
	numTiers int

	cohorts []*series.Series
	latency []*series.Series
	used    []*series.Series
	total   []*series.Series

	latencyStats *aggregate.Manager

	steps       int
	usageSteps  int
	fingerprint uint64
	reassigned  int
}

// NewAccumulator creates series for every cohort name and every tier.
// latencyStats may be nil when percentiles are disabled.
func NewAccumulator(cohorts []string, numTiers int, latencyStats *aggregate.Manager) *Accumulator {
	a := &Accumulator{
		numTiers:     numTiers,
		latencyStats: latencyStats,
	}
	for _, name := range cohorts {
		a.cohorts = append(a.cohorts, series.New(constants.AnalysisCohortLevel, name, -1, 0))
	}

	for tier := 0; tier < numTiers; tier++ {
		name := telemetry.Tier(tier).String()
		a.latency = append(a.latency, series.New(constants.AnalysisTierLatency, name, tier, 0))
		a.used = append(a.used, series.New(constants.AnalysisTierUsed, name, tier, 0))
		a.total = append(a.total, series.New(constants.AnalysisTierTotal, name, tier, 0))
	}
	return a
}

// Append adds the values of the next tier_state timestep.
func (a *Accumulator) Append(r *StepResult) error {
	if r.Timestep != a.steps {
		return errors.WithTimestep(fmt.Errorf("out of order, expected timestep %d: %w", a.steps, errors.ErrMalformedRecord), r.Timestep)
	}
	if len(r.Levels) != len(a.cohorts) {
		return errors.WithTimestep(fmt.Errorf("%d cohort values for %d cohorts", len(r.Levels), len(a.cohorts)), r.Timestep)
	}

	for i, v := range r.Levels {
		a.cohorts[i].Append(v)
	}
	for tier := 0; tier < a.numTiers; tier++ {
		v := series.NoData()
		if tier < len(r.Latency) {
			v = r.Latency[tier]
		}
		a.latency[tier].Append(v)
	}
	if a.latencyStats != nil && r.samples != nil {
		a.latencyStats.Merge(r.samples)
	}
	if a.steps > 0 && r.Fingerprint != a.fingerprint {
		a.reassigned++
	}
	a.fingerprint = r.Fingerprint

	a.steps++
	return nil
}

// AppendUsage adds the values of the next usage record.
func (a *Accumulator) AppendUsage(r *UsageResult) error {
	if r.Timestep != a.usageSteps {
		return fmt.Errorf("append usage %d: expected %d: %w", r.Timestep, a.usageSteps, errors.ErrMalformedRecord)
	}
	for tier := 0; tier < a.numTiers; tier++ {
		a.used[tier].Append(r.Capacity.Used[tier])
		a.total[tier].Append(r.Capacity.Total[tier])
	}
	a.usageSteps++
	return nil
}

// Report returns the accumulated series. The accumulator must not be
// used afterwards.
func (a *Accumulator) Report() *Report {
	r := &Report{
		Timesteps:      a.steps,
		UsageTimesteps: a.usageSteps,
		Reassignments:  a.reassigned,
		Cohorts:        a.cohorts,
		Latency:        a.latency,
		Used:           a.used,
		Total:          a.total,
	}
	if a.latencyStats != nil {
		r.LatencyStats = a.latencyStats.Results()
		r.LatencySamples = a.latencyStats.Stats().ValuesProcessed
	}
	return r
}
