package analysis

import (
	"github.com/xtxerr/tierstat/internal/aggregate"
	"github.com/xtxerr/tierstat/internal/series"
)

// Report is the outcome of a run.
type Report struct {
	// Timesteps is the number of tier_state timesteps processed.
	Timesteps int
	// UsageTimesteps is the number of usage records processed.
	UsageTimesteps int
	// Reassignments counts timesteps whose cohort assignment differs
	// from the previous timestep's.
	Reassignments int

	Cohorts []*series.Series
	Latency []*series.Series
	Used    []*series.Series
	Total   []*series.Series

	// LatencyStats holds run-wide normalized latency statistics per tier,
	// ordered by key. Empty when percentiles are disabled.
	LatencyStats []aggregate.Result
	// LatencySamples is the number of normalized latencies behind
	// LatencyStats.
	LatencySamples int64
}

// AllSeries returns every series of the report: cohorts, latency, used
// bytes and total bytes.
func (r *Report) AllSeries() []*series.Series {
	out := make([]*series.Series, 0, len(r.Cohorts)+len(r.Latency)+len(r.Used)+len(r.Total))
	out = append(out, r.Cohorts...)
	out = append(out, r.Latency...)
	out = append(out, r.Used...)
	out = append(out, r.Total...)
	return out
}

// Find returns the series with the given analysis and name.
func (r *Report) Find(analysis, name string) (*series.Series, bool) {
	for _, s := range r.AllSeries() {
		if s.Analysis == analysis && s.Name == name {
			return s, true
		}
	}
	return nil, false
}
