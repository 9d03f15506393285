// Package series defines the time-series values handed from the analysis
// engine to renderers, exporters and reports.
//
// Key types:
//   - Value: a numeric sample or an explicit "no data" marker
//   - Series: an ordered sequence of Values, one per timestep
//   - Summary: run-wide statistics of a Series
package series
