// Package export writes analysis series to Parquet files and reads them
// back.
//
// The package provides:
//   - Writer/Reader, generic over the row types below
//   - SeriesRow for per-timestep series values (null value = no data)
//   - StatsRow for run-wide latency statistics
//   - WriteReport, which lays out a report as one file per analysis
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
package export
