package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tierstat/internal/query"
	"github.com/xtxerr/tierstat/internal/report"
)

func newQueryCmd(opts *options) *cobra.Command {
	var q query.SeriesQuery
	var summary, stats bool

	cmd := &cobra.Command{
		Use:   "query <export-dir> [sql]",
		Short: "Queries exported series with DuckDB",
		Long: `Without SQL, prints the points selected by the filter flags. With SQL, runs
it against the views "series" (analysis, series, tier, timestep, value) and
"latency_stats".`,
		Args: argsRange(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := query.New(args[0], opts.cfg.Query)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := signalContext()
			defer cancel()
			out := cmd.OutOrStdout()

			switch {
			case len(args) == 2:
				return runSQL(ctx, out, svc, args[1])
			case summary:
				sums, err := svc.Summaries(ctx)
				if err != nil {
					return err
				}
				writeSummaries(out, sums)
			case stats:
				results, err := svc.LatencyStats(ctx)
				if err != nil {
					return err
				}
				report.WriteLatencyStats(out, results)
			default:
				points, err := svc.QuerySeries(ctx, q)
				if err != nil {
					return err
				}
				writePoints(out, points)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&q.Analysis, "analysis", "", "only this analysis, e.g. cohort_level")
	f.StringVar(&q.SeriesPrefix, "series", "", "only series with this name prefix")
	f.Int64Var(&q.FromStep, "from", 0, "first timestep")
	f.Int64Var(&q.ToStep, "to", -1, "last timestep, -1 for open end")
	f.IntVar(&q.Limit, "limit", 0, "maximum points (0 uses query.max_rows)")
	f.BoolVar(&summary, "summary", false, "print per-series statistics")
	f.BoolVar(&stats, "latency-stats", false, "print run-wide latency percentiles")
	cmd.MarkFlagsMutuallyExclusive("summary", "latency-stats")
	return cmd
}

func runSQL(ctx context.Context, w io.Writer, svc *query.Service, sql string) error {
	columns, rows, err := svc.ExecuteSQL(ctx, strings.TrimSuffix(strings.TrimSpace(sql), ";"))
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	report.WriteRows(w, columns, rows)
	return nil
}

func writePoints(w io.Writer, points []query.Point) {
	columns := []string{"analysis", "series", "timestep", "value"}
	rows := make([]map[string]interface{}, len(points))
	for i, p := range points {
		rows[i] = map[string]interface{}{
			"analysis": p.Analysis,
			"series":   p.Series,
			"timestep": p.Timestep,
			"value":    report.FormatterFor(p.Analysis)(p.Value),
		}
	}
	report.WriteRows(w, columns, rows)
}

func writeSummaries(w io.Writer, sums []query.Summary) {
	columns := []string{"analysis", "series", "points", "no data", "min", "avg", "max"}
	rows := make([]map[string]interface{}, len(sums))
	for i, s := range sums {
		format := report.FormatterFor(s.Analysis)
		rows[i] = map[string]interface{}{
			"analysis": s.Analysis,
			"series":   s.Series,
			"points":   s.Points,
			"no data":  s.NoData,
			"min":      format(s.Min),
			"avg":      format(s.Avg),
			"max":      format(s.Max),
		}
	}
	report.WriteRows(w, columns, rows)
}
