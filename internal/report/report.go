// Package report renders analysis results as plain-text tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/xtxerr/tierstat/internal/aggregate"
	"github.com/xtxerr/tierstat/internal/analysis"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/fsbench"
	"github.com/xtxerr/tierstat/internal/series"
)

const noData = "-"

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetBorder(false)
	t.SetHeaderLine(true)
	t.SetColumnSeparator(" ")
	t.SetCenterSeparator(" ")
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	t.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

// leftColumns left-aligns the first n of total columns. The table resets
// alignment lists shorter than its column count, so the list covers all.
func leftColumns(n, total int) []int {
	align := make([]int, total)
	for i := range align {
		align[i] = tablewriter.ALIGN_RIGHT
		if i < n {
			align[i] = tablewriter.ALIGN_LEFT
		}
	}
	return align
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

// Formatter renders one value of an analysis.
type Formatter func(series.Value) string

// FormatterFor returns the formatter of an analysis: GiB for capacity,
// ns/byte for latency, two decimals otherwise.
func FormatterFor(analysisName string) Formatter {
	switch analysisName {
	case constants.AnalysisTierUsed, constants.AnalysisTierTotal:
		return func(v series.Value) string {
			return number(aggregate.GiB(v), 2, " GiB")
		}
	case constants.AnalysisTierLatency:
		return func(v series.Value) string {
			return number(v, 3, " ns/B")
		}
	default:
		return func(v series.Value) string {
			return number(v, 2, "")
		}
	}
}

func number(v series.Value, digits int, unit string) string {
	f, ok := v.Get()
	if !ok {
		return noData
	}
	return humanize.CommafWithDigits(f, digits) + unit
}

func count(n int64) string {
	return humanize.Comma(n)
}

func optional(p *float64, digits int) string {
	return number(series.FromPtr(p), digits, "")
}

// WriteSeries writes one summary row per series of the report.
func WriteSeries(w io.Writer, r *analysis.Report) {
	section(w, fmt.Sprintf("Series (%d tier_state timesteps, %d usage records)", r.Timesteps, r.UsageTimesteps))

	t := newTable(w, "analysis", "series", "points", "no data", "min", "mean", "max", "last")
	t.SetColumnAlignment(leftColumns(2, 8))
	for _, s := range r.AllSeries() {
		format := FormatterFor(s.Analysis)
		sum := s.Summarize()
		t.Append([]string{
			s.Analysis,
			s.Name,
			count(int64(sum.Points)),
			count(int64(sum.NoData)),
			format(sum.Min),
			format(sum.Mean),
			format(sum.Max),
			format(sum.Last),
		})
	}
	t.Render()
}

// WriteLatencyStats writes run-wide normalized latency statistics.
func WriteLatencyStats(w io.Writer, results []aggregate.Result) {
	if len(results) == 0 {
		return
	}
	section(w, "Normalized latency (ns/byte)")

	t := newTable(w, "tier", "requests", "mean", "p50", "p90", "p99", "max")
	t.SetColumnAlignment(leftColumns(1, 7))
	for _, r := range results {
		t.Append([]string{
			strings.TrimPrefix(r.Key, constants.AnalysisTierLatency+"/"),
			count(r.Count),
			humanize.CommafWithDigits(r.Avg, 3),
			optional(r.P50, 3),
			optional(r.P90, 3),
			optional(r.P99, 3),
			humanize.CommafWithDigits(r.Max, 3),
		})
	}
	t.Render()
}

// WriteFSBench writes the filesystem and evaluation benchmark summaries.
func WriteFSBench(w io.Writer, s *fsbench.Summary) {
	if s == nil || s.IsEmpty() {
		return
	}

	if len(s.Buckets) > 0 {
		section(w, "Filesystem latency by access group and size (µs)")
		t := newTable(w, "group", "size", "objects", "read mean", "read p50", "read p99", "write mean", "write p50", "write p99")
		t.SetColumnAlignment(leftColumns(2, 9))
		for i := range s.Buckets {
			b := &s.Buckets[i]
			t.Append([]string{
				b.GroupName(),
				"≤" + b.Label(),
				count(b.Read.Count),
				humanize.CommafWithDigits(b.Read.Avg, 1),
				optional(b.Read.P50, 1),
				optional(b.Read.P99, 1),
				humanize.CommafWithDigits(b.Write.Avg, 1),
				optional(b.Write.P50, 1),
				optional(b.Write.P99, 1),
			})
		}
		t.Render()
	}

	if len(s.Evaluations) > 0 {
		section(w, "Evaluation latency (ns)")
		t := newTable(w, "variant", "samples", "bytes", "mean", "p50", "p99", "max")
		t.SetColumnAlignment(leftColumns(1, 7))
		for _, e := range s.Evaluations {
			t.Append([]string{
				e.Variant,
				count(e.Latency.Count),
				humanize.IBytes(uint64(e.Bytes)),
				humanize.CommafWithDigits(e.Latency.Avg, 0),
				optional(e.Latency.P50, 0),
				optional(e.Latency.P99, 0),
				humanize.CommafWithDigits(e.Latency.Max, 0),
			})
		}
		t.Render()
	}
}

// Write writes the full text report. fs may be nil.
func Write(w io.Writer, r *analysis.Report, fs *fsbench.Summary) {
	if r != nil {
		WriteSeries(w, r)
		WriteLatencyStats(w, r.LatencyStats)
	}
	WriteFSBench(w, fs)
}

// WriteRows writes query results as a table. Columns keep their query
// order; NULL renders as "-".
func WriteRows(w io.Writer, columns []string, rows []map[string]interface{}) {
	t := newTable(w, columns...)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range rows {
		line := make([]string, len(columns))
		for i, col := range columns {
			line[i] = cell(row[col])
		}
		t.Append(line)
	}
	t.Render()
	fmt.Fprintf(w, "(%s rows)\n", humanize.Comma(int64(len(rows))))
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return noData
	case float64:
		return humanize.FtoaWithDigits(x, 6)
	case float32:
		return humanize.FtoaWithDigits(float64(x), 6)
	case []byte:
		return string(x)
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + cell(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(x)
	}
}
