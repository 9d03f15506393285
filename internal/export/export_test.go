package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/tierstat/internal/analysis"
	"github.com/xtxerr/tierstat/internal/config"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/series"
	"github.com/xtxerr/tierstat/internal/telemetry"
	"github.com/xtxerr/tierstat/internal/testutil"
)

func TestSeriesWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "levels.parquet")

	s := series.New(constants.AnalysisCohortLevel, "seldom", -1, 3)
	s.Append(series.Of(1.5))
	s.Append(series.NoData())
	s.Append(series.Of(0))

	w, err := NewWriter[SeriesRow](path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(SeriesToRows(s)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.RowCount() != 3 {
		t.Errorf("expected 3 rows, got %d", w.RowCount())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Write(SeriesToRows(s)); !errors.Is(err, errors.ErrWriterClosed) {
		t.Errorf("expected ErrWriterClosed, got %v", err)
	}

	got, err := ReadSeriesFile(path)
	if err != nil {
		t.Fatalf("ReadSeriesFile: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 series, got %d", len(got))
	}
	if got[0].Key() != s.Key() || got[0].Tier != -1 {
		t.Errorf("unexpected series identity %s tier %d", got[0].Key(), got[0].Tier)
	}
	want := []series.Value{series.Of(1.5), series.NoData(), series.Of(0)}
	for i, v := range want {
		if got[0].At(i) != v {
			t.Errorf("timestep %d: got %v, want %v", i, got[0].At(i), v)
		}
	}
}

func TestRowsToSeriesGaps(t *testing.T) {
	one := 1.0
	rows := []SeriesRow{
		{Analysis: "a", Series: "x", Timestep: 2, Value: &one},
		{Analysis: "a", Series: "y", Timestep: 0},
		{Analysis: "a", Series: "x", Timestep: 0, Value: &one},
		{Analysis: "a", Series: "x", Timestep: -1, Value: &one},
	}

	got := RowsToSeries(rows)
	if len(got) != 2 || got[0].Name != "x" || got[1].Name != "y" {
		t.Fatalf("unexpected series: %+v", got)
	}
	x := got[0]
	if x.Len() != 3 || x.At(0) != series.Of(1) || !x.At(1).IsNoData() || x.At(2) != series.Of(1) {
		t.Errorf("unexpected values: %v", x.Values)
	}
	if !got[1].At(0).IsNoData() {
		t.Error("null value must read back as no data")
	}
}

func TestCompressionTypes(t *testing.T) {
	for _, name := range []string{"none", "snappy", "zstd", "lz4", "gzip"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.parquet")
			opts := DefaultOptions()
			opts.Compression = ParseCompressionType(name)

			w, err := NewWriter[StatsRow](path, opts)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Write([]StatsRow{{Key: "k", Count: 1, Sum: 2}}); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			r, err := NewReader[StatsRow](path)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()

			rows, err := r.ReadAll()
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 1 || rows[0].Key != "k" || rows[0].P50 != nil {
				t.Errorf("unexpected rows %+v", rows)
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	cfg := config.DefaultConfig()
	e, err := analysis.NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	snaps := []telemetry.TimestepSnapshot{
		testutil.NewSnapshot(0, 4).File(0, "o1", 1000).Request(0, "o1", 2000, 3000).Build(),
		testutil.NewSnapshot(1, 4).File(1, "o1", 1000).Build(),
	}
	usage := []telemetry.UsageRecord{testutil.Usage(0, 10, 100)}

	report, err := e.Run(context.Background(), snaps, usage)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	paths, err := WriteReport(dir, report, DefaultOptions())
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("expected 4 files, got %v", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	levels, err := ReadSeriesFile(filepath.Join(dir, constants.CohortLevelsFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 cohort series, got %d", len(levels))
	}
	if levels[0].At(0) != series.Of(1) || levels[0].At(1) != series.Of(2) {
		t.Errorf("unexpected seldom levels %v", levels[0].Values)
	}
	if !levels[2].At(0).IsNoData() {
		t.Error("empty cohort must export as null")
	}

	capacity, err := ReadSeriesFile(filepath.Join(dir, constants.TierCapacityFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(capacity) != 8 {
		t.Fatalf("expected used and total for 4 tiers, got %d", len(capacity))
	}
	if capacity[0].Analysis != constants.AnalysisTierUsed || capacity[0].At(0) != series.Of(368640) {
		t.Errorf("unexpected used series %s %v", capacity[0].Key(), capacity[0].Values)
	}
	if capacity[4].Analysis != constants.AnalysisTierTotal || capacity[4].At(0) != series.Of(409600) {
		t.Errorf("unexpected total series %s %v", capacity[4].Key(), capacity[4].Values)
	}

	info, err := GetFileInfo(filepath.Join(dir, constants.LatencyStatsFile))
	if err != nil {
		t.Fatal(err)
	}
	if info.NumRows != 1 || len(info.Columns) != 12 {
		t.Errorf("unexpected stats file info %+v", info)
	}
}
