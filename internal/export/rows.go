package export

import (
	"github.com/xtxerr/tierstat/internal/aggregate"
	"github.com/xtxerr/tierstat/internal/series"
)

// SeriesRow is one timestep of one series in Parquet format.
type SeriesRow struct {
	Analysis string   `parquet:"analysis,zstd"`
	Series   string   `parquet:"series,zstd"`
	Tier     int32    `parquet:"tier"`
	Timestep int64    `parquet:"timestep"`
	Value    *float64 `parquet:"value,optional"`
}

// StatsRow is a run-wide aggregate in Parquet format.
type StatsRow struct {
	Key       string   `parquet:"key,zstd"`
	Count     int64    `parquet:"count"`
	Sum       float64  `parquet:"sum"`
	Min       float64  `parquet:"min"`
	Max       float64  `parquet:"max"`
	Avg       float64  `parquet:"avg"`
	P50       *float64 `parquet:"p50,optional"`
	P90       *float64 `parquet:"p90,optional"`
	P95       *float64 `parquet:"p95,optional"`
	P99       *float64 `parquet:"p99,optional"`
	FirstStep int64    `parquet:"first_step"`
	LastStep  int64    `parquet:"last_step"`
}

// SeriesToRows converts a series to one row per timestep.
func SeriesToRows(s *series.Series) []SeriesRow {
	rows := make([]SeriesRow, len(s.Values))
	for i, v := range s.Values {
		rows[i] = SeriesRow{
			Analysis: s.Analysis,
			Series:   s.Name,
			Tier:     int32(s.Tier),
			Timestep: int64(i),
			Value:    v.Ptr(),
		}
	}
	return rows
}

// RowsToSeries groups rows back into series in first-seen order.
// Timesteps missing from the rows become no data.
func RowsToSeries(rows []SeriesRow) []*series.Series {
	var out []*series.Series
	index := make(map[string]*series.Series)

	for i := range rows {
		r := &rows[i]
		if r.Timestep < 0 {
			continue
		}
		key := r.Analysis + "/" + r.Series
		s, ok := index[key]
		if !ok {
			s = series.New(r.Analysis, r.Series, int(r.Tier), 0)
			index[key] = s
			out = append(out, s)
		}
		for int64(s.Len()) < r.Timestep {
			s.Append(series.NoData())
		}
		if int64(s.Len()) == r.Timestep {
			s.Append(series.FromPtr(r.Value))
		} else {
			s.Values[r.Timestep] = series.FromPtr(r.Value)
		}
	}
	return out
}

// ResultToRow converts an aggregate result to a StatsRow.
func ResultToRow(a *aggregate.Result) StatsRow {
	return StatsRow{
		Key:       a.Key,
		Count:     a.Count,
		Sum:       a.Sum,
		Min:       a.Min,
		Max:       a.Max,
		Avg:       a.Avg,
		P50:       a.P50,
		P90:       a.P90,
		P95:       a.P95,
		P99:       a.P99,
		FirstStep: int64(a.FirstStep),
		LastStep:  int64(a.LastStep),
	}
}
