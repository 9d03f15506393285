package export

import (
	"fmt"
	"path/filepath"

	"github.com/xtxerr/tierstat/internal/analysis"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/logging"
	"github.com/xtxerr/tierstat/internal/series"
)

// WriteReport writes the report into dir, one Parquet file per
// analysis, and returns the paths written. Latency statistics are only
// written when the report has any.
func WriteReport(dir string, r *analysis.Report, opts Options) ([]string, error) {
	log := logging.Component("export")

	files := []struct {
		name   string
		series [][]*series.Series
	}{
		{constants.CohortLevelsFile, [][]*series.Series{r.Cohorts}},
		{constants.TierLatencyFile, [][]*series.Series{r.Latency}},
		{constants.TierCapacityFile, [][]*series.Series{r.Used, r.Total}},
	}

	var paths []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		n, err := writeSeries(path, opts, f.series...)
		if err != nil {
			return paths, err
		}
		log.Debug("series exported", "path", path, "rows", n)
		paths = append(paths, path)
	}

	if len(r.LatencyStats) > 0 {
		path := filepath.Join(dir, constants.LatencyStatsFile)
		if err := writeStats(path, opts, r); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	log.Info("report exported", "dir", dir, "files", len(paths))
	return paths, nil
}

func writeSeries(path string, opts Options, groups ...[]*series.Series) (int64, error) {
	w, err := NewWriter[SeriesRow](path, opts)
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", path, err)
	}

	for _, group := range groups {
		for _, s := range group {
			if err := w.Write(SeriesToRows(s)); err != nil {
				w.Close()
				return 0, fmt.Errorf("export %s: %w", s.Key(), err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("export %s: %w", path, err)
	}
	return w.RowCount(), nil
}

func writeStats(path string, opts Options, r *analysis.Report) error {
	w, err := NewWriter[StatsRow](path, opts)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}

	rows := make([]StatsRow, len(r.LatencyStats))
	for i := range r.LatencyStats {
		rows[i] = ResultToRow(&r.LatencyStats[i])
	}
	if err := w.Write(rows); err != nil {
		w.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return w.Close()
}
