// Package query runs SQL over exported series files with DuckDB.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/tierstat/internal/aggregate"
	"github.com/xtxerr/tierstat/internal/config"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/logging"
	"github.com/xtxerr/tierstat/internal/series"
	"github.com/xtxerr/tierstat/internal/validation"
)

// View names registered over an export directory.
const (
	SeriesView       = "series"
	LatencyStatsView = "latency_stats"
)

// Service provides query capabilities over an export directory.
// Series files are exposed as the view "series" and latency statistics,
// when present, as "latency_stats".
type Service struct {
	mu sync.RWMutex

	config config.QueryConfig
	db     *sql.DB
	dir    string

	hasStats bool

	// Statistics
	stats ServiceStats
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// SeriesQuery selects points of the exported series.
type SeriesQuery struct {
	// Analysis filters by analysis name. Empty matches all.
	Analysis string
	// SeriesPrefix filters by series name prefix. Empty matches all.
	SeriesPrefix string
	// FromStep and ToStep bound the timestep range, inclusive.
	// ToStep < 0 leaves the range open.
	FromStep int64
	ToStep   int64
	// Limit caps the result. 0 uses the configured maximum.
	Limit int
}

// Point is one series value.
type Point struct {
	Analysis string
	Series   string
	Tier     int
	Timestep int64
	Value    series.Value
}

// Summary holds SQL-side statistics of one series.
type Summary struct {
	Analysis string
	Series   string
	Points   int64
	NoData   int64
	Min      series.Value
	Max      series.Value
	Avg      series.Value
}

// New opens an in-memory DuckDB database with views over the series
// files in dir.
func New(dir string, cfg config.QueryConfig) (*Service, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	// Configure DuckDB
	if cfg.MemoryLimit != "" {
		_, err = db.Exec(fmt.Sprintf("SET memory_limit='%s'", quote(cfg.MemoryLimit)))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	s := &Service{
		config: cfg,
		db:     db,
		dir:    dir,
	}
	if err := s.createViews(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Component("query").Debug("query service ready", "dir", dir, "latency_stats", s.hasStats)
	return s, nil
}

func (s *Service) createViews() error {
	var files []string
	for _, name := range []string{constants.CohortLevelsFile, constants.TierLatencyFile, constants.TierCapacityFile} {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); err == nil {
			files = append(files, "'"+quote(path)+"'")
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no series files in %s: %w", s.dir, errors.ErrNotFound)
	}

	stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM read_parquet([%s])", SeriesView, strings.Join(files, ", "))
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create series view: %w", err)
	}

	stats := filepath.Join(s.dir, constants.LatencyStatsFile)
	if _, err := os.Stat(stats); err == nil {
		stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM read_parquet('%s')", LatencyStatsView, quote(stats))
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create latency stats view: %w", err)
		}
		s.hasStats = true
	}
	return nil
}

// quote escapes a string for a single-quoted SQL literal.
func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Close closes the query service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Dir returns the export directory the service reads.
func (s *Service) Dir() string {
	return s.dir
}

// QuerySeries returns the points matching q ordered by analysis, series
// and timestep.
func (s *Service) QuerySeries(ctx context.Context, q SeriesQuery) ([]Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT analysis, series, tier, timestep, value
		FROM series
		WHERE ($1 = '' OR analysis = $1)
		  AND series LIKE $2 ESCAPE '\'
		  AND timestep >= $3
		  AND ($4 < 0 OR timestep <= $4)
		ORDER BY analysis, series, timestep
	`
	if limit := s.limit(q.Limit); limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query,
		q.Analysis,
		validation.SafeLikePrefix(q.SeriesPrefix),
		q.FromStep,
		q.ToStep,
	)
	if err != nil {
		s.stats.Errors++
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		var tier int32
		var value sql.NullFloat64
		if err := rows.Scan(&p.Analysis, &p.Series, &tier, &p.Timestep, &value); err != nil {
			s.stats.Errors++
			return nil, fmt.Errorf("scan row: %w", err)
		}
		p.Tier = int(tier)
		p.Value = nullValue(value)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		s.stats.Errors++
		return nil, err
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(points))
	return points, nil
}

// Summaries returns per-series statistics computed by DuckDB.
func (s *Service) Summaries(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT analysis, series,
			count(*) AS points,
			count(*) - count(value) AS no_data,
			min(value), max(value), avg(value)
		FROM series
		GROUP BY analysis, series
		ORDER BY analysis, series
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.stats.Errors++
		return nil, fmt.Errorf("summarize series: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var min, max, avg sql.NullFloat64
		if err := rows.Scan(&sum.Analysis, &sum.Series, &sum.Points, &sum.NoData, &min, &max, &avg); err != nil {
			s.stats.Errors++
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.Min, sum.Max, sum.Avg = nullValue(min), nullValue(max), nullValue(avg)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(out))
	return out, nil
}

// LatencyStats returns the exported run-wide latency statistics.
func (s *Service) LatencyStats(ctx context.Context) ([]aggregate.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasStats {
		return nil, fmt.Errorf("%s: %w", constants.LatencyStatsFile, errors.ErrNotFound)
	}

	query := `
		SELECT key, count, sum, min, max, avg,
			p50, p90, p95, p99,
			first_step, last_step
		FROM latency_stats
		ORDER BY key
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.stats.Errors++
		return nil, fmt.Errorf("query latency stats: %w", err)
	}
	defer rows.Close()

	var results []aggregate.Result
	for rows.Next() {
		var r aggregate.Result
		var p50, p90, p95, p99 sql.NullFloat64
		var first, last int64

		err := rows.Scan(
			&r.Key, &r.Count, &r.Sum, &r.Min, &r.Max, &r.Avg,
			&p50, &p90, &p95, &p99,
			&first, &last,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		r.P50, r.P90, r.P95, r.P99 = nullValue(p50).Ptr(), nullValue(p90).Ptr(), nullValue(p95).Ptr(), nullValue(p99).Ptr()
		r.FirstStep, r.LastStep = int(first), int(last)
		results = append(results, r)
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))
	return results, rows.Err()
}

// ExecuteSQL executes a raw SQL query using DuckDB.
// This is useful for ad-hoc queries and debugging.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]string, []map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.stats.Errors++
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	limit := s.limit(0)
	var results []map[string]interface{}

	for rows.Next() {
		if limit > 0 && len(results) >= limit {
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))

	return columns, results, rows.Err()
}

// Stats returns query statistics.
func (s *Service) Stats() ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Service) limit(requested int) int {
	max := s.config.MaxRows
	if requested > 0 && (max == 0 || requested < max) {
		return requested
	}
	return max
}

func nullValue(v sql.NullFloat64) series.Value {
	if !v.Valid {
		return series.NoData()
	}
	return series.Of(v.Float64)
}
