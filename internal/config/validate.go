package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/validation"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Tiers <= 0 {
		errs = append(errs, errors.NewValidation("tiers", "must be positive"))
	}

	if c.BlockSize == 0 {
		errs = append(errs, errors.NewValidation("block_size", "must be positive"))
	}

	if c.Workers <= 0 {
		errs = append(errs, errors.NewValidation("workers", "must be positive"))
	}

	if err := c.Cohorts.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cohorts: %w", err))
	}

	if err := c.Latency.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("latency: %w", err))
	}

	if c.Input.MaxRecordSize <= 0 {
		errs = append(errs, errors.NewValidation("input.max_record_size", "must be positive"))
	}

	if err := c.Export.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	}

	if c.Query.MaxRows < 0 {
		errs = append(errs, errors.NewValidation("query.max_rows", "must not be negative"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, errors.NewValidation("log.level", "must be one of: debug, info, warn, error"))
	}

	if c.FSBench.EvaluationRows <= 0 {
		errs = append(errs, errors.NewValidation("fsbench.evaluation_rows", "must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the cohort configuration.
func (c *CohortsConfig) Validate() error {
	seen := make(map[string]bool, len(c.Layout))
	for i, cc := range c.Layout {
		if cc.Name == "" {
			continue
		}
		field := fmt.Sprintf("layout[%d].name", i)
		if err := validation.ValidateLabel(cc.Name); err != nil {
			return errors.NewValidation(field, err.Error())
		}
		if seen[cc.Name] {
			return errors.NewValidation(field, "duplicate cohort name "+cc.Name)
		}
		seen[cc.Name] = true
	}

	if !c.UsesFractions() {
		return c.FixedLayout().Validate()
	}

	if len(c.Fractions) != len(c.Layout) {
		return errors.NewValidation("fractions", "need one fraction per cohort in layout")
	}
	for i, cc := range c.Layout {
		if cc.Name == "" {
			return errors.NewMissingField(fmt.Sprintf("layout[%d].name", i))
		}
	}
	var sum float64
	for _, f := range c.Fractions {
		if f < 0 {
			return errors.NewValidation("fractions", "must not be negative")
		}
		sum += f
	}
	if sum <= 0 {
		return errors.NewValidation("fractions", "must sum to a positive value")
	}
	return nil
}

// Validate checks the latency configuration.
func (c *LatencyConfig) Validate() error {
	if c.Percentile.Enabled && (c.Percentile.Accuracy <= 0 || c.Percentile.Accuracy >= 1) {
		return errors.NewValidation("percentile.accuracy", "must be between 0 and 1")
	}
	return nil
}

// Validate checks the export configuration.
func (c *ExportConfig) Validate() error {
	var errs []error

	validCodecs := map[string]bool{
		"snappy": true,
		"zstd":   true,
		"gzip":   true,
		"lz4":    true,
		"none":   true,
		"":       true, // Empty defaults to zstd
	}
	if !validCodecs[c.Compression] {
		errs = append(errs, errors.NewValidation("compression", "must be one of: snappy, zstd, gzip, lz4, none"))
	}

	if c.Frames && c.Dir == "" {
		errs = append(errs, errors.NewValidation("frames", "requires export.dir"))
	}

	if c.MaxFrameSize <= 0 {
		errs = append(errs, errors.NewValidation("max_frame_size", "must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogValue summarizes the configuration for startup logging.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tiers", c.Tiers),
		slog.Uint64("block_size", c.BlockSize),
		slog.Int("workers", c.Workers),
		slog.Int("cohorts", len(c.Cohorts.Layout)),
		slog.Bool("fractions", c.Cohorts.UsesFractions()),
		slog.Bool("percentiles", c.Latency.Percentile.Enabled),
		slog.String("export_dir", c.Export.Dir),
	)
}
