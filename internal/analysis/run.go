package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/tierstat/internal/aggregate"
	"github.com/xtxerr/tierstat/internal/logging"
	"github.com/xtxerr/tierstat/internal/telemetry"
)

// batchPerWorker is how many streamed timesteps each worker gets per batch.
const batchPerWorker = 16

// Run evaluates decoded timesteps and usage records. Either slice may be
// empty. Timestep indexes must count up from 0 in slice order.
func (e *Engine) Run(ctx context.Context, snaps []telemetry.TimestepSnapshot, usage []telemetry.UsageRecord) (*Report, error) {
	start := time.Now()

	acc := e.newAccumulator()
	if err := e.stepAll(ctx, acc, snaps); err != nil {
		return nil, err
	}
	for i := range usage {
		if err := e.appendUsage(acc, &usage[i]); err != nil {
			return nil, err
		}
	}

	report := acc.Report()
	e.logDone(ctx, report, start)
	return report, nil
}

// RunStream evaluates timesteps while decoding them. snaps or usage may
// be nil when the run has no such stream. With more than one worker,
// timesteps are decoded in batches and stepped concurrently; results
// are still appended in input order.
func (e *Engine) RunStream(ctx context.Context, snaps *telemetry.Reader[telemetry.TimestepSnapshot], usage *telemetry.Reader[telemetry.UsageRecord]) (*Report, error) {
	start := time.Now()

	acc := e.newAccumulator()
	if snaps != nil {
		size := 1
		if e.cfg.Workers > 1 {
			size = e.cfg.Workers * batchPerWorker
		}

		for {
			batch, err := readBatch(snaps, size)
			if err != nil {
				return nil, err
			}
			if len(batch) == 0 {
				break
			}
			if err := e.stepAll(ctx, acc, batch); err != nil {
				return nil, err
			}
		}
	}

	if usage != nil {
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := usage.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if err := e.appendUsage(acc, &rec); err != nil {
				return nil, err
			}
		}
	}

	report := acc.Report()
	e.logDone(ctx, report, start)
	return report, nil
}

func readBatch(r *telemetry.Reader[telemetry.TimestepSnapshot], size int) ([]telemetry.TimestepSnapshot, error) {
	batch := make([]telemetry.TimestepSnapshot, 0, size)
	for len(batch) < size {
		snap, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, snap)
	}
	return batch, nil
}

func (e *Engine) newAccumulator() *Accumulator {
	var stats *aggregate.Manager
	if pc := e.cfg.Latency.Percentile; pc.Enabled {
		stats = aggregate.NewManagerWithAccuracy(pc.Accuracy)
	}
	return NewAccumulator(e.CohortNames(), e.cfg.Tiers, stats)
}

// stepAll steps a batch and appends the results in order.
func (e *Engine) stepAll(ctx context.Context, acc *Accumulator, batch []telemetry.TimestepSnapshot) error {
	if e.cfg.Workers <= 1 || len(batch) <= 1 {
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.Step(&batch[i])
			if err != nil {
				return err
			}
			if err := acc.Append(r); err != nil {
				return err
			}
			e.logStep(ctx, r, &batch[i])
		}
		return nil
	}

	results := make([]*StepResult, len(batch))
	errs := make([]error, len(batch))

	// Every timestep of the batch is stepped so the reported error is
	// always the earliest failing one.
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = e.Step(&batch[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	for i, r := range results {
		if err := acc.Append(r); err != nil {
			return err
		}
		e.logStep(ctx, r, &batch[i])
	}
	return nil
}

func (e *Engine) logStep(ctx context.Context, r *StepResult, snap *telemetry.TimestepSnapshot) {
	if !e.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	logging.WithContext(logging.ContextWithTimestep(ctx, r.Timestep)).Debug("timestep evaluated",
		"component", "analysis",
		"objects", snap.NumObjects(),
		"assignment", fmt.Sprintf("%016x", r.Fingerprint))
}

func (e *Engine) appendUsage(acc *Accumulator, rec *telemetry.UsageRecord) error {
	r, err := e.StepUsage(rec)
	if err != nil {
		return err
	}
	return acc.AppendUsage(r)
}

func (e *Engine) logDone(ctx context.Context, r *Report, start time.Time) {
	logging.WithContext(ctx).With("component", "analysis").Info("analysis complete",
		"timesteps", r.Timesteps,
		"usage_timesteps", r.UsageTimesteps,
		"cohorts", len(r.Cohorts),
		"reassignments", r.Reassignments,
		"latency_samples", r.LatencySamples,
		"tiers", e.cfg.Tiers,
		"workers", e.cfg.Workers,
		"duration", time.Since(start))
}
