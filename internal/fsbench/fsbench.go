// Package fsbench summarizes the filesystem and evaluation benchmarks of a
// run directory: latency statistics per access group and size bucket, and
// per evaluation variant.
package fsbench

import (
	"cmp"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/xtxerr/tierstat/internal/aggregate"
	"github.com/xtxerr/tierstat/internal/config"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/logging"
)

// BucketSummary holds read and write latency statistics of one access
// group and size bucket, in microseconds.
type BucketSummary struct {
	Group  int
	Bucket int64
	Read   aggregate.Result
	Write  aggregate.Result
}

// GroupName returns the cohort name of the access group.
func (b *BucketSummary) GroupName() string {
	return GroupName(b.Group)
}

// Label returns the bucket label, e.g. "256.0KB".
func (b *BucketSummary) Label() string {
	return BucketLabel(b.Bucket)
}

// GroupName maps an access group to its cohort name; groups past the
// known cohorts render as "group<N>".
func GroupName(group int) string {
	if group >= 0 && group < len(constants.CohortNames) {
		return constants.CohortNames[group]
	}
	return fmt.Sprintf("group%d", group)
}

// EvaluationSummary holds latency statistics of one evaluation variant,
// in nanoseconds.
type EvaluationSummary struct {
	Variant string
	Latency aggregate.Result
	Bytes   int64
}

// Summary is the benchmark summary of a run directory.
type Summary struct {
	Buckets     []BucketSummary
	Evaluations []EvaluationSummary
}

// IsEmpty reports whether the run directory held no benchmark data.
func (s *Summary) IsEmpty() bool {
	return len(s.Buckets) == 0 && len(s.Evaluations) == 0
}

type bucketKey struct {
	group  int
	bucket int64
}

// Summarize groups measurements by access group and size bucket. Results
// are ordered by group, then bucket. accuracy <= 0 disables percentiles.
func Summarize(ms []Measurement, accuracy float64) []BucketSummary {
	type pair struct{ read, write *aggregate.StreamingAggregate }
	aggs := make(map[bucketKey]pair)

	for i, m := range ms {
		k := bucketKey{group: m.Group, bucket: SizeBucket(m.Size)}
		p, ok := aggs[k]
		if !ok {
			name := GroupName(k.group) + "/" + BucketLabel(k.bucket)
			p = pair{read: newAggregate(name+"/read", accuracy), write: newAggregate(name+"/write", accuracy)}
			aggs[k] = p
		}
		p.read.Add(m.ReadLatency/1000, i)
		p.write.Add(m.WriteLatency/1000, i)
	}

	out := make([]BucketSummary, 0, len(aggs))
	for k, p := range aggs {
		out = append(out, BucketSummary{
			Group:  k.group,
			Bucket: k.bucket,
			Read:   p.read.Result(),
			Write:  p.write.Result(),
		})
	}
	slices.SortFunc(out, func(a, b BucketSummary) int {
		if c := cmp.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		return cmp.Compare(a.Bucket, b.Bucket)
	})
	return out
}

// SummarizeEvaluation computes latency statistics of one evaluation variant.
func SummarizeEvaluation(variant string, samples []EvaluationSample, accuracy float64) EvaluationSummary {
	agg := newAggregate("evaluation/"+variant, accuracy)
	var bytes int64
	for i, s := range samples {
		agg.Add(s.Latency, i)
		bytes += s.Size
	}
	return EvaluationSummary{Variant: variant, Latency: agg.Result(), Bytes: bytes}
}

func newAggregate(key string, accuracy float64) *aggregate.StreamingAggregate {
	if accuracy > 0 {
		return aggregate.NewWithAccuracy(key, accuracy)
	}
	return aggregate.New(key)
}

// Load reads the benchmark files of a run directory. Missing files are
// skipped; malformed ones fail the load.
func Load(dir string, cfg *config.Config) (*Summary, error) {
	log := logging.Component("fsbench")

	accuracy := 0.0
	if cfg.Latency.Percentile.Enabled {
		accuracy = cfg.Latency.Percentile.Accuracy
	}

	sum := &Summary{}

	path := filepath.Join(dir, constants.FilesystemMeasurementsFile)
	ms, err := loadFile(path, LoadMeasurements)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		log.Debug("no filesystem measurements", "path", path)
	case err != nil:
		return nil, err
	default:
		sum.Buckets = Summarize(ms, accuracy)
		log.Debug("filesystem measurements loaded", "rows", len(ms), "buckets", len(sum.Buckets))
	}

	for _, variant := range constants.EvaluationVariants {
		path := filepath.Join(dir, fmt.Sprintf(constants.EvaluationFilePattern, variant))
		samples, err := loadFile(path, func(r io.Reader) ([]EvaluationSample, error) {
			return LoadEvaluation(r, cfg.FSBench.EvaluationRows)
		})
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sum.Evaluations = append(sum.Evaluations, SummarizeEvaluation(variant, samples, accuracy))
	}
	return sum, nil
}
