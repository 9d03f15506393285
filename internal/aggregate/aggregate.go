// Package aggregate implements the per-timestep aggregators of tier
// telemetry and the streaming statistics kept across a run.
package aggregate

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"
)

// StreamingAggregate maintains running statistics for a single series.
// It supports optional percentile calculation using DDSketch.
type StreamingAggregate struct {
	mu sync.Mutex

	key string

	// Running statistics
	count     int64
	sum       float64
	min       float64
	max       float64
	firstStep int
	lastStep  int

	// DDSketch for percentiles (nil if disabled)
	sketch   *ddsketch.DDSketch
	accuracy float64
}

// Result is a snapshot of a StreamingAggregate.
type Result struct {
	Key       string
	Count     int64
	Sum       float64
	Avg       float64
	Min       float64
	Max       float64
	FirstStep int
	LastStep  int

	// Percentiles are nil when disabled or empty.
	P50 *float64
	P90 *float64
	P95 *float64
	P99 *float64
}

// HasPercentiles reports whether percentile values are set.
func (r Result) HasPercentiles() bool {
	return r.P50 != nil
}

// New creates a StreamingAggregate without percentiles.
func New(key string) *StreamingAggregate {
	return &StreamingAggregate{
		key:       key,
		min:       math.MaxFloat64,
		max:       -math.MaxFloat64,
		firstStep: -1,
		lastStep:  -1,
	}
}

// NewWithAccuracy creates a StreamingAggregate that also tracks
// percentiles with the given relative accuracy.
func NewWithAccuracy(key string, accuracy float64) *StreamingAggregate {
	agg := New(key)
	agg.accuracy = accuracy
	agg.sketch = newSketch(accuracy)
	return agg
}

func newSketch(accuracy float64) *ddsketch.DDSketch {
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return nil
	}
	return sketch
}

// Add adds a value observed at the given timestep.
func (a *StreamingAggregate) Add(value float64, timestep int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.count++
	a.sum += value

	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}

	if a.firstStep < 0 || timestep < a.firstStep {
		a.firstStep = timestep
	}
	if timestep > a.lastStep {
		a.lastStep = timestep
	}

	if a.sketch != nil {
		// Values outside the indexable range are left out of the sketch.
		_ = a.sketch.Add(value)
	}
}

// Count returns the number of values added.
func (a *StreamingAggregate) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// IsEmpty returns true if no values have been added.
func (a *StreamingAggregate) IsEmpty() bool {
	return a.Count() == 0
}

// Key returns the series key of the aggregate.
func (a *StreamingAggregate) Key() string {
	return a.key
}

// Result returns the aggregation result.
func (a *StreamingAggregate) Result() Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := Result{
		Key:       a.key,
		Count:     a.count,
		Sum:       a.sum,
		FirstStep: a.firstStep,
		LastStep:  a.lastStep,
	}

	if a.count > 0 {
		result.Avg = a.sum / float64(a.count)
		result.Min = a.min
		result.Max = a.max
	}

	if a.sketch != nil && a.count > 0 {
		result.P50 = quantile(a.sketch, 0.50)
		result.P90 = quantile(a.sketch, 0.90)
		result.P95 = quantile(a.sketch, 0.95)
		result.P99 = quantile(a.sketch, 0.99)
	}

	return result
}

func quantile(s *ddsketch.DDSketch, q float64) *float64 {
	v, err := s.GetValueAtQuantile(q)
	if err != nil {
		return nil
	}
	return &v
}

// Merge combines another aggregate into this one.
func (a *StreamingAggregate) Merge(other *StreamingAggregate) {
	if other == nil || other == a {
		return
	}

	other.mu.Lock()
	defer other.mu.Unlock()
	if other.count == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.count += other.count
	a.sum += other.sum

	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}

	if a.firstStep < 0 || other.firstStep < a.firstStep {
		a.firstStep = other.firstStep
	}
	if other.lastStep > a.lastStep {
		a.lastStep = other.lastStep
	}

	if a.sketch != nil && other.sketch != nil {
		_ = a.sketch.MergeWith(other.sketch)
	}
}
