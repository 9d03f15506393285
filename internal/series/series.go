package series

import "math"

// Series is an ordered sequence of values indexed by timestep.
type Series struct {
	// Analysis groups related series (e.g. "tier_latency").
	Analysis string
	// Name identifies the series within its analysis (cohort or tier name).
	Name string
	// Tier is the zero-based tier index, or -1 for cohort series.
	Tier int

	Values []Value
}

// New creates an empty series with room for capacity timesteps.
func New(analysis, name string, tier, capacity int) *Series {
	return &Series{
		Analysis: analysis,
		Name:     name,
		Tier:     tier,
		Values:   make([]Value, 0, capacity),
	}
}

// Key returns a unique identifier for this series.
func (s *Series) Key() string {
	return s.Analysis + "/" + s.Name
}

// Append adds the value of the next timestep.
func (s *Series) Append(v Value) {
	s.Values = append(s.Values, v)
}

// Len returns the number of timesteps recorded.
func (s *Series) Len() int {
	return len(s.Values)
}

// At returns the value at timestep i, or no data when i is out of range.
func (s *Series) At(i int) Value {
	if i < 0 || i >= len(s.Values) {
		return NoData()
	}
	return s.Values[i]
}

// Summary holds run-wide statistics of a series over its present values.
type Summary struct {
	Points int
	NoData int
	Min    Value
	Max    Value
	Mean   Value
	First  Value
	Last   Value
}

// Summarize computes the summary of the series.
func (s *Series) Summarize() Summary {
	sum := Summary{Points: len(s.Values)}

	var (
		total    float64
		count    int
		min, max = math.MaxFloat64, -math.MaxFloat64
	)

	for _, v := range s.Values {
		f, ok := v.Get()
		if !ok {
			sum.NoData++
			continue
		}
		if count == 0 {
			sum.First = v
		}
		sum.Last = v
		count++
		total += f
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}

	if count > 0 {
		sum.Min = Of(min)
		sum.Max = Of(max)
		sum.Mean = Of(total / float64(count))
	}
	return sum
}
