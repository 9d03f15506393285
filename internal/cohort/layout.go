// Package cohort partitions the object population of a timestep into
// fixed-size access cohorts by identifier rank.
package cohort

import (
	"fmt"
	"math"

	"github.com/xtxerr/tierstat/config"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
)

// Spec is one cohort: the rank range [Start, End) of the sorted
// identifier list it covers and the padded slot count.
type Spec struct {
	Name     string
	Start    int
	End      int
	Capacity int
}

// Side returns the edge length of the square grid holding Capacity slots,
// or 0 when Capacity is not a perfect square.
func (s Spec) Side() int {
	side := int(math.Sqrt(float64(s.Capacity)))
	for side*side < s.Capacity {
		side++
	}
	if side*side != s.Capacity {
		return 0
	}
	return side
}

// Layout is the ordered set of cohorts. Ranges are contiguous and
// ascending; the last End is the population the layout expects.
type Layout []Spec

// DefaultLayout returns the seldom/occasional/often layout.
func DefaultLayout() Layout {
	return Layout{
		{
			Name:     constants.CohortSeldom,
			Start:    0,
			End:      config.DefaultCohortSeldomEnd,
			Capacity: config.DefaultCohortSeldomCapacity,
		},
		{
			Name:     constants.CohortOccasional,
			Start:    config.DefaultCohortSeldomEnd,
			End:      config.DefaultCohortOccasionalEnd,
			Capacity: config.DefaultCohortOccasionalCapacity,
		},
		{
			Name:     constants.CohortOften,
			Start:    config.DefaultCohortOccasionalEnd,
			End:      config.DefaultCohortOftenEnd,
			Capacity: config.DefaultCohortOftenCapacity,
		},
	}
}

// Population returns the number of ranks covered by the layout.
func (l Layout) Population() int {
	if len(l) == 0 {
		return 0
	}
	return l[len(l)-1].End
}

// Validate checks that ranges start at 0, are contiguous and ascending,
// and that capacities are positive. A range wider than its capacity is
// accepted here; it only fails once a timestep fills it.
func (l Layout) Validate() error {
	v := errors.NewValidationErrors()
	if len(l) == 0 {
		v.AddMissing("cohorts")
		return v.Err()
	}

	next := 0
	for i, s := range l {
		field := fmt.Sprintf("cohorts[%d]", i)
		if s.Name == "" {
			v.AddMissing(field + ".name")
		}
		if s.Start != next {
			v.AddField(field+".start", fmt.Sprintf("must be %d to continue the previous range", next))
		}
		if s.End < s.Start {
			v.AddField(field+".end", "must not be below start")
		}
		if s.Capacity <= 0 {
			v.AddField(field+".capacity", "must be positive")
		}
		next = s.End
	}
	return v.Err()
}

// LayoutFromFractions derives a layout from fractions of the observed
// population. Fractions are applied in order; the last cohort takes the
// remainder so every object is covered. Capacities are rounded up to
// the next perfect square.
func LayoutFromFractions(names []string, fractions []float64, population int) (Layout, error) {
	if len(names) != len(fractions) || len(names) == 0 {
		return nil, errors.NewValidation("cohorts.fractions", "need one fraction per cohort name")
	}

	var total float64
	for _, f := range fractions {
		if f < 0 {
			return nil, errors.NewValidation("cohorts.fractions", "must not be negative")
		}
		total += f
	}
	if total <= 0 {
		return nil, errors.NewValidation("cohorts.fractions", "must sum to a positive value")
	}

	layout := make(Layout, len(names))
	start := 0
	acc := 0.0
	for i, name := range names {
		acc += fractions[i]
		end := int(math.Round(acc / total * float64(population)))
		if i == len(names)-1 {
			end = population
		}
		if end < start {
			end = start
		}
		layout[i] = Spec{
			Name:     name,
			Start:    start,
			End:      end,
			Capacity: squareCeil(end - start),
		}
		start = end
	}
	return layout, nil
}

func squareCeil(n int) int {
	if n <= 0 {
		return 1
	}
	side := int(math.Ceil(math.Sqrt(float64(n))))
	for side*side < n {
		side++
	}
	return side * side
}
