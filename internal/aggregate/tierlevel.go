package aggregate

import (
	"github.com/xtxerr/tierstat/internal/cohort"
	"github.com/xtxerr/tierstat/internal/series"
)

// MeanTierLevel returns the mean tier level of the present slots of a
// cohort, or no data when every slot is padding.
func MeanTierLevel(c *cohort.Cohort) series.Value {
	sum, n := 0, 0
	for _, s := range c.Slots {
		if !s.Present {
			continue
		}
		sum += s.Level
		n++
	}
	if n == 0 {
		return series.NoData()
	}
	return series.Of(float64(sum) / float64(n))
}

// CohortLevels returns MeanTierLevel for every cohort of a partition in
// layout order.
func CohortLevels(p *cohort.Partition) []series.Value {
	out := make([]series.Value, len(p.Cohorts))
	for i := range p.Cohorts {
		out[i] = MeanTierLevel(&p.Cohorts[i])
	}
	return out
}
