package aggregate

import (
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/series"
	"github.com/xtxerr/tierstat/internal/telemetry"
)

// Capacity is the byte accounting of every tier at one timestep.
type Capacity struct {
	Used  []series.Value
	Total []series.Value
}

// TierCapacity converts block counts to used and total bytes for numTiers
// tiers. Tiers missing from the record yield no data. Free blocks above
// total blocks abort with a capacity invariant violation.
func TierCapacity(rec *telemetry.UsageRecord, numTiers int, blockSize uint64) (Capacity, error) {
	c := Capacity{
		Used:  make([]series.Value, numTiers),
		Total: make([]series.Value, numTiers),
	}

	for tier := 0; tier < numTiers; tier++ {
		if tier >= len(rec.Usage) {
			c.Used[tier] = series.NoData()
			c.Total[tier] = series.NoData()
			continue
		}

		u := rec.Usage[tier]
		if u.Free > u.Total {
			return Capacity{}, errors.NewCapacityViolation(rec.Index, tier, u.Free, u.Total)
		}
		c.Used[tier] = series.Of(float64((u.Total - u.Free) * blockSize))
		c.Total[tier] = series.Of(float64(u.Total * blockSize))
	}
	return c, nil
}

// GiB converts bytes to gibibytes, keeping no data as is.
func GiB(v series.Value) series.Value {
	f, ok := v.Get()
	if !ok {
		return v
	}
	return series.Of(f / (1 << 30))
}
