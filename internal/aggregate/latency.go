package aggregate

import (
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/series"
	"github.com/xtxerr/tierstat/internal/telemetry"
)

// Observer receives every normalized request latency, in nanoseconds per
// byte, together with the tier it was served from.
type Observer func(tier int, nsPerByte float64)

// TierLatency returns the mean normalized latency of each of numTiers
// tiers. A tier without samples yields 0. When the timestep carries no
// request capture at all every tier yields no data.
//
// Requests must reference an object resident in the same tier and that
// object must have a positive size.
func TierLatency(s *telemetry.TimestepSnapshot, numTiers int, observe Observer) ([]series.Value, error) {
	out := make([]series.Value, numTiers)
	if !s.HasLatency() {
		for i := range out {
			out[i] = series.NoData()
		}
		return out, nil
	}

	for tier := 0; tier < numTiers; tier++ {
		if tier >= len(s.Tiers) {
			out[tier] = series.Of(0)
			continue
		}
		ts := &s.Tiers[tier]

		var sum float64
		var count int
		for id, reqs := range ts.Reqs {
			if len(reqs) == 0 {
				continue
			}
			file, ok := ts.Files[id]
			if !ok {
				return nil, errors.NewMalformed(s.Index, tier, id, "requests for an object not resident in the tier")
			}
			if file.Size <= 0 {
				return nil, errors.NewMalformed(s.Index, tier, id, "object size must be positive")
			}

			size := float64(file.Size)
			for _, r := range reqs {
				v := float64(r.ResponseTimeNanos) / size
				sum += v
				count++
				if observe != nil {
					observe(tier, v)
				}
			}
		}

		if count == 0 {
			out[tier] = series.Of(0)
			continue
		}
		out[tier] = series.Of(sum / float64(count))
	}
	return out, nil
}
