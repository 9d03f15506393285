package telemetry

import (
	"fmt"

	"github.com/xtxerr/tierstat/internal/constants"
)

// Tier is a zero-based storage tier index; 0 is the fastest tier.
type Tier int

const (
	TierFastest Tier = iota
	TierFast
	TierSlow
	TierSlowest
)

// String returns the display name of the tier.
func (t Tier) String() string {
	if t >= 0 && int(t) < len(constants.TierNames) {
		return constants.TierNames[t]
	}
	return fmt.Sprintf("tier%d", int(t))
}

// Level returns the one-based tier level used by cohort values
// (1 = fastest).
func (t Tier) Level() int {
	return int(t) + 1
}
