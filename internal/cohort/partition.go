package cohort

import (
	"cmp"
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/telemetry"
)

// Slot is one grid cell of a cohort: the one-based tier level of the
// object at that rank, or absent when the cohort has fewer members than
// slots.
type Slot struct {
	Level   int
	Present bool
}

// Value returns the level, or 0 for an absent slot.
func (s Slot) Value() int {
	if !s.Present {
		return 0
	}
	return s.Level
}

// Cohort is one padded cohort of a timestep.
type Cohort struct {
	Spec    Spec
	Slots   []Slot
	Members int
}

// Levels returns the slots in the zero-padded integer encoding.
func (c *Cohort) Levels() []int {
	out := make([]int, len(c.Slots))
	for i, s := range c.Slots {
		out[i] = s.Value()
	}
	return out
}

// Grid reshapes the slots row-major into a square grid.
// It returns nil when the capacity is not a perfect square.
func (c *Cohort) Grid() [][]Slot {
	side := c.Spec.Side()
	if side == 0 {
		return nil
	}
	grid := make([][]Slot, side)
	for row := range grid {
		grid[row] = c.Slots[row*side : (row+1)*side]
	}
	return grid
}

// Partition is the cohort assignment of one timestep.
type Partition struct {
	Timestep int
	Cohorts  []Cohort
}

// Fingerprint hashes the cohort names and slot values in order.
// Equal fingerprints mean identical assignments.
func (p *Partition) Fingerprint() uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 8)
	for i := range p.Cohorts {
		c := &p.Cohorts[i]
		h.WriteString(c.Spec.Name)
		buf = binary.LittleEndian.AppendUint32(buf[:0], uint32(len(c.Slots)))
		h.Write(buf)
		for _, s := range c.Slots {
			buf = binary.LittleEndian.AppendUint32(buf[:0], uint32(s.Value()))
			h.Write(buf)
		}
	}
	return h.Sum64()
}

// Partitioner splits timesteps according to a layout.
type Partitioner struct {
	layout Layout
}

// NewPartitioner creates a partitioner for a validated layout.
func NewPartitioner(layout Layout) (*Partitioner, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Partitioner{layout: slices.Clone(layout)}, nil
}

type ranked struct {
	key   uint64
	id    string
	level int
}

// Partition assigns every object of the snapshot to a cohort by the rank
// of its numeric identifier. The result does not depend on the order in
// which tiers or objects are enumerated.
func (p *Partitioner) Partition(s *telemetry.TimestepSnapshot) (*Partition, error) {
	objects := make([]ranked, 0, s.NumObjects())
	for tier := range s.Tiers {
		level := telemetry.Tier(tier).Level()
		for id := range s.Tiers[tier].Files {
			key, err := telemetry.ParseObjectID(id)
			if err != nil {
				return nil, errors.NewMalformed(s.Index, tier, id, err.Error())
			}
			objects = append(objects, ranked{key: key, id: id, level: level})
		}
	}

	slices.SortFunc(objects, func(a, b ranked) int {
		return cmp.Compare(a.key, b.key)
	})
	for i := 1; i < len(objects); i++ {
		if objects[i].key == objects[i-1].key {
			return nil, errors.NewMalformed(s.Index, -1, objects[i].id, "duplicate object identifier")
		}
	}

	if bound := p.layout.Population(); len(objects) > bound {
		return nil, errors.NewPopulationOverflow(s.Index, len(objects), bound)
	}

	part := &Partition{
		Timestep: s.Index,
		Cohorts:  make([]Cohort, len(p.layout)),
	}
	for i, spec := range p.layout {
		lo, hi := clamp(spec.Start, len(objects)), clamp(spec.End, len(objects))
		members := objects[lo:hi]
		if len(members) > spec.Capacity {
			return nil, errors.NewCohortOverflow(s.Index, spec.Name, len(members), spec.Capacity)
		}

		slots := make([]Slot, spec.Capacity)
		for j, obj := range members {
			slots[j] = Slot{Level: obj.level, Present: true}
		}
		part.Cohorts[i] = Cohort{
			Spec:    spec,
			Slots:   slots,
			Members: len(members),
		}
	}
	return part, nil
}

func clamp(rank, n int) int {
	if rank > n {
		return n
	}
	return rank
}
