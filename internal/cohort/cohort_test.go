package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/telemetry"
	"github.com/xtxerr/tierstat/internal/testutil"
)

func smallLayout() Layout {
	return Layout{
		{Name: "seldom", Start: 0, End: 5, Capacity: 9},
		{Name: "occasional", Start: 5, End: 5, Capacity: 4},
		{Name: "often", Start: 5, End: 5, Capacity: 1},
	}
}

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Validate())

	assert.Equal(t, 4728, l.Population())
	assert.Equal(t, []int{64, 26, 8}, []int{l[0].Side(), l[1].Side(), l[2].Side()})
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{"empty", Layout{}},
		{"gap", Layout{{Name: "a", Start: 0, End: 2, Capacity: 4}, {Name: "b", Start: 3, End: 4, Capacity: 1}}},
		{"not from zero", Layout{{Name: "a", Start: 1, End: 2, Capacity: 4}}},
		{"descending", Layout{{Name: "a", Start: 0, End: 5, Capacity: 4}, {Name: "b", Start: 5, End: 4, Capacity: 1}}},
		{"zero capacity", Layout{{Name: "a", Start: 0, End: 2, Capacity: 0}}},
		{"no name", Layout{{Start: 0, End: 2, Capacity: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestLayoutFromFractions(t *testing.T) {
	l, err := LayoutFromFractions([]string{"seldom", "occasional", "often"}, []float64{0.8, 0.15, 0.05}, 100)
	require.NoError(t, err)
	require.NoError(t, l.Validate())

	assert.Equal(t, []int{0, 80, 95}, []int{l[0].Start, l[1].Start, l[2].Start})
	assert.Equal(t, 100, l.Population())
	assert.Equal(t, 81, l[0].Capacity)
	assert.Equal(t, 16, l[1].Capacity)
	assert.Equal(t, 9, l[2].Capacity)

	_, err = LayoutFromFractions([]string{"a"}, []float64{0.5, 0.5}, 10)
	assert.True(t, errors.IsValidation(err))
	_, err = LayoutFromFractions([]string{"a", "b"}, []float64{0, 0}, 10)
	assert.True(t, errors.IsValidation(err))
}

func TestPartitionFiveObjects(t *testing.T) {
	p, err := NewPartitioner(smallLayout())
	require.NoError(t, err)

	snap := testutil.NewSnapshot(0, 4).Files(0, 1, 5, 1000).Build()
	part, err := p.Partition(&snap)
	require.NoError(t, err)
	require.Len(t, part.Cohorts, 3)

	seldom := part.Cohorts[0]
	assert.Equal(t, 5, seldom.Members)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 0, 0, 0, 0}, seldom.Levels())

	for _, c := range part.Cohorts[1:] {
		assert.Zero(t, c.Members)
		for _, s := range c.Slots {
			assert.False(t, s.Present)
		}
	}
}

func TestPartitionNumericOrder(t *testing.T) {
	p, err := NewPartitioner(Layout{
		{Name: "low", Start: 0, End: 2, Capacity: 4},
		{Name: "high", Start: 2, End: 4, Capacity: 4},
	})
	require.NoError(t, err)

	// Lexical order would put o10 before o2.
	snap := testutil.NewSnapshot(0, 4).
		File(3, "o10", 1).
		File(0, "o2", 1).
		File(1, "o1", 1).
		File(2, "o3", 1).
		Build()

	part, err := p.Partition(&snap)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1, 0, 0}, part.Cohorts[0].Levels())
	assert.Equal(t, []int{3, 4, 0, 0}, part.Cohorts[1].Levels())
}

func TestPartitionDefaultLayoutFull(t *testing.T) {
	p, err := NewPartitioner(DefaultLayout())
	require.NoError(t, err)

	snap := testutil.NewSnapshot(0, 4).
		Files(0, 0, 1000, 10).
		Files(1, 1000, 2000, 10).
		Files(2, 3000, 1000, 10).
		Files(3, 4000, 728, 10).
		Build()

	part, err := p.Partition(&snap)
	require.NoError(t, err)

	slots := 0
	members := 0
	for _, c := range part.Cohorts {
		slots += len(c.Slots)
		members += c.Members
	}
	assert.Equal(t, 4836, slots)
	assert.Equal(t, 4728, members)

	assert.Equal(t, 4030, part.Cohorts[0].Members)
	assert.Equal(t, 648, part.Cohorts[1].Members)
	assert.Equal(t, 50, part.Cohorts[2].Members)

	grid := part.Cohorts[0].Grid()
	require.Len(t, grid, 64)
	assert.Len(t, grid[0], 64)
	assert.Equal(t, 1, grid[0][0].Level)
	assert.Equal(t, 4, part.Cohorts[2].Slots[49].Level)
	assert.False(t, part.Cohorts[2].Slots[50].Present)
}

func TestPartitionDisjoint(t *testing.T) {
	p, err := NewPartitioner(DefaultLayout())
	require.NoError(t, err)

	snap := testutil.NewSnapshot(0, 4).
		Files(0, 0, 2000, 1).
		Files(3, 2000, 2700, 1).
		Build()
	part, err := p.Partition(&snap)
	require.NoError(t, err)

	total := 0
	for _, c := range part.Cohorts {
		present := 0
		for _, s := range c.Slots {
			if s.Present {
				present++
			}
		}
		assert.Equal(t, c.Members, present)
		assert.LessOrEqual(t, c.Members, c.Spec.Capacity)
		total += c.Members
	}
	assert.Equal(t, snap.NumObjects(), total)
}

func TestPartitionIndependentOfTierOrder(t *testing.T) {
	p, err := NewPartitioner(smallLayout())
	require.NoError(t, err)

	a := testutil.NewSnapshot(3, 4).
		File(0, "o4", 1).
		File(1, "o2", 1).
		File(2, "o3", 1).
		File(3, "o1", 1).
		Build()

	// Same placements inserted in reverse order.
	b := testutil.NewSnapshot(3, 4).
		File(3, "o1", 1).
		File(2, "o3", 1).
		File(1, "o2", 1).
		File(0, "o4", 1).
		Build()

	pa, err := p.Partition(&a)
	require.NoError(t, err)
	pb, err := p.Partition(&b)
	require.NoError(t, err)

	assert.Equal(t, pa.Fingerprint(), pb.Fingerprint())
	assert.Equal(t, pa.Cohorts, pb.Cohorts)

	// Moving one object to another tier changes the assignment.
	c := testutil.NewSnapshot(3, 4).
		File(0, "o4", 1).
		File(1, "o2", 1).
		File(2, "o3", 1).
		File(2, "o1", 1).
		Build()
	pc, err := p.Partition(&c)
	require.NoError(t, err)
	assert.NotEqual(t, pa.Fingerprint(), pc.Fingerprint())
}

func TestPartitionOverflow(t *testing.T) {
	t.Run("cohort capacity", func(t *testing.T) {
		p, err := NewPartitioner(Layout{{Name: "tiny", Start: 0, End: 10, Capacity: 4}})
		require.NoError(t, err)

		snap := testutil.NewSnapshot(7, 4).Files(0, 1, 5, 1).Build()
		_, err = p.Partition(&snap)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrCohortOverflow)

		var re *errors.RecordError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, 7, re.Timestep)
	})

	t.Run("population", func(t *testing.T) {
		p, err := NewPartitioner(smallLayout())
		require.NoError(t, err)

		snap := testutil.NewSnapshot(0, 4).Files(0, 1, 6, 1).Build()
		_, err = p.Partition(&snap)
		assert.ErrorIs(t, err, errors.ErrCohortOverflow)
	})
}

func TestPartitionMalformedIDs(t *testing.T) {
	p, err := NewPartitioner(smallLayout())
	require.NoError(t, err)

	bad := testutil.NewSnapshot(0, 4).File(0, "x1", 1).Build()
	_, err = p.Partition(&bad)
	assert.ErrorIs(t, err, errors.ErrMalformedRecord)

	dup := testutil.NewSnapshot(0, 4).File(0, "o1", 1).File(1, "o01", 1).Build()
	_, err = p.Partition(&dup)
	assert.ErrorIs(t, err, errors.ErrMalformedRecord)
}

func TestEmptySnapshot(t *testing.T) {
	p, err := NewPartitioner(DefaultLayout())
	require.NoError(t, err)

	snap := telemetry.TimestepSnapshot{Index: 0, Tiers: make([]telemetry.TierSnapshot, 4)}
	part, err := p.Partition(&snap)
	require.NoError(t, err)
	for _, c := range part.Cohorts {
		assert.Zero(t, c.Members)
		assert.Len(t, c.Slots, c.Spec.Capacity)
	}
}
