// Package testutil provides telemetry fixtures and goroutine-safe test
// helpers shared by the tierstat test suites.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/tierstat/internal/telemetry"
)

// SnapshotBuilder assembles a TimestepSnapshot tier by tier.
//
// Example:
//
//	snap := testutil.NewSnapshot(0, 4).
//	    File(0, "o1", 1000).
//	    Request(0, "o1", 2000, 3000).
//	    Build()
type SnapshotBuilder struct {
	snap telemetry.TimestepSnapshot
}

// NewSnapshot starts a snapshot for timestep index with numTiers empty tiers.
func NewSnapshot(index, numTiers int) *SnapshotBuilder {
	b := &SnapshotBuilder{snap: telemetry.TimestepSnapshot{Index: index}}
	b.snap.Tiers = make([]telemetry.TierSnapshot, numTiers)
	for i := range b.snap.Tiers {
		b.snap.Tiers[i].Files = map[string]telemetry.FileEntry{}
	}
	return b
}

// File places an object of the given size on a tier.
func (b *SnapshotBuilder) File(tier int, id string, size int64) *SnapshotBuilder {
	b.snap.Tiers[tier].Files[id] = telemetry.FileEntry{Size: size}
	return b
}

// Files places count objects o<first>..o<first+count-1> of the same size
// on a tier.
func (b *SnapshotBuilder) Files(tier int, first, count uint64, size int64) *SnapshotBuilder {
	for n := first; n < first+count; n++ {
		b.File(tier, telemetry.ObjectID(n), size)
	}
	return b
}

// Request records responses, in nanoseconds, for an object on a tier.
func (b *SnapshotBuilder) Request(tier int, id string, nanos ...uint64) *SnapshotBuilder {
	b.EnableRequests(tier)
	for _, ns := range nanos {
		b.snap.Tiers[tier].Reqs[id] = append(b.snap.Tiers[tier].Reqs[id], telemetry.Request{ResponseTimeNanos: ns})
	}
	return b
}

// EnableRequests marks a tier as capturing requests even if it has none.
func (b *SnapshotBuilder) EnableRequests(tier int) *SnapshotBuilder {
	if b.snap.Tiers[tier].Reqs == nil {
		b.snap.Tiers[tier].Reqs = map[string][]telemetry.Request{}
	}
	return b
}

// Build returns the snapshot.
func (b *SnapshotBuilder) Build() telemetry.TimestepSnapshot {
	return b.snap
}

// Usage builds a usage record from alternating free/total block counts.
func Usage(index int, freeTotal ...uint64) telemetry.UsageRecord {
	rec := telemetry.UsageRecord{Index: index}
	for i := 0; i+1 < len(freeTotal); i += 2 {
		rec.Usage = append(rec.Usage, telemetry.TierUsage{Free: freeTotal[i], Total: freeTotal[i+1]})
	}
	return rec
}

// TierStateJSONL encodes snapshots in the tier_state.jsonl line format.
func TierStateJSONL(t testing.TB, snaps ...telemetry.TimestepSnapshot) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, s := range snaps {
		line, err := telemetry.EncodeSnapshot(s)
		if err != nil {
			t.Fatalf("encode snapshot %d: %v", s.Index, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
