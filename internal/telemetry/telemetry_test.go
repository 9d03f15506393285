package telemetry

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	tserrors "github.com/xtxerr/tierstat/internal/errors"
)

const tierStateFixture = `[{"files":{"o2":[{"id":7},1000],"o1":[null,2000]},"reqs":{"o1":[{"response_time":{"secs":0,"nanos":2000}},{"response_time":{"secs":1,"nanos":5}}]}},{"files":{"o3":[null,4096]},"reqs":{}}]

[{"files":{"o1":[null,2000]}},{"files":{}}]
`

func TestSnapshotReader(t *testing.T) {
	r := NewSnapshotReader(strings.NewReader(tierStateFixture))

	snaps, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}

	first := snaps[0]
	if first.Index != 0 || len(first.Tiers) != 2 {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}
	if first.NumObjects() != 3 {
		t.Errorf("expected 3 objects, got %d", first.NumObjects())
	}
	if got := first.Tiers[0].Files["o2"].Size; got != 1000 {
		t.Errorf("expected size 1000, got %d", got)
	}
	if string(first.Tiers[0].Files["o2"].Descriptor) != `{"id":7}` {
		t.Errorf("descriptor not preserved: %s", first.Tiers[0].Files["o2"].Descriptor)
	}

	reqs := first.Tiers[0].Reqs["o1"]
	if len(reqs) != 2 || reqs[0].ResponseTimeNanos != 2000 || reqs[1].ResponseTimeNanos != 1_000_000_005 {
		t.Errorf("unexpected requests: %+v", reqs)
	}
	if !first.HasLatency() || !first.Tiers[1].HasRequests() {
		t.Error("expected latency capture in first snapshot")
	}

	second := snaps[1]
	if second.Index != 1 {
		t.Errorf("blank line must not shift timesteps, got index %d", second.Index)
	}
	if second.HasLatency() {
		t.Error("second snapshot carries no requests")
	}
	if _, ok := second.Tiers[TierFastest].Files["o1"]; !ok {
		t.Error("expected o1 on fastest tier")
	}
}

func TestSnapshotReaderMalformed(t *testing.T) {
	r := NewSnapshotReader(strings.NewReader("[{\"files\":{\"o1\":[null,1]}}]\n{not json}\n"))

	if _, err := r.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}

	_, err := r.Next()
	if !errors.Is(err, tserrors.ErrMalformedRecord) {
		t.Fatalf("expected malformed record, got %v", err)
	}
	var re *tserrors.RecordError
	if !errors.As(err, &re) || re.Timestep != 1 {
		t.Errorf("expected timestep 1 in error, got %v", err)
	}
}

func TestRequestWithoutResponseTime(t *testing.T) {
	line := `[{"files":{"o1":[null,1]},"reqs":{"o1":[{}]}}]`
	if _, err := DecodeSnapshot([]byte(line), 3); !errors.Is(err, tserrors.ErrMalformedRecord) {
		t.Fatalf("expected malformed record, got %v", err)
	}
}

func TestRequestResponseTimeOverflow(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{`{"response_time":{"secs":18446744073,"nanos":709551615}}`, math.MaxUint64, false},
		{`{"response_time":{"secs":18446744073,"nanos":709551616}}`, 0, true},
		{`{"response_time":{"secs":20000000000,"nanos":5}}`, 0, true},
	}

	for _, tt := range tests {
		var r Request
		err := r.UnmarshalJSON([]byte(tt.in))
		if tt.wantErr {
			if !errors.Is(err, tserrors.ErrMalformedRecord) {
				t.Errorf("%s: expected malformed record, got %v (%d ns)", tt.in, err, r.ResponseTimeNanos)
			}
			continue
		}
		if err != nil || r.ResponseTimeNanos != tt.want {
			t.Errorf("%s: got %d, %v", tt.in, r.ResponseTimeNanos, err)
		}
	}
}

func TestUsageReader(t *testing.T) {
	input := `{"usage":[{"free":10,"total":100},{"free":0,"total":0}],"storage":{}}
{"usage":[{"free":5,"total":100}]}
`
	r := NewUsageReader(strings.NewReader(input))

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(rec.Usage) != 2 || rec.Usage[0].Free != 10 || rec.Usage[0].Total != 100 {
		t.Errorf("unexpected usage: %+v", rec.Usage)
	}

	rec, err = r.Next()
	if err != nil || rec.Index != 1 {
		t.Fatalf("second record: %+v %v", rec, err)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if r.Count() != 2 {
		t.Errorf("expected count 2, got %d", r.Count())
	}
}

func TestUsageMissingFields(t *testing.T) {
	tests := []string{
		`{"storage":{}}`,
		`{"usage":[{"free":1}]}`,
		`{"usage":[{"total":1}]}`,
		`{"usage":[{"free":-1,"total":3}]}`,
	}
	for _, line := range tests {
		if _, err := DecodeUsage([]byte(line), 0); !errors.Is(err, tserrors.ErrMalformedRecord) {
			t.Errorf("%s: expected malformed record, got %v", line, err)
		}
	}
}

func TestRecordSizeLimit(t *testing.T) {
	r := NewSnapshotReader(strings.NewReader(`[{"files":{"o1":[null,1000]}}]` + "\n"))
	r.SetMaxRecordSize(8)

	if _, err := r.Next(); !errors.Is(err, tserrors.ErrMalformedRecord) {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestEncodeSnapshotRoundTrip(t *testing.T) {
	snap := TimestepSnapshot{Tiers: []TierSnapshot{{
		Files: map[string]FileEntry{"o9": {Size: 512}},
		Reqs:  map[string][]Request{"o9": {{ResponseTimeNanos: 1_500_000_000}}},
	}}}

	line, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}

	back, err := DecodeSnapshot(line, 0)
	if err != nil {
		t.Fatalf("DecodeSnapshot(%s): %v", line, err)
	}
	if back.Tiers[0].Files["o9"].Size != 512 || back.Tiers[0].Reqs["o9"][0].ResponseTimeNanos != 1_500_000_000 {
		t.Errorf("round trip mismatch: %s", line)
	}
}

func TestParseObjectID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"o0", 0, false},
		{"o123", 123, false},
		{"o", 0, true},
		{"x12", 0, true},
		{"o-1", 0, true},
		{"o1a", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseObjectID(tt.in)
		if tt.wantErr {
			if !errors.Is(err, tserrors.ErrInvalidObjectID) {
				t.Errorf("%q: expected ErrInvalidObjectID, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %d, %v", tt.in, got, err)
		}
	}

	if ObjectID(42) != "o42" {
		t.Errorf("ObjectID(42) = %s", ObjectID(42))
	}
}

func TestTier(t *testing.T) {
	if TierFastest.String() != "Fastest" || TierSlowest.String() != "Slowest" {
		t.Error("unexpected tier names")
	}
	if Tier(6).String() != "tier6" {
		t.Errorf("unexpected name for tier 6: %s", Tier(6))
	}
	if TierSlow.Level() != 3 {
		t.Errorf("expected level 3, got %d", TierSlow.Level())
	}
}
