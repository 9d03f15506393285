package telemetry

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xtxerr/tierstat/internal/errors"
)

// ObjectIDPrefix prefixes the integer part of every object identifier.
const ObjectIDPrefix = "o"

// ParseObjectID returns the integer sort key of an identifier like "o123".
func ParseObjectID(id string) (uint64, error) {
	if !strings.HasPrefix(id, ObjectIDPrefix) || len(id) == len(ObjectIDPrefix) {
		return 0, fmt.Errorf("%q: %w", id, errors.ErrInvalidObjectID)
	}
	n, err := strconv.ParseUint(id[len(ObjectIDPrefix):], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", id, errors.ErrInvalidObjectID)
	}
	return n, nil
}

// ObjectID formats the identifier for an integer key.
func ObjectID(n uint64) string {
	return ObjectIDPrefix + strconv.FormatUint(n, 10)
}

// FileEntry is the placement record of one object: an opaque descriptor
// and the object size in bytes. On the wire it is a two element array.
type FileEntry struct {
	Descriptor json.RawMessage
	Size       int64
}

// UnmarshalJSON decodes the [descriptor, size] pair.
func (f *FileEntry) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("file entry: %v: %w", err, errors.ErrMalformedRecord)
	}
	if len(parts) > 0 {
		f.Descriptor = append(json.RawMessage(nil), parts[0]...)
	}
	if len(parts) < 2 || bytes.Equal(bytes.TrimSpace(parts[1]), []byte("null")) {
		// Missing size; rejected by validation with object context.
		return nil
	}
	if err := json.Unmarshal(parts[1], &f.Size); err != nil {
		return fmt.Errorf("file size: %v: %w", err, errors.ErrMalformedRecord)
	}
	return nil
}

// MarshalJSON encodes the entry back into its [descriptor, size] pair.
func (f FileEntry) MarshalJSON() ([]byte, error) {
	desc := f.Descriptor
	if len(desc) == 0 {
		desc = json.RawMessage("null")
	}
	return json.Marshal([]any{desc, f.Size})
}

// Request is one recorded access to an object.
type Request struct {
	ResponseTimeNanos uint64
}

type wireDuration struct {
	Secs  uint64 `json:"secs"`
	Nanos uint64 `json:"nanos"`
}

type wireRequest struct {
	ResponseTime      *wireDuration `json:"response_time"`
	ResponseTimeNanos *uint64       `json:"response_time_nanos"`
}

// UnmarshalJSON accepts both the engine's {"response_time": {"secs", "nanos"}}
// form and a flat {"response_time_nanos": N}.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("request: %v: %w", err, errors.ErrMalformedRecord)
	}
	switch {
	case w.ResponseTime != nil:
		d := w.ResponseTime
		if d.Secs > (math.MaxUint64-d.Nanos)/1_000_000_000 {
			return fmt.Errorf("response_time of %d s overflows nanoseconds: %w", d.Secs, errors.ErrMalformedRecord)
		}
		r.ResponseTimeNanos = d.Secs*1_000_000_000 + d.Nanos
	case w.ResponseTimeNanos != nil:
		r.ResponseTimeNanos = *w.ResponseTimeNanos
	default:
		return fmt.Errorf("request without response_time: %w", errors.ErrMalformedRecord)
	}
	return nil
}

// MarshalJSON encodes the request in the engine's duration form.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRequest{ResponseTime: &wireDuration{
		Secs:  r.ResponseTimeNanos / 1_000_000_000,
		Nanos: r.ResponseTimeNanos % 1_000_000_000,
	}})
}

// TierSnapshot is the state of one tier at one timestep.
// Reqs is nil when the recording carries no latency capture for the tier.
type TierSnapshot struct {
	Files map[string]FileEntry `json:"files"`
	Reqs  map[string][]Request `json:"reqs,omitempty"`
}

// HasRequests reports whether the tier carries latency capture.
func (t *TierSnapshot) HasRequests() bool {
	return t.Reqs != nil
}

// TimestepSnapshot is one recorded timestep: tiers ordered fastest first.
// Snapshots are read-only once decoded; aggregators never mutate them.
type TimestepSnapshot struct {
	Index int
	Tiers []TierSnapshot
}

// NumObjects returns the number of objects across all tiers.
func (s *TimestepSnapshot) NumObjects() int {
	n := 0
	for i := range s.Tiers {
		n += len(s.Tiers[i].Files)
	}
	return n
}

// HasLatency reports whether any tier of the timestep carries requests.
func (s *TimestepSnapshot) HasLatency() bool {
	for i := range s.Tiers {
		if s.Tiers[i].HasRequests() {
			return true
		}
	}
	return false
}

// TierUsage is the block accounting of one tier.
type TierUsage struct {
	Free  uint64
	Total uint64
}

type wireUsage struct {
	Free  *uint64 `json:"free"`
	Total *uint64 `json:"total"`
}

// UnmarshalJSON requires both block counts.
func (u *TierUsage) UnmarshalJSON(data []byte) error {
	var w wireUsage
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("usage: %v: %w", err, errors.ErrMalformedRecord)
	}
	if w.Free == nil {
		return fmt.Errorf("usage: free: %w", errors.ErrMalformedRecord)
	}
	if w.Total == nil {
		return fmt.Errorf("usage: total: %w", errors.ErrMalformedRecord)
	}
	u.Free, u.Total = *w.Free, *w.Total
	return nil
}

// MarshalJSON encodes the usage entry.
func (u TierUsage) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireUsage{Free: &u.Free, Total: &u.Total})
}

// UsageRecord is the per-tier usage of one metrics line.
type UsageRecord struct {
	Index int         `json:"-"`
	Usage []TierUsage `json:"usage"`
}
