package telemetry

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/xtxerr/tierstat/config"
	"github.com/xtxerr/tierstat/internal/errors"
)

// Reader decodes a JSON-Lines telemetry stream, one record per non-empty
// line. Record indexes count decoded records, so blank lines do not
// shift timesteps.
type Reader[T any] struct {
	br      *bufio.Reader
	decode  func(line []byte, index int) (T, error)
	next    int
	maxSize int
}

// NewSnapshotReader reads tier_state.jsonl records.
func NewSnapshotReader(r io.Reader) *Reader[TimestepSnapshot] {
	return newReader(r, DecodeSnapshot)
}

// NewUsageReader reads the usage field of betree-metrics.jsonl records.
func NewUsageReader(r io.Reader) *Reader[UsageRecord] {
	return newReader(r, DecodeUsage)
}

func newReader[T any](r io.Reader, decode func([]byte, int) (T, error)) *Reader[T] {
	return &Reader[T]{
		br:      bufio.NewReaderSize(r, 1024*1024),
		decode:  decode,
		maxSize: config.DefaultMaxRecordSize,
	}
}

// SetMaxRecordSize bounds the length of a single line.
func (r *Reader[T]) SetMaxRecordSize(n int) {
	if n > 0 {
		r.maxSize = n
	}
}

// Next returns the next record or io.EOF at the end of the stream.
func (r *Reader[T]) Next() (T, error) {
	var zero T
	for {
		line, err := r.readLine()
		if len(bytes.TrimSpace(line)) > 0 {
			rec, derr := r.decode(line, r.next)
			if derr != nil {
				return zero, derr
			}
			r.next++
			return rec, nil
		}
		if err != nil {
			return zero, err
		}
	}
}

// ReadAll decodes every remaining record.
func (r *Reader[T]) ReadAll() ([]T, error) {
	var out []T
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Count returns the number of records decoded so far.
func (r *Reader[T]) Count() int {
	return r.next
}

func (r *Reader[T]) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > r.maxSize {
			return nil, errors.NewMalformed(r.next, -1, "", fmt.Sprintf("record exceeds %d bytes", r.maxSize))
		}
		switch err {
		case nil:
			return buf, nil
		case bufio.ErrBufferFull:
			continue
		default:
			return buf, err
		}
	}
}

// DecodeSnapshot decodes one tier_state line: a JSON array of tiers.
func DecodeSnapshot(line []byte, index int) (TimestepSnapshot, error) {
	var tiers []TierSnapshot
	if err := json.Unmarshal(line, &tiers); err != nil {
		return TimestepSnapshot{}, errors.NewMalformed(index, -1, "", err.Error())
	}
	return TimestepSnapshot{Index: index, Tiers: tiers}, nil
}

// DecodeUsage decodes the usage field of one metrics line.
func DecodeUsage(line []byte, index int) (UsageRecord, error) {
	var rec UsageRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return UsageRecord{}, errors.NewMalformed(index, -1, "", err.Error())
	}
	if rec.Usage == nil {
		return UsageRecord{}, errors.NewMalformed(index, -1, "", "missing usage field")
	}
	rec.Index = index
	return rec, nil
}

// EncodeSnapshot renders a snapshot as one tier_state line without the
// trailing newline.
func EncodeSnapshot(s TimestepSnapshot) ([]byte, error) {
	tiers := s.Tiers
	if tiers == nil {
		tiers = []TierSnapshot{}
	}
	return json.Marshal(tiers)
}
