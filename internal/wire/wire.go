// Package wire provides the length-delimited protobuf frame stream consumed
// by renderers.
//
// Each timestep is one google.protobuf.Struct framed with protobuf's
// standard varint length prefix:
//
//	{
//	  "timestep": 3,
//	  "cohort_level":     {"seldom": 1.2, "occasional": null, ...},
//	  "tier_latency":     {"Fastest": 2.5, ...},
//	  "tier_used_bytes":  {...},
//	  "tier_total_bytes": {...}
//	}
//
// No data is encoded as a null value, never as 0.
package wire

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtxerr/tierstat/config"
	"github.com/xtxerr/tierstat/internal/analysis"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/series"
)

// TimestepField is the frame field holding the timestep index.
const TimestepField = "timestep"

// Frame is the decoded form of one timestep frame: values by analysis and
// series name.
type Frame struct {
	Timestep int
	Values   map[string]map[string]series.Value
}

// Get returns the value of a series, or no data when the frame lacks it.
func (f *Frame) Get(analysis, name string) series.Value {
	return f.Values[analysis][name]
}

// Reader reads length-delimited frames from an io.Reader.
// It is safe for concurrent use.
type Reader struct {
	r       *bufio.Reader
	maxSize int
	mu      sync.Mutex
}

// NewReader creates a Reader wrapping the given io.Reader. maxSize bounds
// a single frame; 0 uses the default.
func NewReader(r io.Reader, maxSize int) *Reader {
	if maxSize <= 0 {
		maxSize = config.DefaultMaxFrameSize
	}
	return &Reader{r: bufio.NewReader(r), maxSize: maxSize}
}

// Read reads and decodes the next frame.
// It returns io.EOF at the clean end of the stream.
func (r *Reader) Read() (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := &structpb.Struct{}
	opts := protodelim.UnmarshalOptions{
		MaxSize: int64(r.maxSize),
	}
	if err := opts.UnmarshalFrom(r.r, msg); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return decode(msg)
}

// ReadAll reads frames until the end of the stream.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		f, err := r.Read()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

// Writer writes length-delimited frames to an io.Writer.
// It is safe for concurrent use.
type Writer struct {
	w      io.Writer
	mu     sync.Mutex
	frames int
}

// NewWriter creates a Writer wrapping the given io.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Write encodes and writes one frame with length prefix.
func (w *Writer) Write(f *Frame) error {
	msg, err := encode(f)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	opts := protodelim.MarshalOptions{
		MarshalOptions: proto.MarshalOptions{Deterministic: true},
	}
	if _, err := opts.MarshalTo(w.w, msg); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Timestep, err)
	}
	w.frames++
	return nil
}

// WriteReport writes one frame per timestep of the report. The stream
// covers the longer of the tier_state and usage timelines; series shorter
// than that contribute no data.
func (w *Writer) WriteReport(r *analysis.Report) error {
	for _, f := range BuildFrames(r.AllSeries(), max(r.Timesteps, r.UsageTimesteps)) {
		if err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// BuildFrames cuts series into steps frames, one value per series each.
func BuildFrames(all []*series.Series, steps int) []*Frame {
	frames := make([]*Frame, steps)
	for step := range frames {
		f := &Frame{Timestep: step, Values: make(map[string]map[string]series.Value)}
		for _, s := range all {
			group, ok := f.Values[s.Analysis]
			if !ok {
				group = make(map[string]series.Value)
				f.Values[s.Analysis] = group
			}
			group[s.Name] = s.At(step)
		}
		frames[step] = f
	}
	return frames
}

func encode(f *Frame) (*structpb.Struct, error) {
	fields := map[string]any{
		TimestepField: float64(f.Timestep),
	}
	for analysis, group := range f.Values {
		if analysis == TimestepField {
			return nil, fmt.Errorf("analysis name %q is reserved: %w", analysis, errors.ErrInvalidConfig)
		}
		values := make(map[string]any, len(group))
		for name, v := range group {
			if x, ok := v.Get(); ok {
				values[name] = x
				continue
			}
			values[name] = nil
		}
		fields[analysis] = values
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", f.Timestep, err)
	}
	return msg, nil
}

func decode(msg *structpb.Struct) (*Frame, error) {
	ts, ok := msg.GetFields()[TimestepField]
	if !ok {
		return nil, fmt.Errorf("frame without %s: %w", TimestepField, errors.ErrMalformedRecord)
	}

	f := &Frame{
		Timestep: int(ts.GetNumberValue()),
		Values:   make(map[string]map[string]series.Value),
	}
	for analysis, v := range msg.GetFields() {
		if analysis == TimestepField {
			continue
		}
		group := v.GetStructValue()
		if group == nil {
			return nil, fmt.Errorf("frame %d: %s is not an object: %w", f.Timestep, analysis, errors.ErrMalformedRecord)
		}
		values := make(map[string]series.Value, len(group.GetFields()))
		for name, val := range group.GetFields() {
			switch val.GetKind().(type) {
			case *structpb.Value_NullValue:
				values[name] = series.NoData()
			case *structpb.Value_NumberValue:
				values[name] = series.Of(val.GetNumberValue())
			default:
				return nil, fmt.Errorf("frame %d: %s/%s is not a number: %w", f.Timestep, analysis, name, errors.ErrMalformedRecord)
			}
		}
		f.Values[analysis] = values
	}
	return f, nil
}
