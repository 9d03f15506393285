package wire

import (
	"bytes"
	"context"
	"io"
	"testing"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtxerr/tierstat/internal/analysis"
	"github.com/xtxerr/tierstat/internal/config"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/series"
	"github.com/xtxerr/tierstat/internal/telemetry"
	"github.com/xtxerr/tierstat/internal/testutil"
)

func testReport(t *testing.T) *analysis.Report {
	t.Helper()

	e, err := analysis.NewEngine(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	snaps := []telemetry.TimestepSnapshot{
		testutil.NewSnapshot(0, 4).Files(0, 1, 5, 1000).Build(),
		testutil.NewSnapshot(1, 4).File(0, "o1", 1000).Request(0, "o1", 2000, 3000).Build(),
	}
	usage := []telemetry.UsageRecord{
		testutil.Usage(0, 10, 100),
		testutil.Usage(1, 20, 100),
		testutil.Usage(2, 30, 100),
	}
	r, err := e.Run(context.Background(), snaps, usage)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestWriteReportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteReport(testReport(t)); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if w.Frames() != 3 {
		t.Fatalf("expected one frame per usage timestep, got %d", w.Frames())
	}

	frames, err := NewReader(&buf, 0).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}

	for i, f := range frames {
		if f.Timestep != i {
			t.Errorf("frame %d has timestep %d", i, f.Timestep)
		}
	}

	first := frames[0]
	if got := first.Get(constants.AnalysisCohortLevel, constants.CohortSeldom); got != series.Of(1) {
		t.Errorf("seldom level: got %v", got)
	}
	if got := first.Get(constants.AnalysisCohortLevel, constants.CohortOften); !got.IsNoData() {
		t.Errorf("empty cohort must decode as no data, got %v", got)
	}
	if got := first.Get(constants.AnalysisTierLatency, "Fastest"); !got.IsNoData() {
		t.Errorf("timestep without capture must decode as no data, got %v", got)
	}
	if got := first.Get(constants.AnalysisTierUsed, "Fastest"); got != series.Of(368640) {
		t.Errorf("used bytes: got %v", got)
	}

	if got := frames[1].Get(constants.AnalysisTierLatency, "Fastest"); got != series.Of(2.5) {
		t.Errorf("latency: got %v", got)
	}
	if got := frames[1].Get(constants.AnalysisTierLatency, "Slow"); got != series.Of(0) {
		t.Errorf("tier without samples must be 0, got %v", got)
	}

	// Past the last tier_state timestep only usage carries values.
	if got := frames[2].Get(constants.AnalysisCohortLevel, constants.CohortSeldom); !got.IsNoData() {
		t.Errorf("expected no data past tier_state, got %v", got)
	}
	if got := frames[2].Get(constants.AnalysisTierTotal, "Fastest"); got != series.Of(409600) {
		t.Errorf("total bytes: got %v", got)
	}
}

func TestBuildFrames(t *testing.T) {
	long := series.New(constants.AnalysisTierUsed, "Fast", 1, 0)
	long.Append(series.Of(1))
	long.Append(series.Of(2))
	short := series.New(constants.AnalysisCohortLevel, constants.CohortOften, -1, 0)
	short.Append(series.Of(3))

	frames := BuildFrames([]*series.Series{long, short}, 2)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if got := frames[1].Get(constants.AnalysisTierUsed, "Fast"); got != series.Of(2) {
		t.Errorf("used bytes: got %v", got)
	}
	if got := frames[1].Get(constants.AnalysisCohortLevel, constants.CohortOften); !got.IsNoData() {
		t.Errorf("short series must give no data, got %v", got)
	}
	if len(BuildFrames([]*series.Series{long}, 0)) != 0 {
		t.Error("zero steps must give no frames")
	}
}

func TestReaderMaxSize(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteReport(testReport(t)); err != nil {
		t.Fatal(err)
	}

	_, err := NewReader(&buf, 16).Read()
	if err == nil || err == io.EOF {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestReaderEmpty(t *testing.T) {
	_, err := NewReader(&bytes.Buffer{}, 0).Read()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReaderMalformed(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{"cohort_level": map[string]any{}})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := protodelim.MarshalTo(&buf, msg); err != nil {
		t.Fatal(err)
	}

	_, err = NewReader(&buf, 0).Read()
	if !errors.Is(err, errors.ErrMalformedRecord) {
		t.Errorf("expected malformed record, got %v", err)
	}
}

func TestWriteReservedName(t *testing.T) {
	f := &Frame{Values: map[string]map[string]series.Value{TimestepField: {}}}
	if err := NewWriter(io.Discard).Write(f); !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("expected reserved name error, got %v", err)
	}
}
