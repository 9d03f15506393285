package fsbench

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xtxerr/tierstat/internal/errors"
)

// Measurement is one row of the filesystem benchmark: an object of an
// access group written and read back.
type Measurement struct {
	Group        int
	Size         int64
	ReadLatency  float64 // ns
	WriteLatency float64 // ns
}

// EvaluationSample is one row of an evaluation CSV.
type EvaluationSample struct {
	Size    int64
	Latency float64 // ns
}

var measurementColumns = []string{"group", "size", "read_latency_ns", "write_latency_ns"}

var evaluationColumns = []string{"size", "latency_ns"}

// LoadMeasurements parses filesystem_measurements.csv. Columns are matched
// by header name; extra columns are ignored.
func LoadMeasurements(r io.Reader) ([]Measurement, error) {
	var out []Measurement
	err := readRows(r, measurementColumns, 0, func(line int, f []string) error {
		group, err := strconv.Atoi(f[0])
		if err != nil {
			return rowError(line, "group", err)
		}
		size, err := parseSize(line, f[1])
		if err != nil {
			return err
		}
		read, err := parseLatency(line, "read_latency_ns", f[2])
		if err != nil {
			return err
		}
		write, err := parseLatency(line, "write_latency_ns", f[3])
		if err != nil {
			return err
		}
		out = append(out, Measurement{Group: group, Size: size, ReadLatency: read, WriteLatency: write})
		return nil
	})
	return out, err
}

// LoadEvaluation parses an evaluation CSV, keeping at most maxRows rows.
// maxRows <= 0 reads all rows.
func LoadEvaluation(r io.Reader, maxRows int) ([]EvaluationSample, error) {
	var out []EvaluationSample
	err := readRows(r, evaluationColumns, maxRows, func(line int, f []string) error {
		size, err := parseSize(line, f[0])
		if err != nil {
			return err
		}
		lat, err := parseLatency(line, "latency_ns", f[1])
		if err != nil {
			return err
		}
		out = append(out, EvaluationSample{Size: size, Latency: lat})
		return nil
	})
	return out, err
}

// loadFile opens path and hands it to load. A missing file is reported
// as ErrNotFound.
func loadFile[T any](path string, load func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, errors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := load(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return rows, nil
}

func readRows(r io.Reader, columns []string, maxRows int, row func(line int, fields []string) error) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return fmt.Errorf("empty file: %w", errors.ErrMalformedRecord)
	}
	if err != nil {
		return fmt.Errorf("read header: %v: %w", err, errors.ErrMalformedRecord)
	}

	index := make([]int, len(columns))
	for i, col := range columns {
		index[i] = -1
		for j, h := range header {
			if strings.TrimSpace(h) == col {
				index[i] = j
				break
			}
		}
		if index[i] < 0 {
			return fmt.Errorf("missing column %q: %w", col, errors.ErrMalformedRecord)
		}
	}

	fields := make([]string, len(columns))
	for n := 0; maxRows <= 0 || n < maxRows; n++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%v: %w", err, errors.ErrMalformedRecord)
		}
		for i, j := range index {
			fields[i] = strings.TrimSpace(rec[j])
		}
		line, _ := cr.FieldPos(0)
		if err := row(line, fields); err != nil {
			return err
		}
	}
	return nil
}

func parseSize(line int, s string) (int64, error) {
	size, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, rowError(line, "size", err)
	}
	if size < 0 {
		return 0, fmt.Errorf("line %d: negative size %d: %w", line, size, errors.ErrMalformedRecord)
	}
	return size, nil
}

func parseLatency(line int, column, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, rowError(line, column, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("line %d: negative %s: %w", line, column, errors.ErrMalformedRecord)
	}
	return v, nil
}

func rowError(line int, column string, err error) error {
	return fmt.Errorf("line %d: %s: %v: %w", line, column, err, errors.ErrMalformedRecord)
}
