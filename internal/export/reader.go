package export

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/tierstat/internal/series"
)

// Reader reads rows of type T from a Parquet file.
type Reader[T any] struct {
	file   *os.File
	reader *parquet.GenericReader[T]
	path   string
}

// NewReader opens a Parquet file for reading.
func NewReader[T any](path string) (*Reader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &Reader[T]{
		file:   f,
		reader: parquet.NewGenericReader[T](f),
		path:   path,
	}, nil
}

// Read reads up to n rows. It returns io.EOF once the file is exhausted
// and no rows were read.
func (r *Reader[T]) Read(n int) ([]T, error) {
	rows := make([]T, n)
	count, err := r.reader.Read(rows)
	if err != nil && !(errors.Is(err, io.EOF) && count > 0) {
		return nil, err
	}
	return rows[:count], nil
}

// ReadAll reads all remaining rows.
func (r *Reader[T]) ReadAll() ([]T, error) {
	rows := make([]T, r.reader.NumRows())
	if len(rows) == 0 {
		return rows, nil
	}

	n, err := r.reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return rows[:n], nil
}

// NumRows returns the total number of rows in the file.
func (r *Reader[T]) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *Reader[T]) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *Reader[T]) Path() string {
	return r.path
}

// ReadSeriesFile reads a series file back into series.
func ReadSeriesFile(path string) ([]*series.Series, error) {
	r, err := NewReader[SeriesRow](path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return RowsToSeries(rows), nil
}

// FileInfo holds information about a Parquet file.
type FileInfo struct {
	Path    string
	Size    int64
	NumRows int64
	Columns []string
}

// GetFileInfo returns information about a Parquet file.
func GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	info := &FileInfo{
		Path:    path,
		Size:    stat.Size(),
		NumRows: pf.NumRows(),
	}
	for _, field := range pf.Schema().Fields() {
		info.Columns = append(info.Columns, field.Name())
	}
	return info, nil
}
