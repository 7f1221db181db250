// package formatter writes export rows to tabular files
package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/desertthunder/scrapify/internal/shared"
)

// TableWriter appends rows to an open table. Rows are written in column order regardless of the
// order of keys in the record; missing keys become empty cells.
type TableWriter interface {
	WriteRow(record map[string]string) error
	Rows() int
	Close() error
}

// Opener opens a table at path with the given header.
type Opener func(path string, columns []string) (TableWriter, error)

// CSVWriter is a [TableWriter] backed by [csv.Writer]. Each row is flushed as it is written so
// memory stays bounded by a single row.
type CSVWriter struct {
	w       *csv.Writer
	closer  io.Closer
	columns []string
	index   map[string]struct{}
	rows    int
	closed  bool
}

// OpenCSV creates (or truncates) the file at path and writes the header line.
func OpenCSV(path string, columns []string) (TableWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	w, err := NewCSVWriter(file, columns)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.closer = file
	return w, nil
}

// NewCSVWriter writes the header for columns to w and returns a writer for the rows.
func NewCSVWriter(w io.Writer, columns []string) (*CSVWriter, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", shared.ErrInvalidArgument)
	}

	index := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		index[c] = struct{}{}
	}

	cw := &CSVWriter{
		w:       csv.NewWriter(w),
		columns: append([]string(nil), columns...),
		index:   index,
	}

	if err := cw.write(cw.columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	return cw, nil
}

// Columns returns the header in output order.
func (c *CSVWriter) Columns() []string {
	return append([]string(nil), c.columns...)
}

// WriteRow writes one record. Keys outside the header are rejected with [shared.ErrUnknownColumn].
func (c *CSVWriter) WriteRow(record map[string]string) error {
	if c.closed {
		return shared.ErrWriterClosed
	}

	var unknown []string
	for k := range record {
		if _, ok := c.index[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", shared.ErrUnknownColumn, strings.Join(unknown, ", "))
	}

	line := make([]string, len(c.columns))
	for i, col := range c.columns {
		line[i] = record[col]
	}

	if err := c.write(line); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}
	c.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (c *CSVWriter) Rows() int {
	return c.rows
}

// Close flushes buffered output and closes the underlying file, if any. Closing twice is a no-op.
func (c *CSVWriter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

func (c *CSVWriter) write(line []string) error {
	if err := c.w.Write(line); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}
