// Package sink streams query results into a CSV result artifact.
//
// Rows are pulled from a Cursor in fixed-size batches and written straight
// to disk, so the full result set is never held in memory. The header line
// is always written first and the file is truncated at the start of every
// stream.
package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DefaultBatchSize is the number of rows fetched per batch.
const DefaultBatchSize = 200

// Cursor yields an ordered column list and successive batches of rows.
// NextBatch returns io.EOF (with an empty batch) once the rows are exhausted.
type Cursor interface {
	Columns() ([]string, error)
	NextBatch(n int) ([][]string, error)
}

// Result summarizes one completed stream.
type Result struct {
	Path     string
	Columns  []string
	RowCount int64
}

// WriteError reports a failure writing the artifact (disk full, permissions).
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// pathLocks holds one mutex per artifact path so each file has a single writer.
var pathLocks sync.Map

func lockPath(path string) func() {
	v, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Stream writes the cursor's header and rows to path.
//
// Missing parent directories are created. The path lock is held for the
// whole write. If proceed is non-nil it is checked after the lock is
// acquired and before the file is truncated; a false result leaves the
// file untouched and returns context.Canceled.
// ctx is checked between batches.
func Stream(ctx context.Context, cur Cursor, path string, batchSize int, proceed func() bool) (Result, error) {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	unlock := lockPath(filepath.Clean(path))
	defer unlock()

	if proceed != nil && !proceed() {
		return Result{}, context.Canceled
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cols, err := cur.Columns()
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return Result{}, &WriteError{Path: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return Result{}, &WriteError{Path: path, Err: err}
	}

	res := Result{Path: path, Columns: cols}
	res.RowCount, err = writeAll(ctx, &rowWriter{csv: csv.NewWriter(f), raw: f}, cur, cols, batchSize)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = &WriteError{Path: path, Err: cerr}
	}
	if err != nil {
		var we *WriteError
		if errors.As(err, &we) {
			we.Path = path
		}
		return res, err
	}
	return res, nil
}

// rowWriter is a csv.Writer that also keeps single-empty-field records.
// encoding/csv writes those as blank lines, which readers skip.
type rowWriter struct {
	csv *csv.Writer
	raw io.Writer
}

func (w *rowWriter) Write(record []string) error {
	if len(record) != 1 || record[0] != "" {
		return w.csv.Write(record)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	_, err := io.WriteString(w.raw, "\"\"\n")
	return err
}

func (w *rowWriter) Flush() {
	w.csv.Flush()
}

func (w *rowWriter) Error() error {
	return w.csv.Error()
}

func writeAll(ctx context.Context, w *rowWriter, cur Cursor, cols []string, batchSize int) (int64, error) {
	if err := w.Write(cols); err != nil {
		return 0, &WriteError{Err: err}
	}

	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		batch, err := cur.NextBatch(batchSize)
		for _, row := range batch {
			if werr := w.Write(row); werr != nil {
				return n, &WriteError{Err: werr}
			}
			n++
		}
		w.Flush()
		if ferr := w.Error(); ferr != nil {
			return n, &WriteError{Err: ferr}
		}

		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// ReadArtifact loads a result artifact back into headers and rows.
// An empty file yields no headers and no rows.
func ReadArtifact(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return headers, rows, nil
}
