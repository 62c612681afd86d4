package stream

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
)

// ErrFileNotFound indicates a file was not found in the archive.
var ErrFileNotFound = errors.New("file not found in backup")

// maxLine bounds a single JSONL record.
const maxLine = 4 << 20

// OpenFile finds and opens a file from a zip archive.
func OpenFile(zr *zip.Reader, path string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == path {
			return f.Open()
		}
	}
	return nil, ErrFileNotFound
}

// Reader streams entities from a JSONL file.
type Reader[T any] struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a streaming reader for type T. The reader closes rc
// once iteration ends.
func NewReader[T any](rc io.ReadCloser) *Reader[T] {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	return &Reader[T]{rc: rc, scanner: scanner}
}

// All returns an iterator over all entities in the file. A malformed line
// yields an error naming the line and iteration continues with the next one.
func (r *Reader[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer r.rc.Close()

		for r.scanner.Scan() {
			r.line++
			line := r.scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var entity T
			if err := json.Unmarshal(line, &entity); err != nil {
				var zero T
				if !yield(zero, fmt.Errorf("line %d: %w", r.line, err)) {
					return
				}
				continue
			}
			if !yield(entity, nil) {
				return
			}
		}

		if err := r.scanner.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

// ReadAll opens path in zr and decodes every line, stopping at the first
// error. A missing file yields an empty slice.
func ReadAll[T any](zr *zip.Reader, path string) ([]T, error) {
	rc, err := OpenFile(zr, path)
	if errors.Is(err, ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []T
	for item, err := range NewReader[T](rc).All() {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, item)
	}
	return out, nil
}
