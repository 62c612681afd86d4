// Package stream provides JSONL streaming to and from zip archives.
package stream

import (
	"archive/zip"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer streams entities as JSONL to one file of a zip archive.
type Writer struct {
	enc   *jsoniter.Encoder
	count int
}

// NewWriter creates a JSONL writer for a path within the zip.
func NewWriter(zw *zip.Writer, path string) (*Writer, error) {
	w, err := zw.Create(path)
	if err != nil {
		return nil, err
	}
	return NewEncoder(w), nil
}

// NewEncoder creates a JSONL writer over w.
func NewEncoder(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write encodes a single entity as a JSON line.
func (w *Writer) Write(entity any) error {
	// Encoder terminates every value with a newline.
	if err := w.enc.Encode(entity); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns entities written so far.
func (w *Writer) Count() int {
	return w.count
}

// WriteAll writes every entity of items to path and returns the count.
func WriteAll[T any](zw *zip.Writer, path string, items []T) (int, error) {
	w, err := NewWriter(zw, path)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if err := w.Write(item); err != nil {
			return w.Count(), err
		}
	}
	return w.Count(), nil
}
