package backup

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/shelfwise/shelfwise-server/internal/backup/stream"
	"github.com/shelfwise/shelfwise-server/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Archive layout.
const (
	manifestPath     = "manifest.json"
	settingsPath     = "settings.json"
	booksPath        = "entities/books.jsonl"
	membersPath      = "entities/members.jsonl"
	loansPath        = "entities/loans.jsonl"
	reservationsPath = "entities/reservations.jsonl"
	finesPath        = "entities/fines.jsonl"
	paymentsPath     = "entities/payments.jsonl"
)

// WriteArchive writes doc to w as a zip archive.
func WriteArchive(w io.Writer, doc *Document) error {
	zw := zip.NewWriter(w)

	if err := writeJSON(zw, settingsPath, doc.Settings); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	steps := []struct {
		path string
		fn   func() (int, error)
	}{
		{booksPath, func() (int, error) { return stream.WriteAll(zw, booksPath, doc.Books) }},
		{membersPath, func() (int, error) { return stream.WriteAll(zw, membersPath, doc.Members) }},
		{loansPath, func() (int, error) { return stream.WriteAll(zw, loansPath, doc.Loans) }},
		{reservationsPath, func() (int, error) { return stream.WriteAll(zw, reservationsPath, doc.Reservations) }},
		{finesPath, func() (int, error) { return stream.WriteAll(zw, finesPath, doc.Fines) }},
		{paymentsPath, func() (int, error) { return stream.WriteAll(zw, paymentsPath, doc.Payments) }},
	}
	for _, step := range steps {
		if _, err := step.fn(); err != nil {
			return fmt.Errorf("write %s: %w", step.path, err)
		}
	}

	// Manifest last so its counts describe what was written.
	if err := writeJSON(zw, manifestPath, doc.Manifest); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return zw.Close()
}

func writeJSON(zw *zip.Writer, path string, v any) error {
	w, err := zw.Create(path)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(v)
}

// ReadArchive decodes an archive produced by WriteArchive.
func ReadArchive(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedBackup, err)
	}

	doc := &Document{}
	if err := readJSON(zr, manifestPath, &doc.Manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if doc.Manifest.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %q", ErrVersionMismatch, doc.Manifest.Version)
	}
	if err := readJSON(zr, settingsPath, &doc.Settings); err != nil {
		return nil, fmt.Errorf("%w: settings: %v", ErrCorruptedBackup, err)
	}

	if doc.Books, err = stream.ReadAll[*domain.Book](zr, booksPath); err != nil {
		return nil, corrupted(err)
	}
	if doc.Members, err = stream.ReadAll[*domain.Member](zr, membersPath); err != nil {
		return nil, corrupted(err)
	}
	if doc.Loans, err = stream.ReadAll[*domain.BorrowRecord](zr, loansPath); err != nil {
		return nil, corrupted(err)
	}
	if doc.Reservations, err = stream.ReadAll[*domain.Reservation](zr, reservationsPath); err != nil {
		return nil, corrupted(err)
	}
	if doc.Fines, err = stream.ReadAll[*domain.Fine](zr, finesPath); err != nil {
		return nil, corrupted(err)
	}
	if doc.Payments, err = stream.ReadAll[domain.Payment](zr, paymentsPath); err != nil {
		return nil, corrupted(err)
	}
	return doc, nil
}

func corrupted(err error) error {
	return fmt.Errorf("%w: %v", ErrCorruptedBackup, err)
}

func readJSON(zr *zip.Reader, path string, v any) error {
	rc, err := stream.OpenFile(zr, path)
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(v)
}

// WriteFile writes doc to path through a temp file and returns the archive's
// size and SHA-256 checksum.
func WriteFile(path string, doc *Document) (int64, string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, "", fmt.Errorf("create backup dir: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, "", fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(f, hash)}
	if err := WriteArchive(counter, doc); err != nil {
		return 0, "", err
	}
	if err := f.Close(); err != nil {
		return 0, "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, "", fmt.Errorf("rename backup: %w", err)
	}
	return counter.n, hex.EncodeToString(hash.Sum(nil)), nil
}

// ReadFile reads an archive from path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return ReadArchive(bytes.NewReader(data), int64(len(data)))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// DecodeJSON parses a single-document JSON backup.
func DecodeJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if doc.Manifest.Version == "" {
		return nil, ErrInvalidManifest
	}
	return &doc, nil
}
