package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// BookIndex wraps a Bleve index of books.
//
// All methods are safe for concurrent use. The mutex keeps Reset from
// swapping the index under an in-flight query.
type BookIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the index.
type Options struct {
	DataPath string // directory for index storage; ignored when InMemory
	InMemory bool
	Logger   *slog.Logger
}

// mappingVersion changes whenever buildIndexMapping does. A mismatch on
// startup drops the index so it is rebuilt with the current mapping.
const mappingVersion = "1"

// NewBookIndex creates or opens the index. A corrupt or outdated on-disk
// index is removed and recreated empty; callers then reindex from the store.
func NewBookIndex(opts Options) (*BookIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.InMemory {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &BookIndex{index: index, logger: logger}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	indexPath := filepath.Join(opts.DataPath, "books.bleve")
	versionPath := filepath.Join(opts.DataPath, "books.version")

	var index bleve.Index
	needsRebuild := false

	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(existing) != mappingVersion {
			logger.Info("search index mapping changed, rebuilding",
				"old_version", string(existing), "new_version", mappingVersion)
			needsRebuild = true
		} else {
			var err error
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				needsRebuild = true
			}
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	}

	return &BookIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close releases the index.
func (s *BookIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Index adds or replaces a book.
func (s *BookIndex) Index(_ context.Context, book *domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(book.ID, newBookDocument(book).toMap())
}

// IndexBooks indexes books in batches.
func (s *BookIndex) IndexBooks(_ context.Context, books []*domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500
	for i := 0; i < len(books); i += batchSize {
		end := min(i+batchSize, len(books))
		batch := s.index.NewBatch()
		for _, b := range books[i:end] {
			if err := batch.Index(b.ID, newBookDocument(b).toMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", b.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Delete removes a book.
func (s *BookIndex) Delete(_ context.Context, bookID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(bookID)
}

// Count returns the number of indexed books.
func (s *BookIndex) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Reset drops every document by replacing the index with an empty one.
func (s *BookIndex) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("search index reset", "path", s.path)
	return nil
}
