package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// BookIndex is the full-text index behind catalog search.
type BookIndex interface {
	Index(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, bookID string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
	// Reset drops every indexed document.
	Reset(ctx context.Context) error
}

type nopIndex struct{}

func (nopIndex) Index(context.Context, *domain.Book) error             { return nil }
func (nopIndex) Delete(context.Context, string) error                  { return nil }
func (nopIndex) Search(context.Context, string, int) ([]string, error) { return nil, nil }
func (nopIndex) Reset(context.Context) error                           { return nil }

// CreateBookInput describes a new catalog entry.
type CreateBookInput struct {
	Title       string `json:"title" validate:"required,max=500"`
	Author      string `json:"author" validate:"required,max=300"`
	ISBN        string `json:"isbn" validate:"omitempty,max=20"`
	Category    string `json:"category" validate:"max=100"`
	TotalCopies int    `json:"totalCopies" validate:"gte=0,lte=100000"`
}

// UpdateBookInput is a partial catalog edit. TotalCopies goes through the ledger.
type UpdateBookInput struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Author      *string `json:"author,omitempty" validate:"omitempty,min=1,max=300"`
	ISBN        *string `json:"isbn,omitempty" validate:"omitempty,max=20"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=100"`
	TotalCopies *int    `json:"totalCopies,omitempty" validate:"omitempty,gte=0,lte=100000"`
}

// CatalogService manages books. Copy counts are owned by the InventoryLedger.
type CatalogService struct {
	store     store.Store
	ledger    *InventoryLedger
	index     BookIndex
	validator *validation.Validator
	clock     Clock
	logger    *slog.Logger
}

// NewCatalogService creates a catalog service. A nil index disables search.
func NewCatalogService(s store.Store, ledger *InventoryLedger, index BookIndex, v *validation.Validator, clock Clock, logger *slog.Logger) *CatalogService {
	if index == nil {
		index = nopIndex{}
	}
	return &CatalogService{
		store:     s,
		ledger:    ledger,
		index:     index,
		validator: v,
		clock:     clock,
		logger:    logger,
	}
}

// Create adds a book with all of its copies available.
func (s *CatalogService) Create(ctx context.Context, in CreateBookInput) (*domain.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	book := &domain.Book{
		ID:              bookID,
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		Category:        strings.TrimSpace(in.Category),
		TotalCopies:     in.TotalCopies,
		CopiesAvailable: in.TotalCopies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflictf("a book with ISBN %s already exists", in.ISBN)
		}
		return nil, err
	}

	s.reindex(ctx, book)
	s.logger.Info("book created", "book_id", book.ID, "title", book.Title, "total_copies", book.TotalCopies)
	return book, nil
}

// Update edits a book. A new total is applied through the ledger in the same
// transaction as the detail edit, and its clamp report is returned.
func (s *CatalogService) Update(ctx context.Context, bookID string, in UpdateBookInput) (*AdjustResult, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	unlock := s.ledger.Lock(bookID)
	defer unlock()

	var result *AdjustResult
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return notFoundAs(err, "book", bookID)
		}

		if in.Title != nil || in.Author != nil || in.ISBN != nil || in.Category != nil {
			if in.Title != nil {
				book.Title = strings.TrimSpace(*in.Title)
			}
			if in.Author != nil {
				book.Author = strings.TrimSpace(*in.Author)
			}
			if in.ISBN != nil {
				book.ISBN = strings.TrimSpace(*in.ISBN)
			}
			if in.Category != nil {
				book.Category = strings.TrimSpace(*in.Category)
			}
			book.UpdatedAt = s.clock.Now()
			if err := tx.UpdateBookDetails(ctx, book); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					return domainerrors.Conflictf("a book with ISBN %s already exists", book.ISBN)
				}
				return notFoundAs(err, "book", bookID)
			}
		}

		result = &AdjustResult{Book: book}
		if in.TotalCopies != nil && *in.TotalCopies != book.TotalCopies {
			result, err = s.ledger.adjustTotalsTx(ctx, tx, bookID, *in.TotalCopies)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.reindex(ctx, result.Book)
	return result, nil
}

// Delete removes a book. Loans that reference it become invalid records.
func (s *CatalogService) Delete(ctx context.Context, bookID string) error {
	unlock := s.ledger.Lock(bookID)
	defer unlock()

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return notFoundAs(err, "book", bookID)
		}
		if err := tx.DeleteBook(ctx, bookID); err != nil {
			return notFoundAs(err, "book", bookID)
		}
		return audit(ctx, tx, domain.AuditDeleteBook, "book", bookID, fmt.Sprintf("%s by %s", book.Title, book.Author), s.clock)
	})
	if err != nil {
		return err
	}

	if err := s.index.Delete(ctx, bookID); err != nil {
		s.logger.Warn("failed to remove book from search index", "book_id", bookID, "error", err)
	}
	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// Get returns one book.
func (s *CatalogService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, notFoundAs(err, "book", bookID)
	}
	return book, nil
}

// List returns books, optionally restricted to one category.
func (s *CatalogService) List(ctx context.Context, category string) ([]*domain.Book, error) {
	return s.store.ListBooks(ctx, store.BookFilter{Category: category})
}

// ListAvailable returns books with at least one free copy.
func (s *CatalogService) ListAvailable(ctx context.Context) ([]*domain.Book, error) {
	return s.store.ListBooks(ctx, store.BookFilter{AvailableOnly: true})
}

// Search returns books matching query, best match first.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]*domain.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Book{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	ids, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return s.store.GetBooksByIDs(ctx, ids)
}

// Reindex rebuilds the search index from the store.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	books, err := s.store.ListBooks(ctx, store.BookFilter{})
	if err != nil {
		return 0, err
	}
	if err := s.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset search index: %w", err)
	}
	for _, b := range books {
		if err := s.index.Index(ctx, b); err != nil {
			return 0, fmt.Errorf("index book %s: %w", b.ID, err)
		}
	}
	s.logger.Info("search index rebuilt", "books", len(books))
	return len(books), nil
}

func (s *CatalogService) reindex(ctx context.Context, book *domain.Book) {
	if err := s.index.Index(ctx, book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}
