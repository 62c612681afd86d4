package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/books",
		Summary:     "List books",
		Description: "Returns the catalog ordered by title, optionally filtered by category",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAvailableBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/available",
		Summary:     "List available books",
		Description: "Returns books with at least one free copy",
		Tags:        []string{"Books"},
	}, s.handleListAvailableBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/search",
		Summary:     "Search books",
		Description: "Full-text search over title, author, ISBN and category",
		Tags:        []string{"Books"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/books",
		Summary:       "Create book",
		Description:   "Adds a title with all of its copies available",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/books/{id}",
		Summary:     "Update book",
		Description: "Edits catalog fields. Changing totalCopies goes through the inventory ledger and reports whether available copies were clamped.",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/books/{id}",
		Summary:       "Delete book",
		Description:   "Removes the title. Loans that reference it become invalid records.",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)
}

// === DTOs ===

// ListBooksInput filters the catalog.
type ListBooksInput struct {
	Category string `query:"category" doc:"Only books in this category"`
}

// BooksOutput wraps a list of books.
type BooksOutput struct {
	Body []*domain.Book
}

// SearchBooksInput contains search parameters.
type SearchBooksInput struct {
	Query string `query:"q" doc:"Search text"`
	Limit int    `query:"limit" minimum:"0" maximum:"100" doc:"Maximum results (default 20)"`
}

// BookIDInput addresses one book.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookOutput wraps a single book.
type BookOutput struct {
	Body *domain.Book
}

// CreateBookRequest is the request body for creating a book.
type CreateBookRequest struct {
	Title       string `json:"title" minLength:"1" maxLength:"500" doc:"Title"`
	Author      string `json:"author" minLength:"1" maxLength:"300" doc:"Author"`
	ISBN        string `json:"isbn,omitempty" maxLength:"20" doc:"ISBN-10 or ISBN-13"`
	Category    string `json:"category,omitempty" maxLength:"100" doc:"Category"`
	TotalCopies int    `json:"totalCopies" minimum:"0" doc:"Number of lendable copies"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body CreateBookRequest
}

// UpdateBookInput wraps a partial book edit for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body service.UpdateBookInput
}

// AdjustOutput wraps the result of a catalog edit.
type AdjustOutput struct {
	Body *service.AdjustResult
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BooksOutput, error) {
	books, err := s.services.Catalog.List(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	return &BooksOutput{Body: nonNil(books)}, nil
}

func (s *Server) handleListAvailableBooks(ctx context.Context, _ *struct{}) (*BooksOutput, error) {
	books, err := s.services.Catalog.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return &BooksOutput{Body: nonNil(books)}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*BooksOutput, error) {
	books, err := s.services.Catalog.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	return &BooksOutput{Body: nonNil(books)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Catalog.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.Create(ctx, service.CreateBookInput{
		Title:       input.Body.Title,
		Author:      input.Body.Author,
		ISBN:        input.Body.ISBN,
		Category:    input.Body.Category,
		TotalCopies: input.Body.TotalCopies,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*AdjustOutput, error) {
	result, err := s.services.Catalog.Update(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &AdjustOutput{Body: result}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	if err := s.services.Catalog.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
