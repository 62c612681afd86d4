package domain

import (
	"time"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

// Book is a catalog title with a pool of lendable copies.
// Copy counts are written only by the inventory ledger.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Category        string    `json:"category"`
	TotalCopies     int       `json:"totalCopies"`
	CopiesAvailable int       `json:"copiesAvailable"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// OnLoan returns the number of copies currently out on approved loans.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.CopiesAvailable
}

// IsAvailable reports whether at least one copy is free.
func (b *Book) IsAvailable() bool {
	return b.CopiesAvailable > 0
}

// CheckCopies verifies the copy counters against the number of active
// approved loans for the book.
func (b *Book) CheckCopies(activeLoans int) error {
	if b.CopiesAvailable < 0 || b.CopiesAvailable > b.TotalCopies {
		return domainerrors.DataIntegrityf("book %s: copiesAvailable %d outside [0,%d]",
			b.ID, b.CopiesAvailable, b.TotalCopies)
	}
	if b.CopiesAvailable+activeLoans != b.TotalCopies {
		return domainerrors.DataIntegrityf("book %s: %d available + %d on loan != %d total",
			b.ID, b.CopiesAvailable, activeLoans, b.TotalCopies)
	}
	return nil
}
