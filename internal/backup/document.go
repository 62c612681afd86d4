package backup

import "github.com/shelfwise/shelfwise-server/internal/domain"

// Document is a full snapshot of engine state.
type Document struct {
	Manifest     Manifest               `json:"manifest"`
	Settings     domain.PolicySettings  `json:"settings"`
	Books        []*domain.Book         `json:"books"`
	Members      []*domain.Member       `json:"members"`
	Loans        []*domain.BorrowRecord `json:"loans"`
	Reservations []*domain.Reservation  `json:"reservations"`
	Fines        []*domain.Fine         `json:"fines"`
	Payments     []domain.Payment       `json:"payments"`
}

// Counts returns the number of entities actually present in the document.
func (d *Document) Counts() EntityCounts {
	return EntityCounts{
		Books:        len(d.Books),
		Members:      len(d.Members),
		Loans:        len(d.Loans),
		Reservations: len(d.Reservations),
		Fines:        len(d.Fines),
		Payments:     len(d.Payments),
	}
}
