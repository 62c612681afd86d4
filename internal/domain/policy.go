package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PolicySettings are the library-wide rules consumed by the workflows.
type PolicySettings struct {
	MaxBooksPerMember        int             `json:"maxBooksPerMember" validate:"gte=1,lte=1000"`
	BorrowDurationDays       int             `json:"borrowDurationDays" validate:"gte=1,lte=3650"`
	FinePerDay               decimal.Decimal `json:"finePerDay" validate:"dnonneg"`
	MaxRenewals              int             `json:"maxRenewals" validate:"gte=1,lte=100"`
	ReservationExpiryDays    int             `json:"reservationExpiryDays" validate:"gte=1,lte=365"`
	MaxReservationsPerMember int             `json:"maxReservationsPerMember" validate:"gte=1,lte=1000"`
	AutoOverdueFines         bool            `json:"autoOverdueFines"`
	AutomaticNotifications   bool            `json:"automaticNotifications"`
	UpdatedAt                time.Time       `json:"updatedAt"`
}

// DefaultPolicy returns the settings a fresh library starts with.
func DefaultPolicy() PolicySettings {
	return PolicySettings{
		MaxBooksPerMember:        5,
		BorrowDurationDays:       14,
		FinePerDay:               decimal.RequireFromString("0.50"),
		MaxRenewals:              2,
		ReservationExpiryDays:    3,
		MaxReservationsPerMember: 5,
		AutoOverdueFines:         true,
		AutomaticNotifications:   false,
	}
}

// PolicyPatch is a partial update; nil fields are left unchanged.
type PolicyPatch struct {
	MaxBooksPerMember        *int             `json:"maxBooksPerMember,omitempty"`
	BorrowDurationDays       *int             `json:"borrowDurationDays,omitempty"`
	FinePerDay               *decimal.Decimal `json:"finePerDay,omitempty"`
	MaxRenewals              *int             `json:"maxRenewals,omitempty"`
	ReservationExpiryDays    *int             `json:"reservationExpiryDays,omitempty"`
	MaxReservationsPerMember *int             `json:"maxReservationsPerMember,omitempty"`
	AutoOverdueFines         *bool            `json:"autoOverdueFines,omitempty"`
	AutomaticNotifications   *bool            `json:"automaticNotifications,omitempty"`
}

// Apply returns a copy of s with the patch applied.
func (p PolicyPatch) Apply(s PolicySettings) PolicySettings {
	if p.MaxBooksPerMember != nil {
		s.MaxBooksPerMember = *p.MaxBooksPerMember
	}
	if p.BorrowDurationDays != nil {
		s.BorrowDurationDays = *p.BorrowDurationDays
	}
	if p.FinePerDay != nil {
		s.FinePerDay = *p.FinePerDay
	}
	if p.MaxRenewals != nil {
		s.MaxRenewals = *p.MaxRenewals
	}
	if p.ReservationExpiryDays != nil {
		s.ReservationExpiryDays = *p.ReservationExpiryDays
	}
	if p.MaxReservationsPerMember != nil {
		s.MaxReservationsPerMember = *p.MaxReservationsPerMember
	}
	if p.AutoOverdueFines != nil {
		s.AutoOverdueFines = *p.AutoOverdueFines
	}
	if p.AutomaticNotifications != nil {
		s.AutomaticNotifications = *p.AutomaticNotifications
	}
	return s
}

// OverdueFine returns days * FinePerDay rounded to cents.
func (s PolicySettings) OverdueFine(days int) decimal.Decimal {
	return s.FinePerDay.Mul(decimal.NewFromInt(int64(days))).Round(2)
}
