package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// FineStatus is derived from the paid amount and the waived flag.
type FineStatus string

// Fine states.
const (
	FineUnpaid        FineStatus = "UNPAID"
	FinePartiallyPaid FineStatus = "PARTIALLY_PAID"
	FinePaid          FineStatus = "PAID"
	FineWaived        FineStatus = "WAIVED"
)

// DeriveFineStatus computes a fine's status from its ledger.
func DeriveFineStatus(amountPaid, amount decimal.Decimal, waived bool) FineStatus {
	switch {
	case waived:
		return FineWaived
	case amountPaid.GreaterThanOrEqual(amount):
		return FinePaid
	case amountPaid.IsPositive():
		return FinePartiallyPaid
	default:
		return FineUnpaid
	}
}

// PaymentMethod is how a payment was tendered.
type PaymentMethod string

// Payment methods.
const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentOnline       PaymentMethod = "ONLINE"
	PaymentOther        PaymentMethod = "OTHER"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentOnline, PaymentOther:
		return true
	}
	return false
}

// Fine is a monetary obligation, either manual or tied to an overdue loan.
type Fine struct {
	ID             string          `json:"id"`
	MemberID       string          `json:"memberID"`
	BorrowRecordID string          `json:"borrowRecordID,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	AmountPaid     decimal.Decimal `json:"amountPaid"`
	Status         FineStatus      `json:"status"`
	Reason         string          `json:"reason"`
	IssueDate      time.Time       `json:"issueDate"`
	WaivedReason   string          `json:"waivedReason,omitempty"`
	WaivedAt       *time.Time      `json:"waivedAt,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Payments       []Payment       `json:"payments,omitempty"`
}

// Outstanding returns what is still owed. Waived fines owe nothing.
func (f *Fine) Outstanding() decimal.Decimal {
	if f.IsWaived() {
		return decimal.Zero
	}
	return f.Amount.Sub(f.AmountPaid)
}

// IsWaived reports whether the fine has been waived.
func (f *Fine) IsWaived() bool {
	return f.Status == FineWaived
}

// IsManual reports whether the fine was issued by staff rather than by a loan.
func (f *Fine) IsManual() bool {
	return f.BorrowRecordID == ""
}

// Refresh recomputes Status from the ledger.
func (f *Fine) Refresh() {
	f.Status = DeriveFineStatus(f.AmountPaid, f.Amount, f.IsWaived())
}

// Payment is one entry of a fine's append-only payment log.
type Payment struct {
	ID        string          `json:"id"`
	FineID    string          `json:"fineID"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Notes     string          `json:"notes,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
