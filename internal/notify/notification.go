// Package notify delivers member notifications outside the request path.
//
// Workflows hand a Notification to the Dispatcher, which persists it in a
// badger-backed Outbox and returns. A background worker drains the outbox
// through a Transport and keeps failed entries for the next retry tick, so a
// broker outage never affects the workflow that produced the notice.
package notify

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind names a notification event.
type Kind string

// Notification kinds.
const (
	KindReservationReady Kind = "reservation.ready"
	KindLoanOverdue      Kind = "loan.overdue"
)

// Notification is one message for one member.
type Notification struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	MemberID      string    `json:"memberID"`
	BookID        string    `json:"bookID,omitempty"`
	ReservationID string    `json:"reservationID,omitempty"`
	LoanID        string    `json:"loanID,omitempty"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"lastError,omitempty"`
}

// Transport sends a notification to its final destination.
type Transport interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}

// Notifier accepts notifications for asynchronous delivery.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}

// Nop discards every notification.
type Nop struct{}

// Enqueue implements Notifier.
func (Nop) Enqueue(context.Context, Notification) error { return nil }
