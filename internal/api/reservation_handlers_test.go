package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (ts *testServer) notifiedReservation(t *testing.T, memberID, bookID string) *domain.Reservation {
	t.Helper()
	resp := ts.api.Post("/api/reservations", map[string]any{"memberID": memberID, "bookID": bookID})
	requireStatus(t, resp, http.StatusCreated)
	res := decode[*domain.Reservation](t, resp)
	assert.Equal(t, domain.ReservationPending, res.Status)

	resp = ts.api.Post("/api/reservations/" + res.ID + "/approve")
	requireStatus(t, resp, http.StatusOK)

	resp = ts.api.Post("/api/reservations/" + res.ID + "/notify")
	requireStatus(t, resp, http.StatusOK)
	return decode[*domain.Reservation](t, resp)
}

func TestReservations_FulfillCreatesLoan(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Kindred", 1)
	m := ts.createMember(t)

	res := ts.notifiedReservation(t, m.ID, book.ID)
	assert.True(t, res.NotificationSent)
	require.NotNil(t, res.ExpiryDate)

	resp := ts.api.Post("/api/reservations/" + res.ID + "/fulfill")
	requireStatus(t, resp, http.StatusOK)
	result := decode[service.FulfillResult](t, resp)
	assert.Equal(t, domain.ReservationFulfilled, result.Reservation.Status)
	assert.Equal(t, domain.BorrowApproved, result.Loan.Status)
	assert.Equal(t, result.Loan.ID, result.Reservation.BorrowRecordID)

	resp = ts.api.Get("/api/books/" + book.ID)
	requireStatus(t, resp, http.StatusOK)
	assert.Equal(t, 0, decode[*domain.Book](t, resp).CopiesAvailable)

	resp = ts.api.Post("/api/reservations/" + res.ID + "/fulfill")
	requireError(t, resp, http.StatusConflict, "INVALID_TRANSITION")
}

func TestReservations_FulfillAfterDeadlineIsGone(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Kindred", 1)
	m := ts.createMember(t)
	res := ts.notifiedReservation(t, m.ID, book.ID)

	ts.clock.Advance(5)

	resp := ts.api.Post("/api/reservations/" + res.ID + "/fulfill")
	requireError(t, resp, http.StatusGone, "EXPIRED")

	resp = ts.api.Get("/api/books/" + book.ID)
	requireStatus(t, resp, http.StatusOK)
	assert.Equal(t, 1, decode[*domain.Book](t, resp).CopiesAvailable)
}

func TestReservations_Cancel(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Kindred", 1)
	m := ts.createMember(t)

	resp := ts.api.Post("/api/reservations", map[string]any{"memberID": m.ID, "bookID": book.ID})
	requireStatus(t, resp, http.StatusCreated)
	first := decode[*domain.Reservation](t, resp)

	resp = ts.api.Post("/api/reservations", map[string]any{"memberID": m.ID, "bookID": book.ID})
	requireError(t, resp, http.StatusUnprocessableEntity, "POLICY_VIOLATION")

	resp = ts.api.Delete("/api/reservations/" + first.ID + "?reason=changed+my+mind")
	requireStatus(t, resp, http.StatusOK)
	cancelled := decode[*domain.Reservation](t, resp)
	assert.Equal(t, domain.ReservationCancelled, cancelled.Status)
	assert.Equal(t, domain.CancelledByMember, cancelled.CancelledBy)
	assert.Equal(t, "changed my mind", cancelled.CancelReason)

	resp = ts.api.Post("/api/reservations/" + first.ID + "/cancel-admin")
	requireError(t, resp, http.StatusConflict, "INVALID_TRANSITION")

	resp = ts.api.Post("/api/reservations", map[string]any{"memberID": m.ID, "bookID": book.ID})
	requireStatus(t, resp, http.StatusCreated)
	second := decode[*domain.Reservation](t, resp)

	resp = ts.api.Post("/api/reservations/" + second.ID + "/cancel-admin")
	requireStatus(t, resp, http.StatusOK)
	assert.Equal(t, domain.CancelledByAdmin, decode[*domain.Reservation](t, resp).CancelledBy)
}

func TestReservations_Listings(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Kindred", 1)
	m1 := ts.createMember(t)
	m2 := ts.createMember(t)

	ts.notifiedReservation(t, m1.ID, book.ID)
	resp := ts.api.Post("/api/reservations", map[string]any{"memberID": m2.ID, "bookID": book.ID})
	requireStatus(t, resp, http.StatusCreated)

	resp = ts.api.Get("/api/reservations/pending")
	requireStatus(t, resp, http.StatusOK)
	pending := decode[[]*domain.Reservation](t, resp)
	require.Len(t, pending, 1)
	assert.Equal(t, m2.ID, pending[0].MemberID)

	resp = ts.api.Get("/api/reservations/approved")
	requireStatus(t, resp, http.StatusOK)
	assert.Len(t, decode[[]*domain.Reservation](t, resp), 1)

	resp = ts.api.Get("/api/reservations/expired")
	requireStatus(t, resp, http.StatusOK)
	assert.JSONEq(t, "[]", resp.Body.String())

	resp = ts.api.Get("/api/reservations/member/" + m1.ID)
	requireStatus(t, resp, http.StatusOK)
	assert.Len(t, decode[[]*domain.Reservation](t, resp), 1)

	resp = ts.api.Get("/api/reservations/res-missing")
	requireError(t, resp, http.StatusNotFound, "NOT_FOUND")
}
