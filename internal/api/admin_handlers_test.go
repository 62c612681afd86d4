package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func TestAdmin_SweepExpiresAndAccrues(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Kindred", 2)
	m1 := ts.createMember(t)
	m2 := ts.createMember(t)
	ts.approvedLoan(t, m1.ID, book.ID)
	ts.notifiedReservation(t, m2.ID, book.ID)

	ts.clock.Advance(16)

	resp := ts.api.Post("/api/admin/sweep")
	requireStatus(t, resp, http.StatusOK)
	result := decode[service.SweepResult](t, resp)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 1, result.FinesAssessed)
	assert.Empty(t, result.Errors)

	resp = ts.api.Get("/api/reservations/expired")
	requireStatus(t, resp, http.StatusOK)
	assert.Len(t, decode[[]*domain.Reservation](t, resp), 1)

	resp = ts.api.Post("/api/admin/sweep")
	requireStatus(t, resp, http.StatusOK)
	again := decode[service.SweepResult](t, resp)
	assert.Zero(t, again.Expired)
	assert.Zero(t, again.FinesAssessed)

	resp = ts.api.Get("/api/fines/member/" + m1.ID)
	requireStatus(t, resp, http.StatusOK)
	fines := decode[[]*domain.Fine](t, resp)
	require.Len(t, fines, 1)
	assert.True(t, fines[0].Amount.Equal(dec("1.00")), "amount %s", fines[0].Amount)
}

func TestAdmin_Summary(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Kindred", 3)
	ts.createBook(t, "Dawn", 1)
	m := ts.createMember(t)
	ts.approvedLoan(t, m.ID, book.ID)
	ts.manualFine(t, m.ID, 2.5)

	ts.clock.Advance(15)

	resp := ts.api.Get("/api/reports/summary")
	requireStatus(t, resp, http.StatusOK)
	summary := decode[store.Summary](t, resp)
	assert.Equal(t, 2, summary.Books.Titles)
	assert.Equal(t, 4, summary.Books.TotalCopies)
	assert.Equal(t, 3, summary.Books.CopiesAvailable)
	assert.Equal(t, 1, summary.Loans.Active)
	assert.Equal(t, 1, summary.Loans.Overdue)
	assert.Equal(t, 1, summary.Fines.Count)
	assert.True(t, summary.Fines.Outstanding.Equal(dec("2.5")))
}

func TestRateLimit_RejectsBurstOfWrites(t *testing.T) {
	ts := setupTestServer(t, withRateLimit(0.001, 2))

	for i := range 2 {
		resp := ts.api.Post("/api/books", map[string]any{"title": "Kindred", "author": "Butler", "totalCopies": i})
		requireStatus(t, resp, http.StatusCreated)
	}

	resp := ts.api.Post("/api/books", map[string]any{"title": "Dawn", "author": "Butler", "totalCopies": 1})
	requireError(t, resp, http.StatusTooManyRequests, "RATE_LIMITED")

	resp = ts.api.Get("/api/books")
	requireStatus(t, resp, http.StatusOK)
}
