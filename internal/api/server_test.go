package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/backup"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

var day0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(days int) {
	c.mu.Lock()
	c.now = c.now.Add(time.Duration(days) * domain.Day)
	c.mu.Unlock()
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api   humatest.TestAPI
	clock *testClock
	seq   int
}

type serverOption func(*Options)

func withRateLimit(rps float64, burst int) serverOption {
	return func(o *Options) { o.RateLimiter = ratelimit.New(rps, burst) }
}

// setupTestServer builds every service over a temp-dir SQLite database and
// an in-memory search index.
func setupTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewBookIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	logger := slog.New(slog.DiscardHandler)
	clock := &testClock{now: day0}
	v := validation.New()

	ledger := service.NewInventoryLedger(st, clock, logger)
	fines := service.NewFineService(st, clock, logger)
	borrow := service.NewBorrowService(st, ledger, fines, clock, logger)
	reservations := service.NewReservationService(st, ledger, borrow, nil, clock, logger)
	catalog := service.NewCatalogService(st, ledger, index, v, clock, logger)

	services := &Services{
		Catalog:      catalog,
		Members:      service.NewMemberService(st, v, clock, logger),
		Borrow:       borrow,
		Reservations: reservations,
		Fines:        fines,
		Settings:     service.NewSettingsService(st, v, clock, logger),
		Reports:      service.NewReportService(st, clock),
		Sweep:        service.NewSweepService(st, reservations, fines, nil, clock, logger),
		Backup:       backup.NewBackupService(st, filepath.Join(dir, "backups"), "test", logger),
		Restore:      backup.NewRestoreService(st, catalog, logger),
	}

	o := Options{
		Store:    st,
		Services: services,
		Search:   index,
		Version:  "test",
		Logger:   logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	s := NewServer(o)

	return &testServer{Server: s, api: humatest.Wrap(t, s.API()), clock: clock}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func requireStatus(t *testing.T, resp *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, resp.Code, resp.Body.String())
}

// requireError checks status and the stable error code of a failure body.
func requireError(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) APIError {
	t.Helper()
	requireStatus(t, resp, status)
	body := decode[APIError](t, resp)
	require.Equal(t, code, body.Code)
	require.NotEmpty(t, body.Message)
	return body
}

func (ts *testServer) createBook(t *testing.T, title string, copies int) *domain.Book {
	t.Helper()
	resp := ts.api.Post("/api/books", map[string]any{
		"title":       title,
		"author":      "Octavia E. Butler",
		"category":    "fiction",
		"totalCopies": copies,
	})
	requireStatus(t, resp, http.StatusCreated)
	return decode[*domain.Book](t, resp)
}

func (ts *testServer) createMember(t *testing.T) *domain.Member {
	t.Helper()
	ts.seq++
	resp := ts.api.Post("/api/members", map[string]any{
		"membershipID": fmt.Sprintf("LIB-%04d", ts.seq),
		"name":         fmt.Sprintf("Member %d", ts.seq),
		"email":        fmt.Sprintf("member%d@example.org", ts.seq),
	})
	requireStatus(t, resp, http.StatusCreated)
	return decode[*domain.Member](t, resp)
}

func (ts *testServer) approvedLoan(t *testing.T, memberID, bookID string) *domain.BorrowRecord {
	t.Helper()
	resp := ts.api.Post("/api/borrow/issue", map[string]any{"memberID": memberID, "bookID": bookID})
	requireStatus(t, resp, http.StatusCreated)
	loan := decode[*domain.BorrowRecord](t, resp)

	resp = ts.api.Post("/api/borrow/approve/" + loan.ID)
	requireStatus(t, resp, http.StatusOK)
	return decode[*domain.BorrowRecord](t, resp)
}
