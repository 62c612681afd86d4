package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/notify"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

var day0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.Add(time.Duration(n) * domain.Day) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recordingNotifier) Enqueue(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) Sent() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sent)
}

// memIndex matches case-insensitive substrings of title and author.
type memIndex struct {
	mu    sync.Mutex
	books map[string]domain.Book
}

func (m *memIndex) Index(_ context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = *b
	return nil
}

func (m *memIndex) Delete(_ context.Context, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, bookID)
	return nil
}

func (m *memIndex) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books = make(map[string]domain.Book)
	return nil
}

func (m *memIndex) Search(_ context.Context, query string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	var ids []string
	for id, b := range m.books {
		if strings.Contains(strings.ToLower(b.Title+" "+b.Author), q) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type testEnv struct {
	store        *sqlite.Store
	clock        *fakeClock
	notifier     *recordingNotifier
	index        *memIndex
	ledger       *InventoryLedger
	fines        *FineService
	borrow       *BorrowService
	reservations *ReservationService
	settings     *SettingsService
	catalog      *CatalogService
	members      *MemberService
	reports      *ReportService
	sweep        *SweepService

	seq int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "shelfwise.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.DiscardHandler)
	clock := &fakeClock{now: day0}
	v := validation.New()

	e := &testEnv{
		store:    st,
		clock:    clock,
		notifier: &recordingNotifier{},
		index:    &memIndex{books: make(map[string]domain.Book)},
	}
	e.ledger = NewInventoryLedger(st, clock, logger)
	e.fines = NewFineService(st, clock, logger)
	e.borrow = NewBorrowService(st, e.ledger, e.fines, clock, logger)
	e.reservations = NewReservationService(st, e.ledger, e.borrow, e.notifier, clock, logger)
	e.settings = NewSettingsService(st, v, clock, logger)
	e.catalog = NewCatalogService(st, e.ledger, e.index, v, clock, logger)
	e.members = NewMemberService(st, v, clock, logger)
	e.reports = NewReportService(st, clock)
	e.sweep = NewSweepService(st, e.reservations, e.fines, e.notifier, clock, logger)
	return e
}

func (e *testEnv) book(t *testing.T, copies int) *domain.Book {
	t.Helper()
	e.seq++
	b, err := e.catalog.Create(context.Background(), CreateBookInput{
		Title:       fmt.Sprintf("Book %d", e.seq),
		Author:      "Ursula Le Guin",
		Category:    "fiction",
		TotalCopies: copies,
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) member(t *testing.T) *domain.Member {
	t.Helper()
	e.seq++
	m, err := e.members.Create(context.Background(), CreateMemberInput{
		MembershipID: fmt.Sprintf("LIB-%04d", e.seq),
		Name:         fmt.Sprintf("Member %d", e.seq),
	})
	require.NoError(t, err)
	return m
}

func (e *testEnv) policy(t *testing.T, patch domain.PolicyPatch) {
	t.Helper()
	_, err := e.settings.Update(context.Background(), patch)
	require.NoError(t, err)
}

// approvedLoan issues and approves a loan at the current clock time.
func (e *testEnv) approvedLoan(t *testing.T, memberID, bookID string) *domain.BorrowRecord {
	t.Helper()
	ctx := context.Background()
	loan, err := e.borrow.Issue(ctx, memberID, bookID)
	require.NoError(t, err)
	loan, err = e.borrow.Approve(ctx, loan.ID)
	require.NoError(t, err)
	return loan
}

func (e *testEnv) available(t *testing.T, bookID string) int {
	t.Helper()
	b, err := e.store.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return b.CopiesAvailable
}

// requireConsistent checks the copy-count invariant for bookID.
func (e *testEnv) requireConsistent(t *testing.T, bookID string) {
	t.Helper()
	require.NoError(t, e.ledger.Audit(context.Background(), bookID))
}

func requireCode(t *testing.T, err error, code domainerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domainerrors.CodeOf(err), "error: %v", err)
}

func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
