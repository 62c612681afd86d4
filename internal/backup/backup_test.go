package backup_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/backup"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

type countingReindexer struct{ calls int }

func (r *countingReindexer) Reindex(context.Context) (int, error) {
	r.calls++
	return 0, nil
}

type fixture struct {
	store     *sqlite.Store
	backups   *backup.BackupService
	restores  *backup.RestoreService
	reindexer *countingReindexer
	backupDir string

	catalog *service.CatalogService
	members *service.MemberService
	borrow  *service.BorrowService
	fines   *service.FineService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "shelfwise.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.DiscardHandler)
	clock := service.SystemClock{}
	v := validation.New()

	ledger := service.NewInventoryLedger(st, clock, logger)
	fines := service.NewFineService(st, clock, logger)
	f := &fixture{
		store:     st,
		reindexer: &countingReindexer{},
		backupDir: filepath.Join(dir, "backups"),
		catalog:   service.NewCatalogService(st, ledger, nil, v, clock, logger),
		members:   service.NewMemberService(st, v, clock, logger),
		borrow:    service.NewBorrowService(st, ledger, fines, clock, logger),
		fines:     fines,
	}
	f.backups = backup.NewBackupService(st, f.backupDir, "test", logger)
	f.restores = backup.NewRestoreService(st, f.reindexer, logger)
	return f
}

// seed creates a book on loan, a second member and a partially paid fine.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	book, err := f.catalog.Create(ctx, service.CreateBookInput{
		Title: "The Dispossessed", Author: "Ursula K. Le Guin", ISBN: "9780061054884", Category: "fiction", TotalCopies: 3,
	})
	require.NoError(t, err)
	alice, err := f.members.Create(ctx, service.CreateMemberInput{MembershipID: "LIB-0001", Name: "Alice"})
	require.NoError(t, err)
	_, err = f.members.Create(ctx, service.CreateMemberInput{MembershipID: "LIB-0002", Name: "Bob"})
	require.NoError(t, err)

	loan, err := f.borrow.Issue(ctx, alice.ID, book.ID)
	require.NoError(t, err)
	_, err = f.borrow.Approve(ctx, loan.ID)
	require.NoError(t, err)

	fine, err := f.fines.CreateManual(ctx, alice.ID, decimal.RequireFromString("4.00"), "damaged cover")
	require.NoError(t, err)
	_, err = f.fines.RecordPayment(ctx, fine.ID, decimal.RequireFromString("1.50"), domain.PaymentCard, "")
	require.NoError(t, err)
}

func TestExport_Snapshot(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	doc, err := f.backups.Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, backup.FormatVersion, doc.Manifest.Version)
	assert.Equal(t, backup.EntityCounts{Books: 1, Members: 2, Loans: 1, Fines: 1, Payments: 1}, doc.Manifest.Counts)
	assert.Equal(t, domain.DefaultPolicy().MaxBooksPerMember, doc.Settings.MaxBooksPerMember)
	assert.Equal(t, 2, doc.Books[0].CopiesAvailable)

	v := backup.Validate(doc)
	assert.True(t, v.Valid, v.Errors)
	assert.Empty(t, v.Warnings)
}

func TestCreateAndRestoreFile_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	before, err := f.backups.Export(ctx)
	require.NoError(t, err)

	result, err := f.backups.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)
	assert.FileExists(t, result.Path)
	assert.Len(t, result.Checksum, 64)
	assert.Positive(t, result.Size)

	// Mutate state after the backup.
	_, err = f.catalog.Create(ctx, service.CreateBookInput{Title: "Extra", Author: "X", TotalCopies: 1})
	require.NoError(t, err)

	restored, err := f.restores.RestoreFile(ctx, result.Path, backup.RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, before.Counts(), restored.Imported)
	assert.Equal(t, 1, f.reindexer.calls)

	after, err := f.backups.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Counts(), after.Counts())
	assert.Equal(t, before.Books[0].ID, after.Books[0].ID)
	assert.Equal(t, before.Books[0].CopiesAvailable, after.Books[0].CopiesAvailable)
	assert.True(t, before.Fines[0].AmountPaid.Equal(after.Fines[0].AmountPaid))
	assert.Equal(t, domain.FinePartiallyPaid, after.Fines[0].Status)
	assert.Equal(t, before.Loans[0].Status, after.Loans[0].Status)

	audit, err := f.store.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, audit)
	assert.Equal(t, domain.AuditRestoreBackup, audit[0].Action)
}

func TestRestore_DryRunLeavesState(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	doc, err := f.backups.Export(ctx)
	require.NoError(t, err)
	doc.Books = doc.Books[:0]
	doc.Loans = doc.Loans[:0]
	doc.Manifest.Counts = doc.Counts()

	result, err := f.restores.Restore(ctx, doc, backup.RestoreOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Zero(t, f.reindexer.calls)

	books, err := f.store.ListBooks(ctx, store.BookFilter{})
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestRestore_InvalidDocumentIsRejected(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	doc, err := f.backups.Export(ctx)
	require.NoError(t, err)
	doc.Books[0].CopiesAvailable = doc.Books[0].TotalCopies // loan no longer accounted for

	_, err = f.restores.Restore(ctx, doc, backup.RestoreOptions{})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
	assert.ErrorIs(t, err, backup.ErrCorruptedBackup)

	// Nothing was replaced.
	book, err := f.store.GetBook(ctx, doc.Books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.CopiesAvailable)
}

func TestValidate(t *testing.T) {
	base := func() *backup.Document {
		due := mustTime(t, "2026-03-16T10:00:00Z")
		doc := &backup.Document{
			Manifest: backup.Manifest{Version: backup.FormatVersion},
			Settings: domain.DefaultPolicy(),
			Books:    []*domain.Book{{ID: "book-1", Title: "Dune", TotalCopies: 2, CopiesAvailable: 1}},
			Members:  []*domain.Member{{ID: "mem-1", Name: "Alice", Role: domain.RoleMember, Active: true}},
			Loans: []*domain.BorrowRecord{{
				ID: "loan-1", MemberID: "mem-1", BookID: "book-1", Status: domain.BorrowApproved, DueDate: &due,
			}},
			Fines: []*domain.Fine{{
				ID: "fine-1", MemberID: "mem-1", Amount: decimal.RequireFromString("2.00"),
				AmountPaid: decimal.RequireFromString("0.50"), Status: domain.FinePartiallyPaid,
			}},
			Payments: []domain.Payment{{ID: "pay-1", FineID: "fine-1", Amount: decimal.RequireFromString("0.50"), Method: domain.PaymentCash}},
		}
		doc.Manifest.Counts = doc.Counts()
		return doc
	}

	tests := []struct {
		name    string
		mutate  func(d *backup.Document)
		valid   bool
		warning bool
	}{
		{"valid", func(*backup.Document) {}, true, false},
		{"wrong version", func(d *backup.Document) { d.Manifest.Version = "9.0" }, false, false},
		{"copy invariant broken", func(d *backup.Document) { d.Books[0].CopiesAvailable = 2 }, false, false},
		{"available above total", func(d *backup.Document) { d.Books[0].CopiesAvailable = 3 }, false, false},
		{"duplicate member", func(d *backup.Document) {
			d.Members = append(d.Members, d.Members[0])
			d.Manifest.Counts = d.Counts()
		}, false, false},
		{"unknown loan status", func(d *backup.Document) { d.Loans[0].Status = "LOST" }, false, false},
		{"payments do not sum", func(d *backup.Document) { d.Payments[0].Amount = decimal.RequireFromString("0.25") }, false, false},
		{"status not derived", func(d *backup.Document) { d.Fines[0].Status = domain.FineUnpaid }, false, false},
		{"orphan payment", func(d *backup.Document) { d.Payments[0].FineID = "fine-x" }, false, false},
		{"bad settings", func(d *backup.Document) { d.Settings.MaxBooksPerMember = 0 }, false, false},
		{"shared isbn", func(d *backup.Document) {
			d.Books[0].ISBN = "9780441013593"
			d.Books = append(d.Books, &domain.Book{ID: "book-2", Title: "Dune Messiah", ISBN: "9780441013593", TotalCopies: 1, CopiesAvailable: 1})
			d.Manifest.Counts = d.Counts()
		}, false, false},
		{"two open loans for one member and book", func(d *backup.Document) {
			d.Loans = append(d.Loans, &domain.BorrowRecord{ID: "loan-2", MemberID: "mem-1", BookID: "book-1", Status: domain.BorrowPending})
			d.Manifest.Counts = d.Counts()
		}, false, false},
		{"two fines for one loan", func(d *backup.Document) {
			d.Fines[0].BorrowRecordID = "loan-1"
			d.Fines = append(d.Fines, &domain.Fine{
				ID: "fine-2", MemberID: "mem-1", BorrowRecordID: "loan-1",
				Amount: decimal.RequireFromString("1.00"), Status: domain.FineUnpaid,
			})
			d.Manifest.Counts = d.Counts()
		}, false, false},
		{"loan for missing member", func(d *backup.Document) { d.Loans[0].MemberID = "mem-gone" }, true, true},
		{"stale manifest counts", func(d *backup.Document) { d.Manifest.Counts.Books = 9 }, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base()
			tt.mutate(doc)
			result := backup.Validate(doc)
			assert.Equal(t, tt.valid, result.Valid, result.Errors)
			assert.Equal(t, tt.warning, len(result.Warnings) > 0, result.Warnings)
		})
	}
}

func TestArchive_RoundTripInMemory(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	doc, err := f.backups.Export(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, backup.WriteArchive(&buf, doc))

	got, err := backup.ReadArchive(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, doc.Counts(), got.Counts())
	assert.Equal(t, doc.Manifest.Counts, got.Manifest.Counts)
	assert.Equal(t, doc.Books[0].Title, got.Books[0].Title)
	assert.True(t, doc.Fines[0].Amount.Equal(got.Fines[0].Amount))
	assert.True(t, backup.Validate(got).Valid)
}

func TestReadArchive_Errors(t *testing.T) {
	_, err := backup.ReadArchive(bytes.NewReader([]byte("not a zip")), 9)
	assert.ErrorIs(t, err, backup.ErrCorruptedBackup)

	doc := &backup.Document{Manifest: backup.Manifest{Version: "0.1"}, Settings: domain.DefaultPolicy()}
	var buf bytes.Buffer
	require.NoError(t, backup.WriteArchive(&buf, doc))
	_, err = backup.ReadArchive(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.ErrorIs(t, err, backup.ErrVersionMismatch)

	_, err = backup.ReadFile(filepath.Join(t.TempDir(), "missing.zip"))
	assert.ErrorIs(t, err, backup.ErrBackupNotFound)
}

func TestBackupService_ListGetDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.backups.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	result, err := f.backups.Create(ctx, backup.BackupOptions{OutputPath: filepath.Join(f.backupDir, "nightly.shelfwise.zip")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.backupDir, "notes.txt"), []byte("x"), 0o644))

	list, err = f.backups.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "nightly", list[0].ID)
	assert.Equal(t, result.Path, list[0].Path)

	info, err := f.backups.Get(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, result.Size, info.Size)

	require.NoError(t, f.backups.Delete(ctx, "nightly"))
	_, err = f.backups.Get(ctx, "nightly")
	assert.ErrorIs(t, err, backup.ErrBackupNotFound)
	assert.ErrorIs(t, f.backups.Delete(ctx, "nightly"), backup.ErrBackupNotFound)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
