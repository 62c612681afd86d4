package backup

import (
	"github.com/shopspring/decimal"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

var settingsValidator = validation.New()

// Validate checks a document before it replaces live state. Loans that
// reference a missing book or member are restored as invalid records and
// only produce warnings.
func Validate(doc *Document) *ValidationResult {
	result := &ValidationResult{Valid: true, Manifest: &doc.Manifest}

	if doc.Manifest.Version != FormatVersion {
		result.fail("unsupported version %q (want %q)", doc.Manifest.Version, FormatVersion)
		return result
	}
	if doc.Manifest.Counts != doc.Counts() {
		result.warn("manifest counts %+v do not match contents %+v", doc.Manifest.Counts, doc.Counts())
	}
	if err := settingsValidator.Validate(doc.Settings); err != nil {
		result.fail("settings: %v", err)
	}

	books := make(map[string]*domain.Book, len(doc.Books))
	isbns := make(map[string]string)
	for _, b := range doc.Books {
		if b == nil || b.ID == "" {
			result.fail("book with empty id")
			continue
		}
		if _, dup := books[b.ID]; dup {
			result.fail("duplicate book %s", b.ID)
		}
		books[b.ID] = b
		if b.ISBN != "" {
			if other, dup := isbns[b.ISBN]; dup {
				result.fail("books %s and %s share ISBN %s", other, b.ID, b.ISBN)
			}
			isbns[b.ISBN] = b.ID
		}
	}

	members := make(map[string]bool, len(doc.Members))
	membershipIDs := make(map[string]string)
	for _, m := range doc.Members {
		if m == nil || m.ID == "" {
			result.fail("member with empty id")
			continue
		}
		if members[m.ID] {
			result.fail("duplicate member %s", m.ID)
		}
		members[m.ID] = true
		if other, dup := membershipIDs[m.MembershipID]; dup {
			result.fail("members %s and %s share membership id %q", other, m.ID, m.MembershipID)
		}
		membershipIDs[m.MembershipID] = m.ID
		if !m.Role.Valid() {
			result.fail("member %s: unknown role %q", m.ID, m.Role)
		}
	}

	loans := make(map[string]bool, len(doc.Loans))
	active := make(map[string]int)
	openLoans := make(map[[2]string]string)
	for _, l := range doc.Loans {
		if l == nil || l.ID == "" {
			result.fail("loan with empty id")
			continue
		}
		if loans[l.ID] {
			result.fail("duplicate loan %s", l.ID)
		}
		loans[l.ID] = true
		if !l.Status.Valid() {
			result.fail("loan %s: unknown status %q", l.ID, l.Status)
		}
		if l.Status == domain.BorrowApproved && l.DueDate == nil {
			result.fail("loan %s: approved without a due date", l.ID)
		}
		if _, ok := books[l.BookID]; !ok {
			result.warn("loan %s: book %s missing, restored as invalid record", l.ID, l.BookID)
		} else if !members[l.MemberID] {
			result.warn("loan %s: member %s missing, restored as invalid record", l.ID, l.MemberID)
		}
		if l.IsActive() {
			active[l.BookID]++
		}
		if l.Status == domain.BorrowPending || l.Status == domain.BorrowApproved {
			key := [2]string{l.MemberID, l.BookID}
			if other, dup := openLoans[key]; dup {
				result.fail("loans %s and %s are both open for member %s and book %s", other, l.ID, l.MemberID, l.BookID)
			}
			openLoans[key] = l.ID
		}
	}
	for _, b := range doc.Books {
		if b == nil || b.ID == "" {
			continue
		}
		if err := b.CheckCopies(active[b.ID]); err != nil {
			result.fail("%v", err)
		}
	}

	reservations := make(map[string]bool, len(doc.Reservations))
	openReservations := make(map[[2]string]string)
	for _, r := range doc.Reservations {
		if r == nil || r.ID == "" {
			result.fail("reservation with empty id")
			continue
		}
		if reservations[r.ID] {
			result.fail("duplicate reservation %s", r.ID)
		}
		reservations[r.ID] = true
		if !r.Status.Valid() {
			result.fail("reservation %s: unknown status %q", r.ID, r.Status)
		}
		if r.Status.Valid() && r.IsActive() {
			key := [2]string{r.MemberID, r.BookID}
			if other, dup := openReservations[key]; dup {
				result.fail("reservations %s and %s are both open for member %s and book %s", other, r.ID, r.MemberID, r.BookID)
			}
			openReservations[key] = r.ID
		}
		if r.BorrowRecordID != "" && !loans[r.BorrowRecordID] {
			result.fail("reservation %s: unknown loan %s", r.ID, r.BorrowRecordID)
		}
	}

	paid := make(map[string]decimal.Decimal)
	payments := make(map[string]bool, len(doc.Payments))
	for _, p := range doc.Payments {
		if payments[p.ID] {
			result.fail("duplicate payment %s", p.ID)
		}
		payments[p.ID] = true
		if !p.Amount.IsPositive() {
			result.fail("payment %s: non-positive amount %s", p.ID, p.Amount)
		}
		paid[p.FineID] = paid[p.FineID].Add(p.Amount)
	}

	fines := make(map[string]bool, len(doc.Fines))
	finedLoans := make(map[string]string)
	for _, f := range doc.Fines {
		if f == nil || f.ID == "" {
			result.fail("fine with empty id")
			continue
		}
		if fines[f.ID] {
			result.fail("duplicate fine %s", f.ID)
		}
		fines[f.ID] = true
		if !f.Amount.IsPositive() || f.AmountPaid.IsNegative() || f.AmountPaid.GreaterThan(f.Amount) {
			result.fail("fine %s: amountPaid %s outside [0,%s]", f.ID, f.AmountPaid, f.Amount)
		}
		if !f.AmountPaid.Equal(paid[f.ID]) {
			result.fail("fine %s: amountPaid %s does not match payments %s", f.ID, f.AmountPaid, paid[f.ID])
		}
		if want := domain.DeriveFineStatus(f.AmountPaid, f.Amount, f.IsWaived()); f.Status != want {
			result.fail("fine %s: status %s, expected %s", f.ID, f.Status, want)
		}
		if f.BorrowRecordID != "" {
			if other, dup := finedLoans[f.BorrowRecordID]; dup {
				result.fail("fines %s and %s both belong to loan %s", other, f.ID, f.BorrowRecordID)
			}
			finedLoans[f.BorrowRecordID] = f.ID
		}
		if f.BorrowRecordID != "" && !loans[f.BorrowRecordID] {
			result.warn("fine %s: loan %s not in backup", f.ID, f.BorrowRecordID)
		}
	}
	for _, p := range doc.Payments {
		if !fines[p.FineID] {
			result.fail("payment %s: unknown fine %s", p.ID, p.FineID)
		}
	}

	return result
}
