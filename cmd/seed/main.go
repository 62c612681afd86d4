// Package main provides a tool to seed a data directory with a demo library.
//
// It creates books, members and a mix of pending, active, overdue and
// returned loans so the dashboard, fines and sweep have something to show.
//
// Usage:
//
//	DATA_PATH=~/.shelfwise go run ./cmd/seed
//	DATA_PATH=~/.shelfwise go run ./cmd/seed --members 40 --loans 120
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

var (
	memberCount = flag.Int("members", 12, "Number of members to create")
	loanCount   = flag.Int("loans", 30, "Number of loan requests to create")
	daysBack    = flag.Int("days", 45, "Spread loan requests over this many past days")
)

var titles = []struct{ title, author, category string }{
	{"Kindred", "Octavia E. Butler", "fiction"},
	{"Parable of the Sower", "Octavia E. Butler", "fiction"},
	{"The Left Hand of Darkness", "Ursula K. Le Guin", "fiction"},
	{"A Wizard of Earthsea", "Ursula K. Le Guin", "fantasy"},
	{"The Structure of Scientific Revolutions", "Thomas S. Kuhn", "science"},
	{"Silent Spring", "Rachel Carson", "science"},
	{"The Death and Life of Great American Cities", "Jane Jacobs", "urbanism"},
	{"Invisible Cities", "Italo Calvino", "fiction"},
	{"Gödel, Escher, Bach", "Douglas Hofstadter", "science"},
	{"The Book of Disquiet", "Fernando Pessoa", "poetry"},
}

// shiftedClock lets requests be dated in the past.
type shiftedClock struct{ now time.Time }

func (c *shiftedClock) Now() time.Time { return c.now }

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/.shelfwise")
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data path: %v", err)
	}
	dbPath := config.StorageConfig{DataPath: dataPath}.DatabasePath()

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	clock := &shiftedClock{now: time.Now().UTC().AddDate(0, 0, -*daysBack)}
	v := validation.New()

	ledger := service.NewInventoryLedger(s, clock, logger)
	fines := service.NewFineService(s, clock, logger)
	borrow := service.NewBorrowService(s, ledger, fines, clock, logger)
	catalog := service.NewCatalogService(s, ledger, nil, v, clock, logger)
	members := service.NewMemberService(s, v, clock, logger)

	var books []*domain.Book
	for _, t := range titles {
		b, err := catalog.Create(ctx, service.CreateBookInput{
			Title:       t.title,
			Author:      t.author,
			Category:    t.category,
			TotalCopies: 1 + rng.Intn(4),
		})
		if err != nil {
			log.Printf("Failed to create book %q: %v", t.title, err)
			continue
		}
		books = append(books, b)
	}
	fmt.Printf("Created %d books\n", len(books))

	var memberIDs []string
	suffix := time.Now().Unix() % 100000
	for n := range *memberCount {
		m, err := members.Create(ctx, service.CreateMemberInput{
			MembershipID: fmt.Sprintf("SEED-%05d-%03d", suffix, n),
			Name:         fmt.Sprintf("Seed Member %d", n+1),
			Email:        fmt.Sprintf("seed%d@example.org", n+1),
		})
		if err != nil {
			log.Printf("Failed to create member: %v", err)
			continue
		}
		memberIDs = append(memberIDs, m.ID)
	}
	fmt.Printf("Created %d members\n", len(memberIDs))

	if len(books) == 0 || len(memberIDs) == 0 {
		log.Fatal("Nothing to lend. Check the errors above.")
	}

	// Walk the clock forward so requests, approvals and returns happen in
	// order and late returns accrue real fines.
	step := time.Duration(*daysBack) * domain.Day / time.Duration(max(*loanCount, 1))
	var approved, returned, pending, skipped int
	for range *loanCount {
		clock.now = clock.now.Add(step)

		loan, err := borrow.Issue(ctx, memberIDs[rng.Intn(len(memberIDs))], books[rng.Intn(len(books))].ID)
		if err != nil {
			skipped++
			continue
		}
		if rng.Float32() < 0.15 {
			pending++
			continue
		}
		if _, err := borrow.Approve(ctx, loan.ID); err != nil {
			skipped++
			continue
		}
		approved++

		// Roughly half come back, some of them late.
		if rng.Float32() < 0.5 {
			saved := clock.now
			clock.now = clock.now.Add(time.Duration(7+rng.Intn(21)) * domain.Day)
			if clock.now.Before(time.Now()) {
				if _, err := borrow.Return(ctx, loan.ID); err == nil {
					returned++
				}
			}
			clock.now = saved
		}
	}

	fmt.Printf("Loans: %d approved, %d returned, %d pending, %d skipped by policy\n", approved, returned, pending, skipped)
	fmt.Printf("Run `shelfctl --data-path %s sweep` to assess overdue fines.\n", filepath.Clean(dataPath))
}
