package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

func TestCatalog_CreateValidates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.catalog.Create(ctx, CreateBookInput{Author: "x", TotalCopies: 1})
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = e.catalog.Create(ctx, CreateBookInput{Title: "x", Author: "y", TotalCopies: -1})
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = e.catalog.Create(ctx, CreateBookInput{Title: "A", Author: "B", ISBN: "9780441478125", TotalCopies: 1})
	require.NoError(t, err)
	_, err = e.catalog.Create(ctx, CreateBookInput{Title: "C", Author: "D", ISBN: "9780441478125", TotalCopies: 1})
	requireCode(t, err, domainerrors.CodeConflict)
}

func TestCatalog_UpdateTotalsClampsAvailable(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 4)
	e.approvedLoan(t, e.member(t).ID, b.ID)
	e.approvedLoan(t, e.member(t).ID, b.ID)

	res, err := e.catalog.Update(ctx, b.ID, UpdateBookInput{TotalCopies: intPtr(3)})
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	assert.Equal(t, 3, res.Book.TotalCopies)
	assert.Equal(t, 1, res.Book.CopiesAvailable)
	e.requireConsistent(t, b.ID)

	res, err = e.catalog.Update(ctx, b.ID, UpdateBookInput{TotalCopies: intPtr(6)})
	require.NoError(t, err)
	assert.False(t, res.Clamped)
	assert.Equal(t, 4, res.Book.CopiesAvailable)

	_, err = e.catalog.Update(ctx, b.ID, UpdateBookInput{TotalCopies: intPtr(1)})
	requireCode(t, err, domainerrors.CodePolicyViolation)
	e.requireConsistent(t, b.ID)
}

func TestCatalog_UpdateDetailsKeepsCounts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 2)
	e.approvedLoan(t, e.member(t).ID, b.ID)

	res, err := e.catalog.Update(ctx, b.ID, UpdateBookInput{Title: strPtr("The Dispossessed"), Category: strPtr("sf")})
	require.NoError(t, err)
	assert.Equal(t, "The Dispossessed", res.Book.Title)
	assert.Equal(t, 1, res.Book.CopiesAvailable)

	found, err := e.catalog.Search(ctx, "dispossessed", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	_, err = e.catalog.Update(ctx, "book-missing", UpdateBookInput{Title: strPtr("x")})
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestCatalog_UpdateRejectedTotalKeepsDetails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 2)
	e.approvedLoan(t, e.member(t).ID, b.ID)

	_, err := e.catalog.Update(ctx, b.ID, UpdateBookInput{Title: strPtr("Renamed"), TotalCopies: intPtr(0)})
	requireCode(t, err, domainerrors.CodePolicyViolation)

	got, err := e.catalog.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Title, got.Title)
	assert.Equal(t, 2, got.TotalCopies)
	assert.Equal(t, 1, got.CopiesAvailable)

	found, err := e.catalog.Search(ctx, "renamed", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCatalog_ListsAndSearch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	free := e.book(t, 1)
	taken := e.book(t, 1)
	e.approvedLoan(t, e.member(t).ID, taken.ID)

	all, err := e.catalog.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fiction, err := e.catalog.List(ctx, "fiction")
	require.NoError(t, err)
	assert.Len(t, fiction, 2)

	avail, err := e.catalog.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, free.ID, avail[0].ID)

	found, err := e.catalog.Search(ctx, "le guin", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	empty, err := e.catalog.Search(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCatalog_DeleteRemovesFromIndex(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 1)

	require.NoError(t, e.catalog.Delete(ctx, b.ID))
	_, err := e.catalog.Get(ctx, b.ID)
	requireCode(t, err, domainerrors.CodeNotFound)

	found, err := e.catalog.Search(ctx, "le guin", 10)
	require.NoError(t, err)
	assert.Empty(t, found)

	err = e.catalog.Delete(ctx, b.ID)
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestCatalog_Reindex(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.book(t, 1)
	e.book(t, 1)
	stale := &domain.Book{ID: "book-stale", Title: "Gone", Author: "Nobody"}
	require.NoError(t, e.index.Index(ctx, stale))

	n, err := e.catalog.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, e.index.books, 2)
}
