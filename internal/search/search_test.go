package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

func newTestIndex(t *testing.T) *BookIndex {
	t.Helper()
	idx, err := NewBookIndex(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func testBooks() []*domain.Book {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []*domain.Book{
		{ID: "book-1", Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", ISBN: "978-0-441-47812-5", Category: "Science Fiction", CreatedAt: now},
		{ID: "book-2", Title: "Germinal", Author: "Émile Zola", ISBN: "9780140447422", Category: "Classics", CreatedAt: now},
		{ID: "book-3", Title: "A Wizard of Earthsea", Author: "Ursula K. Le Guin", Category: "Fantasy", CreatedAt: now},
		{ID: "book-4", Title: "Darkness at Noon", Author: "Arthur Koestler", Category: "Classics", CreatedAt: now},
	}
}

func seed(t *testing.T, idx *BookIndex) {
	t.Helper()
	require.NoError(t, idx.IndexBooks(context.Background(), testBooks()))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "emile zola", Fold("Émile Zola"))
	assert.Equal(t, "garcia marquez", Fold("García Márquez"))
	assert.Equal(t, "plain", Fold("PLAIN"))
}

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9780441478125", normalizeISBN("978-0-441-47812-5"))
	assert.Equal(t, "080442957X", normalizeISBN("0-8044-2957-x"))
}

func TestSearch_TitleAndAuthor(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)
	ctx := context.Background()

	ids, err := idx.Search(ctx, "darkness", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"book-1", "book-4"}, ids)

	ids, err = idx.Search(ctx, "le guin", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"book-1", "book-3"}, ids)
}

func TestSearch_AccentInsensitive(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	ids, err := idx.Search(context.Background(), "emile zola", 10)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "book-2", ids[0])
}

func TestSearch_ISBN(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	ids, err := idx.Search(context.Background(), "9780441478125", 10)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "book-1", ids[0])
}

func TestSearch_Typo(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	ids, err := idx.Search(context.Background(), "wizzard", 10)
	require.NoError(t, err)
	assert.Contains(t, ids, "book-3")
}

func TestSearchBooks_CategoryFilter(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	res, err := idx.SearchBooks(context.Background(), Params{Query: "darkness", Category: "Classics"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "book-4", res.Hits[0].ID)
	assert.Equal(t, "Darkness at Noon", res.Hits[0].Title)
	assert.Equal(t, "Arthur Koestler", res.Hits[0].Author)
}

func TestDeleteAndReset(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)
	ctx := context.Background()

	require.NoError(t, idx.Delete(ctx, "book-4"))
	ids, err := idx.Search(ctx, "noon", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	require.NoError(t, idx.Reset(ctx))
	n, err = idx.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOnDiskIndexReopens(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := NewBookIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, testBooks()[0]))
	require.NoError(t, idx.Close())

	idx, err = NewBookIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	require.NoError(t, idx.Reset(ctx))
	n, err = idx.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}
