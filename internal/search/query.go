package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a book search.
type Params struct {
	Query    string
	Category string // exact category filter; empty means any
	Limit    int
	Offset   int
}

// Hit is one matching book.
type Hit struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Category string  `json:"category,omitempty"`
}

// Result is a page of hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"tookMs"`
	Hits   []Hit  `json:"hits"`
}

// Search returns the ids of books matching q, best match first.
func (s *BookIndex) Search(ctx context.Context, q string, limit int) ([]string, error) {
	res, err := s.SearchBooks(ctx, Params{Query: q, Limit: limit})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// SearchBooks runs a scored search with optional category filtering.
func (s *BookIndex) SearchBooks(ctx context.Context, params Params) (*Result, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "_id"})
	req.Fields = []string{"display_title", "display_author", "category"}

	sr, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  sr.Total,
		TookMs: sr.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(sr.Hits)),
	}
	for _, h := range sr.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["display_title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["display_author"].(string); ok {
			hit.Author = v
		}
		if v, ok := h.Fields["category"].(string); ok {
			hit.Category = v
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// buildQuery matches title strongest, then author, with typo tolerance on
// titles and an exact ISBN match.
func buildQuery(params Params) query.Query {
	var must []query.Query

	if q := Fold(params.Query); q != "" {
		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)

		fuzzy := bleve.NewMatchQuery(q)
		fuzzy.SetField("title")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.8)

		text := []query.Query{titleMatch, authorMatch, fuzzy}

		if len(q) >= 2 {
			prefix := bleve.NewPrefixQuery(q)
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}
		if isbn := normalizeISBN(params.Query); len(isbn) >= 10 {
			isbnTerm := bleve.NewTermQuery(isbn)
			isbnTerm.SetField("isbn")
			isbnTerm.SetBoost(5.0)
			text = append(text, isbnTerm)
		}

		must = append(must, bleve.NewDisjunctionQuery(text...))
	}

	if params.Category != "" {
		cat := bleve.NewTermQuery(Fold(params.Category))
		cat.SetField("category")
		must = append(must, cat)
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}
