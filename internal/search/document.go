// Package search provides the full-text book index behind catalog search.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// Fold lowercases s and strips diacritics so "Émile Zola" matches "emile zola".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(folded)
}

// bookDocument is the indexed form of a book. Text fields are folded; the
// display values are stored separately for hits.
type bookDocument struct {
	ID       string
	Title    string
	Author   string
	ISBN     string
	Category string

	DisplayTitle  string
	DisplayAuthor string
	CreatedAt     int64
}

func newBookDocument(b *domain.Book) *bookDocument {
	return &bookDocument{
		ID:            b.ID,
		Title:         Fold(b.Title),
		Author:        Fold(b.Author),
		ISBN:          normalizeISBN(b.ISBN),
		Category:      Fold(b.Category),
		DisplayTitle:  b.Title,
		DisplayAuthor: b.Author,
		CreatedAt:     b.CreatedAt.UnixMilli(),
	}
}

// toMap uses the lowercase field names of the index mapping.
func (d *bookDocument) toMap() map[string]any {
	return map[string]any{
		"id":             d.ID,
		"title":          d.Title,
		"author":         d.Author,
		"isbn":           d.ISBN,
		"category":       d.Category,
		"display_title":  d.DisplayTitle,
		"display_author": d.DisplayAuthor,
		"created_at":     d.CreatedAt,
	}
}

// normalizeISBN drops hyphens and spaces and uppercases a trailing X.
func normalizeISBN(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}
