package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for book documents.
//
// Titles use English stemming, author names a simple analyzer (no stemming
// of proper names), and ISBN and category are exact keywords.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = en.AnalyzerName
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleField)

	authorField := bleve.NewTextFieldMapping()
	authorField.Analyzer = simple.Name
	docMapping.AddFieldMappingsAt("author", authorField)

	isbnField := bleve.NewTextFieldMapping()
	isbnField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("isbn", isbnField)

	categoryField := bleve.NewTextFieldMapping()
	categoryField.Analyzer = keyword.Name
	categoryField.Store = true
	docMapping.AddFieldMappingsAt("category", categoryField)

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idField)

	// Stored only.
	for _, name := range []string{"display_title", "display_author"} {
		f := bleve.NewTextFieldMapping()
		f.Index = false
		f.Store = true
		docMapping.AddFieldMappingsAt(name, f)
	}

	createdField := bleve.NewNumericFieldMapping()
	createdField.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
