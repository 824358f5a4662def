package index

import (
	"slices"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/mpgirro/hemin/internal/document"
)

// storedOnly are fields kept for reconstruction but never matched.
var storedOnly = []string{
	document.FieldImage,
	document.FieldItunesDuration,
}

// searchedOnly are matched but not stored; they never leave the index.
var searchedOnly = []string{
	document.FieldContentEncoded,
	document.FieldTranscript,
	document.FieldWebsiteData,
}

// createIndexMapping builds the static document mapping. Unknown fields
// are ignored rather than dynamically mapped.
func createIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentStaticMapping()

	for _, name := range []string{document.FieldDocType, document.FieldExo} {
		fm := bleve.NewKeywordFieldMapping()
		fm.Analyzer = keyword.Name
		fm.IncludeInAll = false
		dm.AddFieldMappingsAt(name, fm)
	}

	date := bleve.NewDateTimeFieldMapping()
	date.IncludeInAll = false
	dm.AddFieldMappingsAt(document.FieldPubDate, date)

	for _, name := range storedOnly {
		fm := bleve.NewTextFieldMapping()
		fm.Index = false
		fm.IncludeInAll = false
		dm.AddFieldMappingsAt(name, fm)
	}

	for _, name := range document.SearchFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.Store = !slices.Contains(searchedOnly, name)
		fm.IncludeTermVectors = false
		dm.AddFieldMappingsAt(name, fm)
	}

	im.DefaultMapping = dm
	return im
}
