package index

import (
	"fmt"
	"time"

	"github.com/mpgirro/hemin/internal/document"
	"github.com/mpgirro/hemin/internal/errors"
)

// record is the flat field map handed to bleve. Absent fields are left out
// of the map entirely.
type record map[string]any

func (r record) put(field string, value *string) {
	if value != nil {
		r[field] = *value
	}
}

// toRecord flattens a document into index fields.
func toRecord(doc document.Document) record {
	base := doc.Common()
	r := record{
		document.FieldDocType: string(doc.Kind()),
		document.FieldExo:     base.Exo,
	}
	r.put(document.FieldTitle, base.Title)
	r.put(document.FieldLink, base.Link)
	r.put(document.FieldDescription, base.Description)
	r.put(document.FieldImage, base.Image)
	if base.PubDate != nil {
		r[document.FieldPubDate] = *base.PubDate
	}

	switch d := doc.(type) {
	case *document.ShowDocument:
		r.put(document.FieldItunesAuthor, d.ItunesAuthor)
		r.put(document.FieldItunesSummary, d.ItunesSummary)
		r.put(document.FieldWebsiteData, d.WebsiteData)
	case *document.EpisodeDocument:
		r.put(document.FieldPodcastTitle, d.PodcastTitle)
		r.put(document.FieldItunesAuthor, d.ItunesAuthor)
		r.put(document.FieldItunesSummary, d.ItunesSummary)
		r.put(document.FieldItunesDuration, d.ItunesDuration)
		r.put(document.FieldChapterMarks, d.ChapterMarks)
		r.put(document.FieldContentEncoded, d.ContentEncoded)
		r.put(document.FieldTranscript, d.Transcript)
	}
	return r
}

// fromFields rebuilds a document from the stored fields of a hit.
// A hit without doc_type is a fatal data error.
func fromFields(fields map[string]any) (document.Document, error) {
	raw, ok := fields[document.FieldDocType].(string)
	if !ok || raw == "" {
		return nil, errors.New(errors.ErrCodeMissingDocType,
			"document in index has no doc_type", nil).
			WithDetail("exo", str(fields, document.FieldExo))
	}
	kind, ok := document.ParseKind(raw)
	if !ok {
		return nil, errors.InternalError(fmt.Sprintf("unknown doc_type %q", raw), nil)
	}

	base := document.Base{
		Exo:         str(fields, document.FieldExo),
		Title:       strPtr(fields, document.FieldTitle),
		Link:        strPtr(fields, document.FieldLink),
		Description: strPtr(fields, document.FieldDescription),
		PubDate:     timePtr(fields, document.FieldPubDate),
		Image:       strPtr(fields, document.FieldImage),
	}

	switch kind {
	case document.KindShow:
		return &document.ShowDocument{
			Base:          base,
			ItunesAuthor:  strPtr(fields, document.FieldItunesAuthor),
			ItunesSummary: strPtr(fields, document.FieldItunesSummary),
		}, nil
	case document.KindEpisode:
		return &document.EpisodeDocument{
			Base:           base,
			PodcastTitle:   strPtr(fields, document.FieldPodcastTitle),
			ItunesAuthor:   strPtr(fields, document.FieldItunesAuthor),
			ItunesSummary:  strPtr(fields, document.FieldItunesSummary),
			ItunesDuration: strPtr(fields, document.FieldItunesDuration),
			ChapterMarks:   strPtr(fields, document.FieldChapterMarks),
		}, nil
	default:
		return nil, errors.InternalError(fmt.Sprintf("no decoder for doc_type %q", kind), nil)
	}
}

func str(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []any:
		// multi-valued fields come back as slices; the first value wins
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func strPtr(fields map[string]any, name string) *string {
	return document.Str(str(fields, name))
}

func timePtr(fields map[string]any, name string) *time.Time {
	s := str(fields, name)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.Local()
	return &t
}
