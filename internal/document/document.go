// Package document defines the flat, type-tagged records stored in the
// search index and the projection from shows and episodes into them.
package document

import (
	"encoding/json"
	"time"
)

// Kind discriminates the two document variants.
type Kind string

const (
	KindShow    Kind = "show"
	KindEpisode Kind = "episode"
)

// Index field names.
const (
	FieldDocType        = "doc_type"
	FieldExo            = "exo"
	FieldTitle          = "title"
	FieldLink           = "link"
	FieldDescription    = "description"
	FieldPubDate        = "pub_date"
	FieldImage          = "itunes_image"
	FieldPodcastTitle   = "podcast_title"
	FieldItunesAuthor   = "itunes_author"
	FieldItunesSummary  = "itunes_summary"
	FieldItunesDuration = "itunes_duration"
	FieldChapterMarks   = "chapter_marks"
	FieldContentEncoded = "content_encoded"
	FieldTranscript     = "transcript"
	FieldWebsiteData    = "website_data"
)

// SearchFields are the fields a free-text query is matched against.
var SearchFields = []string{
	FieldTitle,
	FieldDescription,
	FieldLink,
	FieldPodcastTitle,
	FieldContentEncoded,
	FieldTranscript,
	FieldWebsiteData,
	FieldItunesAuthor,
	FieldItunesSummary,
	FieldChapterMarks,
}

// Document is an index record. The only implementations are *ShowDocument
// and *EpisodeDocument; switches over Document cover exactly those two.
type Document interface {
	Kind() Kind
	Common() *Base
	isDocument()
}

// Base holds the fields every document carries. Nil pointers mean absent.
type Base struct {
	Exo         string     `json:"exo"`
	Title       *string    `json:"title,omitempty"`
	Link        *string    `json:"link,omitempty"`
	Description *string    `json:"description,omitempty"`
	PubDate     *time.Time `json:"pubDate,omitempty"`
	Image       *string    `json:"image,omitempty"`
}

// ShowDocument is the projection of a show.
type ShowDocument struct {
	Base
	ItunesAuthor  *string `json:"itunesAuthor,omitempty"`
	ItunesSummary *string `json:"itunesSummary,omitempty"`
	WebsiteData   *string `json:"-"`
}

// EpisodeDocument is the projection of an episode.
type EpisodeDocument struct {
	Base
	PodcastTitle   *string `json:"podcastTitle,omitempty"`
	ItunesAuthor   *string `json:"itunesAuthor,omitempty"`
	ItunesSummary  *string `json:"itunesSummary,omitempty"`
	ItunesDuration *string `json:"itunesDuration,omitempty"`
	ChapterMarks   *string `json:"chapterMarks,omitempty"`
	ContentEncoded *string `json:"-"`
	Transcript     *string `json:"-"`
}

func (*ShowDocument) Kind() Kind { return KindShow }
func (d *ShowDocument) Common() *Base { return &d.Base }
func (*ShowDocument) isDocument() {}

func (*EpisodeDocument) Kind() Kind { return KindEpisode }
func (d *EpisodeDocument) Common() *Base { return &d.Base }
func (*EpisodeDocument) isDocument() {}

// MarshalJSON adds the docType discriminator.
func (d *ShowDocument) MarshalJSON() ([]byte, error) {
	type plain ShowDocument
	return json.Marshal(struct {
		DocType Kind `json:"docType"`
		*plain
	}{KindShow, (*plain)(d)})
}

// MarshalJSON adds the docType discriminator.
func (d *EpisodeDocument) MarshalJSON() ([]byte, error) {
	type plain EpisodeDocument
	return json.Marshal(struct {
		DocType Kind `json:"docType"`
		*plain
	}{KindEpisode, (*plain)(d)})
}

// Clone returns a copy of d that shares no memory with it.
func Clone(d Document) Document {
	switch v := d.(type) {
	case *ShowDocument:
		if v == nil {
			return v
		}
		c := *v
		c.Base = v.Base.clone()
		c.ItunesAuthor = clonePtr(v.ItunesAuthor)
		c.ItunesSummary = clonePtr(v.ItunesSummary)
		c.WebsiteData = clonePtr(v.WebsiteData)
		return &c
	case *EpisodeDocument:
		if v == nil {
			return v
		}
		c := *v
		c.Base = v.Base.clone()
		c.PodcastTitle = clonePtr(v.PodcastTitle)
		c.ItunesAuthor = clonePtr(v.ItunesAuthor)
		c.ItunesSummary = clonePtr(v.ItunesSummary)
		c.ItunesDuration = clonePtr(v.ItunesDuration)
		c.ChapterMarks = clonePtr(v.ChapterMarks)
		c.ContentEncoded = clonePtr(v.ContentEncoded)
		c.Transcript = clonePtr(v.Transcript)
		return &c
	default:
		return d
	}
}

func (b Base) clone() Base {
	b.Title = clonePtr(b.Title)
	b.Link = clonePtr(b.Link)
	b.Description = clonePtr(b.Description)
	b.PubDate = clonePtr(b.PubDate)
	b.Image = clonePtr(b.Image)
	return b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ParseKind validates a stored doc_type value.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindShow, KindEpisode:
		return Kind(s), true
	}
	return "", false
}

// Str returns a pointer to s, or nil for the empty string.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *p, or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
