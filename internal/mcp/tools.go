package mcp

import (
	"time"

	"github.com/mpgirro/hemin/internal/document"
)

// SearchInput is the argument schema of the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"full-text query over show and episode fields"`
	Page  int    `json:"page,omitempty" jsonschema:"1-based page number, default 1"`
	Size  int    `json:"size,omitempty" jsonschema:"results per page, default 10"`
}

// SearchOutput is the result schema of the search tool.
type SearchOutput struct {
	CurrentPage int            `json:"current_page"`
	MaxPage     int            `json:"max_page"`
	TotalHits   int            `json:"total_hits"`
	Results     []ResultOutput `json:"results"`
}

// LookupInput is the argument schema of the lookup tool.
type LookupInput struct {
	Exo string `json:"exo" jsonschema:"external identifier of a show or episode"`
}

// LookupOutput is the result schema of the lookup tool.
type LookupOutput struct {
	Found    bool          `json:"found"`
	Document *ResultOutput `json:"document,omitempty"`
}

// ResultOutput is one document in tool output.
type ResultOutput struct {
	Exo          string     `json:"exo"`
	DocType      string     `json:"doc_type"`
	Title        string     `json:"title,omitempty"`
	PodcastTitle string     `json:"podcast_title,omitempty"`
	Link         string     `json:"link,omitempty"`
	PubDate      *time.Time `json:"pub_date,omitempty"`
	Description  string     `json:"description,omitempty" jsonschema:"description with markup removed, truncated"`
	Duration     string     `json:"duration,omitempty"`
}

const descriptionLimit = 500

// toResultOutput flattens a document for tool output.
func toResultOutput(d document.Document) ResultOutput {
	b := d.Common()
	out := ResultOutput{
		Exo:         b.Exo,
		DocType:     string(d.Kind()),
		Title:       document.Deref(b.Title),
		Link:        document.Deref(b.Link),
		PubDate:     b.PubDate,
		Description: clip(document.StripHTML(document.Deref(b.Description)), descriptionLimit),
	}
	if ep, ok := d.(*document.EpisodeDocument); ok {
		out.PodcastTitle = document.Deref(ep.PodcastTitle)
		out.Duration = document.Deref(ep.ItunesDuration)
	}
	return out
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// EpisodesInput is the argument schema of the episodes tool.
type EpisodesInput struct {
	Exo string `json:"exo" jsonschema:"exo of the show"`
}

// EpisodesOutput is the result schema of the episodes tool.
type EpisodesOutput struct {
	Found    bool           `json:"found"`
	Show     string         `json:"show,omitempty"`
	Episodes []ResultOutput `json:"episodes"`
}
