// Package podcast defines the canonical show, episode and chapter records
// produced by feed normalization and consumed by the catalog and index.
package podcast

import "time"

// Show is the channel-level entity of a feed.
type Show struct {
	// Exo is the external identifier. Assigned once, stable for the show's lifetime.
	Exo string `json:"exo"`

	// FeedURL is the URL the show was ingested from.
	FeedURL string `json:"feedUrl,omitempty"`

	Title          string     `json:"title,omitempty"`
	Link           string     `json:"link,omitempty"`
	Description    string     `json:"description,omitempty"`
	PubDate        *time.Time `json:"pubDate,omitempty"`
	LastBuildDate  *time.Time `json:"lastBuildDate,omitempty"`
	Language       string     `json:"language,omitempty"`
	Generator      string     `json:"generator,omitempty"`
	Copyright      string     `json:"copyright,omitempty"`
	Docs           string     `json:"docs,omitempty"`
	ManagingEditor string     `json:"managingEditor,omitempty"`
	Image          string     `json:"image,omitempty"`

	ItunesSummary    string   `json:"itunesSummary,omitempty"`
	ItunesAuthor     string   `json:"itunesAuthor,omitempty"`
	ItunesKeywords   string   `json:"itunesKeywords,omitempty"`
	ItunesCategories []string `json:"itunesCategories,omitempty"`
	ItunesExplicit   *bool    `json:"itunesExplicit,omitempty"`
	ItunesBlock      *bool    `json:"itunesBlock,omitempty"`
	ItunesType       string   `json:"itunesType,omitempty"`
	ItunesOwnerName  string   `json:"itunesOwnerName,omitempty"`
	ItunesOwnerEmail string   `json:"itunesOwnerEmail,omitempty"`

	// EpisodeCount is the number of episodes seen in the last parse.
	EpisodeCount int `json:"episodeCount"`

	// WebsiteData is readable text scraped from Link, if crawling is enabled.
	WebsiteData string `json:"-"`
}

// Enclosure is the media file attached to an episode.
type Enclosure struct {
	URL    string `json:"url"`
	Type   string `json:"type,omitempty"`
	Length int64  `json:"length,omitempty"`
}

// Chapter is a chapter mark inside an episode.
type Chapter struct {
	Start string `json:"start"`
	Title string `json:"title,omitempty"`
	Href  string `json:"href,omitempty"`
	Image string `json:"image,omitempty"`
}

// Episode is a single feed item. It refers to its show by exo.
type Episode struct {
	Exo       string `json:"exo"`
	ShowExo   string `json:"showExo,omitempty"`
	ShowTitle string `json:"showTitle,omitempty"`

	Title          string     `json:"title,omitempty"`
	Link           string     `json:"link,omitempty"`
	PubDate        *time.Time `json:"pubDate,omitempty"`
	GUID           string     `json:"guid,omitempty"`
	GUIDPermalink  bool       `json:"guidIsPermalink,omitempty"`
	Description    string     `json:"description,omitempty"`
	Image          string     `json:"image,omitempty"`
	Enclosure      *Enclosure `json:"enclosure,omitempty"`
	ContentEncoded string     `json:"contentEncoded,omitempty"`

	ItunesDuration    string `json:"itunesDuration,omitempty"`
	ItunesSubtitle    string `json:"itunesSubtitle,omitempty"`
	ItunesAuthor      string `json:"itunesAuthor,omitempty"`
	ItunesSummary     string `json:"itunesSummary,omitempty"`
	ItunesSeason      *int   `json:"itunesSeason,omitempty"`
	ItunesEpisode     *int   `json:"itunesEpisode,omitempty"`
	ItunesEpisodeType string `json:"itunesEpisodeType,omitempty"`

	Chapters []Chapter `json:"chapters,omitempty"`
}

// FeedStatus records the outcome of the last ingestion attempt for a feed URL.
type FeedStatus string

const (
	FeedNeverChecked    FeedStatus = "never_checked"
	FeedDownloadSuccess FeedStatus = "download_success"
	FeedHTTP403         FeedStatus = "http_403"
	FeedDownloadError   FeedStatus = "download_error"
	FeedParseError      FeedStatus = "parse_error"
)

// Valid reports whether s is one of the known statuses.
func (s FeedStatus) Valid() bool {
	switch s {
	case FeedNeverChecked, FeedDownloadSuccess, FeedHTTP403, FeedDownloadError, FeedParseError:
		return true
	}
	return false
}

// Failed reports whether the last ingestion attempt did not succeed.
func (s FeedStatus) Failed() bool {
	switch s {
	case FeedHTTP403, FeedDownloadError, FeedParseError:
		return true
	}
	return false
}
