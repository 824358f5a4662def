// Package feed turns raw podcast feed text into canonical shows and episodes.
//
// The normalizer is lenient: it extracts whatever it can from RSS, Atom and
// their namespace extensions (iTunes, content, psc, atom), logs what it had to
// discard and only fails when the text is not a syndication document at all.
package feed

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/logging"
	"github.com/mpgirro/hemin/internal/podcast"
)

// ignoredLinkRels are feed-level atom:link relations hemin knows and skips.
var ignoredLinkRels = map[string]bool{
	"http://podlove.org/deep-link": true,
	"payment":                      true,
	"self":                         true,
	"alternate":                    true,
	"first":                        true,
	"next":                         true,
	"last":                         true,
	"hub":                          true,
	"search":                       true,
	"via":                          true,
	"related":                      true,
	"prev-archive":                 true,
}

// Result is the outcome of normalizing one feed.
type Result struct {
	Show     podcast.Show
	Episodes []podcast.Episode
}

// Normalizer converts feed text into a Result. Safe for concurrent use.
type Normalizer struct {
	logger *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger for normalization diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = logging.OrDefault(n.logger)
	return n
}

// Normalize parses data into one show and its episodes.
// Exos are left empty; assigning them is the caller's job.
func (n *Normalizer) Normalize(data []byte) (*Result, error) {
	parser := gofeed.NewParser()
	parser.RSSTranslator = &rssTranslator{}

	parsed, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ParseError("failed to parse feed", err)
	}

	raw, err := scan(data)
	if err != nil {
		n.logger.Debug("raw element scan failed, using parser values only", slog.String("error", err.Error()))
		raw = nil
	}

	show := n.show(parsed)
	n.checkLinks(show.Title, parsed, raw)

	// Raw items line up with gofeed items only for RSS.
	var rawItems []rawItem
	if raw != nil && len(raw.items) == len(parsed.Items) {
		rawItems = raw.items
	}

	episodes := make([]podcast.Episode, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		var ri *rawItem
		if rawItems != nil {
			ri = &rawItems[i]
		}
		episodes = append(episodes, n.episode(item, ri))
	}
	show.EpisodeCount = len(episodes)

	return &Result{Show: show, Episodes: episodes}, nil
}

func (n *Normalizer) show(f *gofeed.Feed) podcast.Show {
	s := podcast.Show{
		Title:          f.Title,
		Link:           Sanitize(f.Link),
		Description:    f.Description,
		PubDate:        localTime(f.PublishedParsed),
		LastBuildDate:  localTime(f.UpdatedParsed),
		Language:       f.Language,
		Generator:      f.Generator,
		Copyright:      f.Copyright,
		Docs:           Sanitize(f.Custom[customDocs]),
		ManagingEditor: f.Custom[customManagingEditor],
	}

	// Image block fallbacks for title, link and description.
	if f.Image != nil {
		s.Image = Sanitize(f.Image.URL)
		if s.Title == "" {
			s.Title = f.Image.Title
		}
	}
	if s.Link == "" {
		s.Link = Sanitize(f.Custom[customImageLink])
	}
	if s.Description == "" {
		s.Description = f.Custom[customImageDescription]
	}

	it := f.ITunesExt
	if it == nil {
		n.logger.Debug("no iTunes extension on feed", slog.String("title", s.Title))
		return s
	}

	s.ItunesSummary = it.Summary
	s.ItunesAuthor = it.Author
	s.ItunesKeywords = joinKeywords(it.Keywords)
	s.ItunesCategories = categoryNames(it.Categories)
	s.ItunesExplicit = parseFlag(it.Explicit)
	s.ItunesBlock = parseFlag(it.Block)
	s.ItunesType = it.Type
	if it.Owner != nil {
		s.ItunesOwnerName = it.Owner.Name
		s.ItunesOwnerEmail = it.Owner.Email
	}
	if s.Image == "" {
		s.Image = Sanitize(it.Image)
	}
	return s
}

// checkLinks warns about feed-level atom:link relations it does not know.
func (n *Normalizer) checkLinks(title string, f *gofeed.Feed, raw *rawFeed) {
	var links []rawLink
	if raw != nil {
		links = raw.links
	} else {
		for _, l := range f.Extensions["atom"]["link"] {
			links = append(links, rawLink{rel: l.Attrs["rel"], href: l.Attrs["href"]})
		}
	}

	for _, l := range links {
		if l.rel == "" || ignoredLinkRels[l.rel] {
			continue
		}
		n.logger.Warn("unknown atom:link rel on feed",
			slog.String("feed", title),
			slog.String("rel", l.rel),
			slog.String("href", Sanitize(l.href)))
	}
}

func (n *Normalizer) episode(item *gofeed.Item, raw *rawItem) podcast.Episode {
	e := podcast.Episode{
		Title:       item.Title,
		Link:        Sanitize(item.Link),
		PubDate:     localTime(item.PublishedParsed),
		GUID:        item.GUID,
		Description: item.Description,
	}
	if v, ok := item.Custom[customGUIDPermalink]; ok {
		e.GUIDPermalink, _ = strconv.ParseBool(v)
	}
	if e.PubDate == nil && item.Published != "" {
		n.logger.Debug("unparseable episode pubDate", slog.String("episode", e.Title), slog.String("value", item.Published))
	}

	var (
		enclosures []podcast.Enclosure
		contents   []string
		chapters   []podcast.Chapter
	)
	if raw != nil {
		enclosures, contents, chapters = raw.enclosures, raw.contents, raw.chapters
	} else {
		enclosures = convertEnclosures(item.Enclosures)
		if item.Content != "" {
			contents = []string{item.Content}
		}
		chapters = extensionChapters(item.Extensions)
	}

	e.Enclosure = n.electEnclosure(e.Title, enclosures)
	e.ContentEncoded = n.electContent(e.Title, contents)
	if len(chapters) > 0 {
		e.Chapters = chapters
	}

	if it := item.ITunesExt; it != nil {
		e.Image = Sanitize(it.Image)
		e.ItunesDuration = it.Duration
		e.ItunesSubtitle = it.Subtitle
		e.ItunesAuthor = it.Author
		e.ItunesSummary = it.Summary
		e.ItunesSeason = parseInt(it.Season)
		e.ItunesEpisode = parseInt(it.Episode)
		e.ItunesEpisodeType = it.EpisodeType
	} else {
		n.logger.Debug("no iTunes extension on episode", slog.String("episode", e.Title))
	}
	if e.Image == "" && item.Image != nil {
		e.Image = Sanitize(item.Image.URL)
	}
	return e
}

// electEnclosure keeps the first enclosure and warns about the rest.
func (n *Normalizer) electEnclosure(title string, enclosures []podcast.Enclosure) *podcast.Enclosure {
	if len(enclosures) == 0 {
		return nil
	}
	if len(enclosures) > 1 {
		n.logger.Warn("episode has multiple enclosures, keeping the first",
			slog.String("episode", title),
			slog.Int("count", len(enclosures)))
	}
	first := enclosures[0]
	return &first
}

// electContent keeps the first content:encoded body and warns about the rest.
func (n *Normalizer) electContent(title string, contents []string) string {
	if len(contents) == 0 {
		return ""
	}
	if len(contents) > 1 {
		n.logger.Warn("episode has multiple content:encoded elements, keeping the first",
			slog.String("episode", title),
			slog.Int("count", len(contents)))
	}
	return contents[0]
}

func convertEnclosures(in []*gofeed.Enclosure) []podcast.Enclosure {
	out := make([]podcast.Enclosure, 0, len(in))
	for _, enc := range in {
		if enc == nil {
			continue
		}
		length, _ := strconv.ParseInt(strings.TrimSpace(enc.Length), 10, 64)
		out = append(out, podcast.Enclosure{URL: Sanitize(enc.URL), Type: enc.Type, Length: length})
	}
	return out
}

// extensionChapters reads psc chapters from gofeed's generic extension tree,
// used for Atom entries where the raw scan does not apply.
func extensionChapters(exts ext.Extensions) []podcast.Chapter {
	var chapters []podcast.Chapter
	for _, lists := range exts["psc"]["chapters"] {
		for _, c := range lists.Children["chapter"] {
			chapters = append(chapters, podcast.Chapter{
				Start: c.Attrs["start"],
				Title: c.Attrs["title"],
				Href:  Sanitize(c.Attrs["href"]),
				Image: c.Attrs["image"],
			})
		}
	}
	return chapters
}

// joinKeywords normalizes a comma separated keyword list to ", " separators.
func joinKeywords(raw string) string {
	var words []string
	for _, w := range strings.Split(raw, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, ", ")
}

// categoryNames returns the top-level category names, unique, in feed order.
func categoryNames(categories []*ext.ITunesCategory) []string {
	seen := make(map[string]bool, len(categories))
	var names []string
	for _, c := range categories {
		if c == nil || c.Text == "" || seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		names = append(names, c.Text)
	}
	return names
}

func parseFlag(v string) *bool {
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "explicit":
		b = true
	case "no", "false", "clean":
		b = false
	default:
		return nil
	}
	return &b
}

func parseInt(v string) *int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &i
}

func localTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	local := t.Local()
	return &local
}
