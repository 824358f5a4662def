package feed

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/mpgirro/hemin/internal/podcast"
)

const (
	nsAtom    = "http://www.w3.org/2005/Atom"
	nsRSS1    = "http://purl.org/rss/1.0/"
	nsContent = "http://purl.org/rss/1.0/modules/content/"
	nsPSC     = "http://podlove.org/simple-chapters"
)

// rawFeed holds elements that gofeed's universal model collapses or drops:
// every enclosure, every content:encoded body and psc chapter of an RSS
// item, and the channel-level atom:link elements.
type rawFeed struct {
	links []rawLink
	items []rawItem
}

type rawLink struct {
	rel  string
	href string
}

type rawItem struct {
	enclosures []podcast.Enclosure
	contents   []string
	chapters   []podcast.Chapter
}

// scan walks the feed once with a namespace-aware decoder.
func scan(data []byte) (*rawFeed, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	d.Strict = false
	d.Entity = xml.HTMLEntity

	raw := &rawFeed{}
	var (
		depth      int
		itemDepth  int // depth of the open <item>, 0 if none
		entryDepth int // depth of the open atom <entry>, 0 if none
	)
	current := func() *rawItem { return &raw.items[len(raw.items)-1] }

	for {
		tok, err := d.Token()
		if err == io.EOF {
			return raw, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			name := t.Name

			switch {
			case itemDepth == 0 && entryDepth == 0 && name.Local == "item" && (name.Space == "" || name.Space == nsRSS1):
				raw.items = append(raw.items, rawItem{})
				itemDepth = depth

			case itemDepth == 0 && entryDepth == 0 && name.Space == nsAtom && name.Local == "entry":
				entryDepth = depth

			case itemDepth == 0 && entryDepth == 0 && name.Space == nsAtom && name.Local == "link":
				raw.links = append(raw.links, rawLink{rel: attr(t, "rel"), href: attr(t, "href")})

			case itemDepth > 0 && name.Space == "" && name.Local == "enclosure":
				length, _ := strconv.ParseInt(strings.TrimSpace(attr(t, "length")), 10, 64)
				current().enclosures = append(current().enclosures, podcast.Enclosure{
					URL:    Sanitize(attr(t, "url")),
					Type:   attr(t, "type"),
					Length: length,
				})

			case itemDepth > 0 && name.Space == nsContent && name.Local == "encoded":
				var body string
				if err := d.DecodeElement(&body, &t); err != nil {
					return nil, err
				}
				depth--
				current().contents = append(current().contents, strings.TrimSpace(body))

			case itemDepth > 0 && name.Space == nsPSC && name.Local == "chapter":
				current().chapters = append(current().chapters, podcast.Chapter{
					Start: attr(t, "start"),
					Title: attr(t, "title"),
					Href:  Sanitize(attr(t, "href")),
					Image: attr(t, "image"),
				})
			}

		case xml.EndElement:
			if depth == itemDepth {
				itemDepth = 0
			}
			if depth == entryDepth {
				entryDepth = 0
			}
			depth--
		}
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
