package feed

import (
	"encoding/xml"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/mpgirro/hemin/internal/errors"
)

type opmlDocument struct {
	Body struct {
		Outlines []opmlOutline `xml:"outline"`
	} `xml:"body"`
}

type opmlOutline struct {
	XMLURL   string        `xml:"xmlUrl,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

// ParseOPML returns the feed URLs of all outlines in an OPML subscription
// list, nested ones included, sanitized and de-duplicated in document order.
func ParseOPML(r io.Reader) ([]string, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	d.Strict = false

	var doc opmlDocument
	if err := d.Decode(&doc); err != nil {
		return nil, errors.ParseError("failed to parse OPML", err)
	}

	seen := make(map[string]bool)
	var urls []string
	var walk func([]opmlOutline)
	walk = func(outlines []opmlOutline) {
		for _, o := range outlines {
			if u := Sanitize(o.XMLURL); u != "" && !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)
	return urls, nil
}
