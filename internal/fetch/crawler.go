package fetch

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/mpgirro/hemin/internal/errors"
)

// Crawler extracts readable text from show websites.
type Crawler struct {
	client *Client
}

// NewCrawler creates a Crawler that downloads through client.
func NewCrawler(client *Client) *Crawler {
	return &Crawler{client: client}
}

// Text downloads pageURL and returns its main article text. When
// readability finds no article, the visible body text is used instead.
func (c *Crawler) Text(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return "", errors.ValidationError("invalid website url", err).WithDetail("url", pageURL)
	}

	body, err := c.client.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return ExtractText(body, u)
}

// ExtractText returns the readable text of an HTML page.
func ExtractText(page []byte, base *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(page), base)
	if err == nil {
		if text := collapse(article.TextContent); text != "" {
			return text, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", errors.ParseError("failed to parse website", err)
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()
	return collapse(doc.Find("body").Text()), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
