package feed

import (
	"fmt"
	"strconv"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
)

// Keys stashed in gofeed's Custom maps for RSS fields the universal model drops.
const (
	customImageLink        = "hemin:image_link"
	customImageDescription = "hemin:image_description"
	customDocs             = "hemin:docs"
	customManagingEditor   = "hemin:managing_editor"
	customGUIDPermalink    = "hemin:guid_permalink"
)

// rssTranslator is gofeed's default RSS translator plus the image block link
// and description, docs, managingEditor and guid isPermaLink. Link and
// description are taken verbatim from the channel and items; the default
// translator's fallbacks to iTunes and Dublin Core fields are undone so the
// normalizer's own precedence applies.
type rssTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *rssTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	src, ok := feed.(*rss.Feed)
	if !ok {
		return nil, fmt.Errorf("feed did not match expected type of *rss.Feed")
	}

	out, err := t.DefaultRSSTranslator.Translate(src)
	if err != nil {
		return nil, err
	}

	out.Link = src.Link
	out.Description = src.Description

	if out.Custom == nil {
		out.Custom = make(map[string]string)
	}
	if src.Image != nil {
		out.Custom[customImageLink] = src.Image.Link
		out.Custom[customImageDescription] = src.Image.Description
	}
	out.Custom[customDocs] = src.Docs
	out.Custom[customManagingEditor] = src.ManagingEditor

	for i, item := range src.Items {
		if i >= len(out.Items) {
			break
		}
		dst := out.Items[i]
		dst.Description = item.Description
		if item.GUID == nil || item.GUID.Value == "" {
			continue
		}
		if dst.Custom == nil {
			dst.Custom = make(map[string]string)
		}
		// isPermaLink defaults to true when the attribute is absent.
		dst.Custom[customGUIDPermalink] = strconv.FormatBool(item.GUID.IsPermalink != "false")
	}
	return out, nil
}
